package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rateboard-io/corpus/internal/service"
	"github.com/spf13/cobra"
)

func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search ingested documents",
		Long:  "Embed the query and return the closest chunks by cosine similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			userID, _ := cmd.Flags().GetString("user")
			return runSearch(outputFormat, userID, args[0], limit)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringP("user", "u", "", "Restrict results to one owner's documents")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of hits")

	return cmd
}

func runSearch(outputFormat, userID, query string, limit int) error {
	ctx := context.Background()

	cfg, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !cfg.HasOpenAI() {
		return fmt.Errorf("search requires an embedding provider, set CORPUS_OPENAI_API_KEY")
	}

	retrievalSvc := buildRetrievalService(pool, buildEmbedder(cfg))
	hits, err := retrievalSvc.Search(ctx, service.SearchInput{
		UserID: userID,
		Query:  query,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("failed to search: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(hits))
		for i, hit := range hits {
			data[i] = map[string]interface{}{
				"chunk_id":      hit.ChunkID,
				"document_id":   hit.DocumentID,
				"document_name": hit.DocumentName,
				"chunk_index":   hit.ChunkIndex,
				"score":         hit.Score,
				"content":       hit.Content,
			}
		}
		jsonBytes, _ := json.MarshalIndent(map[string]interface{}{"hits": data, "count": len(hits)}, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(hits) == 0 {
			fmt.Println("No matching chunks found")
			return nil
		}
		for i, hit := range hits {
			fmt.Printf("%2d. [%.3f] %s (chunk %d)\n", i+1, hit.Score, hit.DocumentName, hit.ChunkIndex)
			fmt.Printf("    %s\n", snippet(hit.Content, 160))
		}
	}

	return nil
}

func snippet(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
