package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/repository"
	"github.com/rateboard-io/corpus/internal/service"
	"github.com/spf13/cobra"
)

func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		Long:  "List ingested documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			userID, _ := cmd.Flags().GetString("user")
			return runList(outputFormat, userID, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringP("user", "u", "", "Owner user ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runList(outputFormat, userID string, limit int, cursor string) error {
	ctx := context.Background()

	_, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	docSvc := service.NewDocumentService(repository.NewDocumentRepository(pool), nil)
	output, err := docSvc.ListDocuments(ctx, service.ListDocumentsInput{
		UserID: userID,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(output.Items))
		for i, doc := range output.Items {
			data[i] = documentJSON(doc)
		}
		result := map[string]interface{}{
			"items":    data,
			"cursor":   output.Cursor,
			"has_more": output.HasMore,
		}
		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(output.Items) == 0 {
			fmt.Println("No documents found")
			return nil
		}
		fmt.Println("Documents:")
		for _, doc := range output.Items {
			fmt.Printf("  %s: %s [%s] owner=%s (created: %s)\n",
				doc.ID, doc.OriginalName, doc.FileType, doc.UserID,
				doc.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if output.HasMore && output.Cursor != "" {
			fmt.Printf("\nMore results available. Use --cursor %s\n", output.Cursor)
		}
	}

	return nil
}

func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show a document",
		Long:  "Show document metadata, or a single chunk when --chunk is given",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}

	cmd.Flags().String("chunk", "", "Chunk ID to show instead of the document")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	documentID := args[0]
	chunkID, _ := cmd.Flags().GetString("chunk")
	outputFormat, _ := cmd.Flags().GetString("output")

	_, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if chunkID != "" {
		chunk, err := repository.NewChunkRepository(pool).GetByID(ctx, chunkID)
		if err != nil {
			return fmt.Errorf("failed to get chunk: %w", err)
		}
		if chunk.DocumentID != documentID {
			return fmt.Errorf("failed to get chunk: %w", domain.ErrChunkNotFound)
		}

		if outputFormat == "json" {
			data := map[string]interface{}{
				"id":          chunk.ID,
				"document_id": chunk.DocumentID,
				"chunk_index": chunk.ChunkIndex,
				"token_count": chunk.TokenCount,
				"content":     chunk.Content,
				"created_at":  chunk.CreatedAt,
			}
			jsonBytes, _ := json.MarshalIndent(data, "", "  ")
			fmt.Println(string(jsonBytes))
		} else {
			fmt.Printf("Chunk %s (index %d, ~%d tokens)\n\n%s\n", chunk.ID, chunk.ChunkIndex, chunk.TokenCount, chunk.Content)
		}
		return nil
	}

	docSvc := service.NewDocumentService(repository.NewDocumentRepository(pool), nil)
	doc, err := docSvc.GetDocument(ctx, "", documentID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(documentJSON(doc), "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Document: %s\n", doc.ID)
		fmt.Printf("  Name:    %s\n", doc.OriginalName)
		fmt.Printf("  Type:    %s\n", doc.FileType)
		fmt.Printf("  Owner:   %s\n", doc.UserID)
		fmt.Printf("  Stored:  %s (%d bytes)\n", doc.StoragePath, doc.SizeBytes)
		fmt.Printf("  Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document",
		Long:  "Delete a document together with its chunks, embeddings and stored file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	cmd.Flags().StringP("user", "u", "", "Owner user ID (empty skips the owner check)")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	documentID := args[0]
	userID, _ := cmd.Flags().GetString("user")

	cfg, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := buildFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	docSvc := service.NewDocumentService(repository.NewDocumentRepository(pool), store)
	if err := docSvc.DeleteDocument(ctx, userID, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Document deleted: %s\n", documentID)
	return nil
}

func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <document-id>",
		Short: "Rebuild a document's chunks",
		Long:  "Re-extract the stored file and rebuild all chunks and embeddings",
		Args:  cobra.ExactArgs(1),
		RunE:  runReindex,
	}

	cmd.Flags().StringP("user", "u", "", "Owner user ID (empty skips the owner check)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	documentID := args[0]
	userID, _ := cmd.Flags().GetString("user")
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := buildFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	ingestSvc := buildIngestService(cfg, pool, store, buildEmbedder(cfg))
	result, err := ingestSvc.Reindex(ctx, userID, documentID)
	if err != nil {
		return fmt.Errorf("failed to reindex document: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":               result.Document.ID,
			"original_name":    result.Document.OriginalName,
			"total_chunks":     result.TotalChunks,
			"processed_chunks": result.Processed,
			"failed_chunks":    result.Failed,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Document reindexed: %s (%s)\n", result.Document.OriginalName, result.Document.ID)
		fmt.Printf("  Chunks: %d/%d embedded", result.Processed, result.TotalChunks)
		if result.Failed > 0 {
			fmt.Printf(" (%d pending repair)", result.Failed)
		}
		fmt.Println()
	}

	return nil
}

func documentJSON(doc *domain.Document) map[string]interface{} {
	return map[string]interface{}{
		"id":            doc.ID,
		"user_id":       doc.UserID,
		"filename":      doc.Filename,
		"original_name": doc.OriginalName,
		"file_type":     doc.FileType,
		"storage_path":  doc.StoragePath,
		"size_bytes":    doc.SizeBytes,
		"created_at":    doc.CreatedAt,
	}
}
