package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rateboard-io/corpus/internal/service"
	"github.com/spf13/cobra"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document",
		Long:  "Upload a file into the document store and run the ingestion pipeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("user", "u", "", "Owner user ID")
	cmd.Flags().String("name", "", "Original name stored with the document (defaults to the file name)")
	cmd.Flags().String("type", "", "File type override (txt, md, csv, xlsx, docx)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	filePath := args[0]
	userID, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	fileType, _ := cmd.Flags().GetString("type")
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

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	if name == "" {
		name = filepath.Base(filePath)
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	storagePath := "documents/" + uuidGen.NewString() + strings.ToLower(filepath.Ext(filePath))
	if err := store.Store(ctx, storagePath, f); err != nil {
		return fmt.Errorf("failed to store %s: %w", filePath, err)
	}

	ingestSvc := buildIngestService(cfg, pool, store, buildEmbedder(cfg))
	result, err := ingestSvc.IngestDocument(ctx, service.IngestInput{
		UserID:       userID,
		Path:         storagePath,
		OriginalName: name,
		FileType:     fileType,
	})
	if err != nil {
		// No document row references the file at this point.
		if delErr := store.Delete(ctx, storagePath); delErr != nil {
			fmt.Fprintf(os.Stderr, "warning: stored file %s not removed: %v\n", storagePath, delErr)
		}
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":               result.Document.ID,
			"original_name":    result.Document.OriginalName,
			"file_type":        result.Document.FileType,
			"storage_path":     result.Document.StoragePath,
			"size_bytes":       result.Document.SizeBytes,
			"total_chunks":     result.TotalChunks,
			"processed_chunks": result.Processed,
			"failed_chunks":    result.Failed,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Document ingested: %s (%s)\n", result.Document.OriginalName, result.Document.ID)
		fmt.Printf("  Chunks: %d/%d embedded", result.Processed, result.TotalChunks)
		if result.Failed > 0 {
			fmt.Printf(" (%d pending repair)", result.Failed)
		}
		fmt.Println()
	}

	return nil
}
