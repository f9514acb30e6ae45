package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rateboard-io/corpus/internal/domain"
)

const (
	// DefaultRepairBatchSize caps how many chunks a single repair pass loads
	DefaultRepairBatchSize = 50
)

// ChunkRepository defines the chunk persistence operations the repair worker needs
type ChunkRepository interface {
	// ListMissingEmbeddings returns chunks that have no embedding row yet
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error)

	// InsertEmbedding stores the vector for a chunk
	InsertEmbedding(ctx context.Context, embedding *domain.Embedding) error
}

// EmbeddingClient defines the interface for generating embedding vectors
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// EmbeddingRepairWorker backfills embeddings for chunks whose vector
// generation failed during ingestion
type EmbeddingRepairWorker struct {
	chunks    ChunkRepository
	embedder  EmbeddingClient
	batchSize int
}

// NewEmbeddingRepairWorker creates a new EmbeddingRepairWorker instance
func NewEmbeddingRepairWorker(chunks ChunkRepository, embedder EmbeddingClient, batchSize int) *EmbeddingRepairWorker {
	if batchSize <= 0 {
		batchSize = DefaultRepairBatchSize
	}
	return &EmbeddingRepairWorker{
		chunks:    chunks,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingRepairWorker) ProcessJobs(ctx context.Context) error {
	chunks, err := w.chunks.ListMissingEmbeddings(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list chunks missing embeddings: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	log.Printf("Repairing embeddings for %d chunks", len(chunks))

	repaired := 0
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.repairChunk(ctx, chunk); err != nil {
			log.Printf("Error repairing chunk %s: %v", chunk.ID, err)
			continue
		}
		repaired++
	}

	log.Printf("Repaired embeddings for %d/%d chunks", repaired, len(chunks))
	return nil
}

func (w *EmbeddingRepairWorker) repairChunk(ctx context.Context, chunk *domain.Chunk) error {
	vector, err := w.embedder.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	embedding := &domain.Embedding{
		ID:        uuid.NewString(),
		ChunkID:   chunk.ID,
		Vector:    vector,
		Model:     w.embedder.Model(),
		CreatedAt: time.Now().UTC(),
	}

	if err := w.chunks.InsertEmbedding(ctx, embedding); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}
