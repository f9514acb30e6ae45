package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/telemetry"
	"golang.org/x/time/rate"
)

const (
	// DefaultEmbedBatchSize is how many chunks are embedded concurrently
	// before the next batch is released.
	DefaultEmbedBatchSize = 5

	// DefaultEmbedInterval is the minimum spacing between embedding batches,
	// keeping request bursts within the embedding API rate limits.
	DefaultEmbedInterval = time.Second
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	CreateChunk(ctx context.Context, c *domain.Chunk) error
	InsertEmbedding(ctx context.Context, e *domain.Embedding) error
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	ListByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error)
}

// FileStoreInterface defines the interface for document file storage
type FileStoreInterface interface {
	// Store writes the reader's contents under the given path.
	Store(ctx context.Context, path string, r io.Reader) error

	// Fetch makes the stored file available on the local filesystem and
	// returns its path. The cleanup function removes any temporary copy.
	Fetch(ctx context.Context, path string) (string, func(), error)

	// Stat returns the size of the stored file in bytes.
	Stat(ctx context.Context, path string) (int64, error)

	// Delete removes the stored file.
	Delete(ctx context.Context, path string) error
}

// TextExtractor converts stored files to plain text
type TextExtractor interface {
	Text(path string, fileType domain.FileType) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestConfig tunes chunking and embedding throughput for ingestion.
type IngestConfig struct {
	Chunking      ChunkConfig
	BatchSize     int
	BatchInterval time.Duration
}

// DefaultIngestConfig provides the defaults used in production.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Chunking:      DefaultChunkConfig(),
		BatchSize:     DefaultEmbedBatchSize,
		BatchInterval: DefaultEmbedInterval,
	}
}

// IngestService turns stored files into searchable chunks with embeddings
type IngestService struct {
	docRepo   DocumentRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	store     FileStoreInterface
	extractor TextExtractor
	embedder  EmbeddingClient
	txRunner  TxRunner
	cfg       IngestConfig
	limiter   *rate.Limiter
	uuidGen   UUIDGenerator
}

// NewIngestService creates a new IngestService instance with default tuning
func NewIngestService(
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	store FileStoreInterface,
	extractor TextExtractor,
	embedder EmbeddingClient,
	txRunner TxRunner,
) *IngestService {
	return NewIngestServiceWithConfig(docRepo, chunkRepo, store, extractor, embedder, txRunner, DefaultIngestConfig())
}

// NewIngestServiceWithConfig creates a new IngestService with explicit tuning
func NewIngestServiceWithConfig(
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	store FileStoreInterface,
	extractor TextExtractor,
	embedder EmbeddingClient,
	txRunner TxRunner,
	cfg IngestConfig,
) *IngestService {
	if cfg.Chunking.ChunkSize == 0 && cfg.Chunking.Overlap == 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = DefaultEmbedInterval
	}

	return &IngestService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		txRunner:  txRunner,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Every(cfg.BatchInterval), 1),
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewIngestServiceWithUUIDGen creates a new IngestService with custom UUID generator (for testing)
func NewIngestServiceWithUUIDGen(
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	store FileStoreInterface,
	extractor TextExtractor,
	embedder EmbeddingClient,
	txRunner TxRunner,
	cfg IngestConfig,
	uuidGen UUIDGenerator,
) *IngestService {
	s := NewIngestServiceWithConfig(docRepo, chunkRepo, store, extractor, embedder, txRunner, cfg)
	s.uuidGen = uuidGen
	return s
}

// IngestInput describes a stored file to ingest.
type IngestInput struct {
	UserID       string
	Path         string
	OriginalName string

	// FileType overrides extension sniffing when set.
	FileType string
}

// IngestResult reports the outcome of an ingestion run.
type IngestResult struct {
	Document    *domain.Document
	TotalChunks int

	// Processed counts chunks stored together with their embedding.
	Processed int

	// Failed counts chunks whose embedding or storage did not succeed.
	Failed int
}

// IngestDocument extracts text from a stored file, splits it into chunks and
// embeds them. The document row is written before any chunk work begins, so a
// partially embedded document can be repaired or re-indexed later. Individual
// chunk failures are logged and skipped rather than failing the run.
func (s *IngestService) IngestDocument(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestDocument", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "ingest",
	})
	defer span.End()

	if err := s.cfg.Chunking.Validate(); err != nil {
		return nil, err
	}
	if input.UserID == "" || input.Path == "" {
		return nil, domain.ErrMissingRequiredField
	}

	fileType, err := resolveFileType(input)
	if err != nil {
		return nil, err
	}

	text, size, err := s.extractText(ctx, input.Path, fileType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(
		s.uuidGen.NewString(),
		input.UserID,
		filepath.Base(input.Path),
		input.OriginalName,
		fileType,
		input.Path,
		size,
		now,
	)
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	chunks, err := chunkText(text, s.cfg.Chunking)
	if err != nil {
		return nil, err
	}

	processed, failed, err := s.embedAndStore(ctx, doc.ID, chunks)
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		Document:    doc,
		TotalChunks: len(chunks),
		Processed:   processed,
		Failed:      failed,
	}, nil
}

// Reindex rebuilds all chunks and embeddings of an existing document from its
// stored file. Current chunks are removed only after the file was read, so a
// missing or unreadable file leaves the old index in place.
func (s *IngestService) Reindex(ctx context.Context, userID, documentID string) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Reindex", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "reindex",
	})
	defer span.End()

	if err := s.cfg.Chunking.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && doc.UserID != userID {
		return nil, domain.ErrDocumentNotFound
	}

	text, _, err := s.extractText(ctx, doc.StoragePath, doc.FileType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	if err := s.chunkRepo.DeleteByDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("failed to clear existing chunks: %w", err)
	}

	chunks, err := chunkText(text, s.cfg.Chunking)
	if err != nil {
		return nil, err
	}

	processed, failed, err := s.embedAndStore(ctx, doc.ID, chunks)
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		Document:    doc,
		TotalChunks: len(chunks),
		Processed:   processed,
		Failed:      failed,
	}, nil
}

func resolveFileType(input IngestInput) (domain.FileType, error) {
	if input.FileType != "" {
		fileType := domain.FileType(strings.ToLower(strings.TrimSpace(input.FileType)))
		if !domain.IsValidFileType(fileType) {
			return "", domain.ErrInvalidFileType
		}
		return fileType, nil
	}

	name := input.OriginalName
	if name == "" {
		name = input.Path
	}
	if fileType := domain.FileTypeFromName(name); fileType != "" {
		return fileType, nil
	}

	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return "", domain.NewUnsupportedFileTypeError(filepath.Base(name), domain.FileType(ext))
}

func (s *IngestService) extractText(ctx context.Context, path string, fileType domain.FileType) (string, int64, error) {
	size, err := s.store.Stat(ctx, path)
	if err != nil {
		return "", 0, err
	}

	localPath, cleanup, err := s.store.Fetch(ctx, path)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	text, err := s.extractor.Text(localPath, fileType)
	if err != nil {
		return "", 0, err
	}

	return text, size, nil
}

// embedAndStore embeds chunks in paced batches and persists them in index
// order. A chunk whose embedding fails is still stored so the index sequence
// stays unbroken; its vector is backfilled by the repair worker.
func (s *IngestService) embedAndStore(ctx context.Context, documentID string, chunks []TextChunk) (int, int, error) {
	var processed, failed int

	for start := 0; start < len(chunks); start += s.cfg.BatchSize {
		if err := s.limiter.Wait(ctx); err != nil {
			return processed, failed, err
		}

		end := start + s.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors := make([][]float32, len(batch))
		embedErrs := make([]error, len(batch))

		var wg sync.WaitGroup
		for i, chunk := range batch {
			wg.Add(1)
			go func(i int, content string) {
				defer wg.Done()
				vectors[i], embedErrs[i] = s.embedder.GenerateEmbedding(ctx, content)
			}(i, chunk.Content)
		}
		wg.Wait()

		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}

		for i, chunk := range batch {
			if err := s.storeChunk(ctx, documentID, chunk, vectors[i], embedErrs[i]); err != nil {
				log.Printf("ingest: chunk %d of document %s not stored: %v", chunk.Index, documentID, err)
				failed++
				continue
			}
			if embedErrs[i] != nil {
				log.Printf("ingest: chunk %d of document %s stored without embedding: %v", chunk.Index, documentID, embedErrs[i])
				failed++
				continue
			}
			processed++
		}
	}

	return processed, failed, nil
}

func (s *IngestService) storeChunk(ctx context.Context, documentID string, tc TextChunk, vector []float32, embedErr error) error {
	now := time.Now().UTC()
	chunk := domain.NewChunk(s.uuidGen.NewString(), documentID, tc.Index, tc.Content, tc.TokenCount, tc.Metadata, now)

	if embedErr != nil || vector == nil {
		return s.chunkRepo.CreateChunk(ctx, chunk)
	}

	embedding := &domain.Embedding{
		ID:        s.uuidGen.NewString(),
		ChunkID:   chunk.ID,
		Vector:    vector,
		Model:     s.embedder.Model(),
		CreatedAt: now,
	}

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().CreateChunk(ctx, chunk); err != nil {
			return err
		}
		return repos.Chunks().InsertEmbedding(ctx, embedding)
	})
}
