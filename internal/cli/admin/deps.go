package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rateboard-io/corpus/internal/config"
	"github.com/rateboard-io/corpus/internal/database"
	"github.com/rateboard-io/corpus/internal/extract"
	"github.com/rateboard-io/corpus/internal/openai"
	"github.com/rateboard-io/corpus/internal/repository"
	"github.com/rateboard-io/corpus/internal/service"
	"github.com/rateboard-io/corpus/internal/storage"
	goopenai "github.com/sashabaranov/go-openai"
)

func getDBPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	return cfg, pool, nil
}

func buildFileStore(ctx context.Context, cfg *config.Config) (service.FileStoreInterface, error) {
	if cfg.HasS3() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3StoreConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}
	return localStore, nil
}

func buildEmbedder(cfg *config.Config) service.EmbeddingClient {
	if !cfg.HasOpenAI() {
		return &disabledEmbedder{}
	}
	return openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
}

func buildIngestService(cfg *config.Config, pool *pgxpool.Pool, store service.FileStoreInterface, embedder service.EmbeddingClient) *service.IngestService {
	return service.NewIngestServiceWithConfig(
		repository.NewDocumentRepository(pool),
		repository.NewChunkRepository(pool),
		store,
		extract.New(),
		embedder,
		repository.NewTxRunner(pool),
		service.IngestConfig{
			Chunking: service.ChunkConfig{
				ChunkSize: cfg.ChunkSize,
				Overlap:   cfg.ChunkOverlap,
			},
			BatchSize:     cfg.EmbedBatchSize,
			BatchInterval: cfg.EmbedInterval,
		},
	)
}

func buildRetrievalService(pool *pgxpool.Pool, embedder service.EmbeddingClient) *service.RetrievalService {
	return service.NewRetrievalServiceWithSearchLog(
		repository.NewSearchRepository(pool),
		repository.NewDocumentRepository(pool),
		repository.NewChunkRepository(pool),
		embedder,
		repository.NewSearchLogRepository(pool),
	)
}
