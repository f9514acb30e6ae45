package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rateboard-io/corpus/internal/domain"
)

// ChunkRepository handles persistence of document chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// CreateChunk inserts a single chunk row
func (r *ChunkRepository) CreateChunk(ctx context.Context, c *domain.Chunk) error {
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO document_chunks (id, document_id, chunk_index, content, token_count, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID,
		c.DocumentID,
		c.ChunkIndex,
		c.Content,
		c.TokenCount,
		metadataJSON,
		c.CreatedAt,
	)
	return err
}

// InsertEmbedding stores the vector for a chunk
func (r *ChunkRepository) InsertEmbedding(ctx context.Context, e *domain.Embedding) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chunk_embeddings (id, chunk_id, embedding, model, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID,
		e.ChunkID,
		pgvector.NewVector(e.Vector),
		e.Model,
		e.CreatedAt,
	)
	return err
}

// GetByID retrieves a single chunk by its ID
func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	var metadataJSON []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, chunk_index, content, token_count, metadata, created_at
		 FROM document_chunks
		 WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.TokenCount, &metadataJSON, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	if err := unmarshalChunkMetadata(metadataJSON, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByDocument retrieves all chunks of a document ordered by chunk index
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, token_count, metadata, created_at
		 FROM document_chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

// DeleteByDocument removes all chunks of a document; embeddings cascade
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

// ListMissingEmbeddings returns chunks that have no embedding row yet, oldest
// first, so the repair worker can backfill vectors dropped during ingestion.
func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, c.chunk_index, c.content, c.token_count, c.metadata, c.created_at
		 FROM document_chunks c
		 LEFT JOIN chunk_embeddings e ON e.chunk_id = c.id
		 WHERE e.id IS NULL
		 ORDER BY c.created_at ASC, c.chunk_index ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

func scanChunkRows(rows pgx.Rows) ([]*domain.Chunk, error) {
	var items []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var metadataJSON []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.TokenCount, &metadataJSON, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalChunkMetadata(metadataJSON, &c); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

func unmarshalChunkMetadata(raw []byte, c *domain.Chunk) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &c.Metadata)
}
