package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rateboard-io/corpus/internal/domain"
)

// SearchRepository runs vector similarity queries over chunk embeddings.
type SearchRepository struct {
	pool *pgxpool.Pool
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

// SearchByEmbedding returns the chunks closest to the query vector by cosine
// distance, mapped to a score in (0, 1]. An empty userID skips the owner filter.
func (r *SearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, userID string, limit int) ([]*domain.RetrievalHit, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT c.id, c.document_id, d.filename, d.original_name, c.chunk_index, c.content, c.token_count,
		       1.0 / (1.0 + (e.embedding <=> $1)) AS score
		FROM document_chunks c
		JOIN chunk_embeddings e ON e.chunk_id = c.id
		JOIN documents d ON d.id = c.document_id`
	args := []interface{}{vec}

	if userID != "" {
		query += `
		WHERE d.user_id = $2
		ORDER BY score DESC
		LIMIT $3`
		args = append(args, userID, limit)
	} else {
		query += `
		ORDER BY score DESC
		LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]*domain.RetrievalHit, 0)
	for rows.Next() {
		var hit domain.RetrievalHit
		var filename, originalName string
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &filename, &originalName, &hit.ChunkIndex, &hit.Content, &hit.TokenCount, &hit.Score); err != nil {
			return nil, err
		}
		hit.DocumentName = originalName
		if hit.DocumentName == "" {
			hit.DocumentName = filename
		}
		hits = append(hits, &hit)
	}

	return hits, rows.Err()
}
