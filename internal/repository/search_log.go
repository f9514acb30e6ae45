package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rateboard-io/corpus/internal/service"
)

// SearchLogRepository stores search logs for relevance evaluation.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (user_id, query, hit_count, top_score, duration_ms)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		nullableString(entry.UserID),
		entry.Query,
		entry.HitCount,
		entry.TopScore,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
