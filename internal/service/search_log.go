package service

import "context"

// SearchLogEntry captures a search request and its outcome.
type SearchLogEntry struct {
	UserID     string
	Query      string
	HitCount   int
	TopScore   *float64
	DurationMs int
}

// SearchLogRepository persists search logs for relevance evaluation.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}
