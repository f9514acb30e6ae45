package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/telemetry"
)

// SearchRepositoryInterface defines the repository interface for vector search
type SearchRepositoryInterface interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, userID string, limit int) ([]*domain.RetrievalHit, error)
}

// RetrievalService answers similarity queries over ingested documents
type RetrievalService struct {
	searchRepo    SearchRepositoryInterface
	docRepo       DocumentRepositoryInterface
	chunkRepo     ChunkRepositoryInterface
	embedder      EmbeddingClient
	searchLogRepo SearchLogRepository
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(
	searchRepo SearchRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	embedder EmbeddingClient,
) *RetrievalService {
	return &RetrievalService{
		searchRepo: searchRepo,
		docRepo:    docRepo,
		chunkRepo:  chunkRepo,
		embedder:   embedder,
	}
}

// NewRetrievalServiceWithSearchLog creates a RetrievalService that records searches
func NewRetrievalServiceWithSearchLog(
	searchRepo SearchRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	embedder EmbeddingClient,
	searchLogRepo SearchLogRepository,
) *RetrievalService {
	s := NewRetrievalService(searchRepo, docRepo, chunkRepo, embedder)
	s.searchLogRepo = searchLogRepo
	return s
}

type SearchInput struct {
	UserID string
	Query  string
	Limit  int
}

// Search embeds the query and returns the closest chunks by cosine distance.
// A blank query returns an empty result set without calling the embedding API.
func (s *RetrievalService) Search(ctx context.Context, input SearchInput) ([]*domain.RetrievalHit, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "search",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return []*domain.RetrievalHit{}, nil
	}

	start := time.Now()

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.searchRepo.SearchByEmbedding(ctx, embedding, input.UserID, input.Limit)
	if err != nil {
		return nil, err
	}

	// Hits carry previews; the chunk endpoint serves full content.
	for _, hit := range hits {
		hit.Content = previewContent(hit.Content)
	}

	s.logSearch(ctx, input.UserID, query, hits, time.Since(start))

	return hits, nil
}

// previewRunes caps hit content so result sets stay small.
const previewRunes = 300

func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= previewRunes {
		return content
	}
	return string(runes[:previewRunes]) + "..."
}

// logSearch records the search best effort; failures never affect the caller.
func (s *RetrievalService) logSearch(ctx context.Context, userID, query string, hits []*domain.RetrievalHit, took time.Duration) {
	if s.searchLogRepo == nil {
		return
	}

	entry := SearchLogEntry{
		UserID:     userID,
		Query:      query,
		HitCount:   len(hits),
		DurationMs: int(took.Milliseconds()),
	}
	if len(hits) > 0 {
		top := hits[0].Score
		entry.TopScore = &top
	}

	if _, err := s.searchLogRepo.CreateSearchLog(ctx, entry); err != nil {
		log.Printf("retrieval: search log not written: %v", err)
	}
}

// DocumentContent is a document's extracted text reassembled from its chunks.
type DocumentContent struct {
	Document   *domain.Document
	Content    string
	ChunkCount int
}

// GetDocumentContent joins a document's chunks back into one text, in chunk
// index order. A document that has no chunks yet is reported as not indexed.
func (s *RetrievalService) GetDocumentContent(ctx context.Context, userID, documentID string) (*DocumentContent, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.GetDocumentContent", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "get_content",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && doc.UserID != userID {
		return nil, domain.ErrDocumentNotFound
	}

	chunks, err := s.chunkRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.ErrDocumentNotIndexed
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}

	return &DocumentContent{
		Document:   doc,
		Content:    strings.Join(parts, "\n\n"),
		ChunkCount: len(chunks),
	}, nil
}

// GetChunk retrieves a single chunk of a document. Chunks that belong to a
// different document are reported as not found.
func (s *RetrievalService) GetChunk(ctx context.Context, userID, documentID, chunkID string) (*domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.GetChunk", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "get_chunk",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && doc.UserID != userID {
		return nil, domain.ErrDocumentNotFound
	}

	chunk, err := s.chunkRepo.GetByID(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	if chunk.DocumentID != documentID {
		return nil, domain.ErrChunkNotFound
	}

	return chunk, nil
}
