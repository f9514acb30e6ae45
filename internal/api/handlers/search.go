package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rateboard-io/corpus/internal/api"
	"github.com/rateboard-io/corpus/internal/api/middleware"
	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/service"
)

type RetrievalService interface {
	Search(ctx context.Context, input service.SearchInput) ([]*domain.RetrievalHit, error)
}

type SearchHandler struct {
	retrieval RetrievalService
}

func NewSearchHandler(retrieval RetrievalService) *SearchHandler {
	return &SearchHandler{retrieval: retrieval}
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SearchHitResponse struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Content      string  `json:"content"`
	TokenCount   int     `json:"token_count"`
	Score        float64 `json:"score"`
}

type SearchResponse struct {
	Hits  []SearchHitResponse `json:"hits"`
	Count int                 `json:"count"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hits, err := h.retrieval.Search(r.Context(), service.SearchInput{
		UserID: userID,
		Query:  req.Query,
		Limit:  req.Limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := SearchResponse{
		Hits:  make([]SearchHitResponse, len(hits)),
		Count: len(hits),
	}
	for i, hit := range hits {
		resp.Hits[i] = SearchHitResponse{
			ChunkID:      hit.ChunkID,
			DocumentID:   hit.DocumentID,
			DocumentName: hit.DocumentName,
			ChunkIndex:   hit.ChunkIndex,
			Content:      hit.Content,
			TokenCount:   hit.TokenCount,
			Score:        hit.Score,
		}
	}

	api.Success(w, http.StatusOK, resp)
}
