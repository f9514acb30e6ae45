package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rateboard-io/corpus/internal/api"
	"github.com/rateboard-io/corpus/internal/api/middleware"
	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/service"
)

type IngestService interface {
	IngestDocument(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
	Reindex(ctx context.Context, userID, documentID string) (*service.IngestResult, error)
}

type DocumentService interface {
	ListDocuments(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

type ContentService interface {
	GetDocumentContent(ctx context.Context, userID, documentID string) (*service.DocumentContent, error)
	GetChunk(ctx context.Context, userID, documentID, chunkID string) (*domain.Chunk, error)
}

type DocumentsHandler struct {
	ingest  IngestService
	docs    DocumentService
	content ContentService
}

func NewDocumentsHandler(ingest IngestService, docs DocumentService, content ContentService) *DocumentsHandler {
	return &DocumentsHandler{
		ingest:  ingest,
		docs:    docs,
		content: content,
	}
}

type IngestDocumentRequest struct {
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type,omitempty"`
}

type DocumentResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	StoragePath  string `json:"storage_path"`
	SizeBytes    int64  `json:"size_bytes"`
	CreatedAt    string `json:"created_at"`
}

type IngestResultResponse struct {
	Document    *DocumentResponse `json:"document"`
	TotalChunks int               `json:"total_chunks"`
	Processed   int               `json:"processed_chunks"`
	Failed      int               `json:"failed_chunks"`
}

type ChunkResponse struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	ChunkIndex int               `json:"chunk_index"`
	Content    string            `json:"content"`
	TokenCount int               `json:"token_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

type DocumentContentResponse struct {
	DocumentID   string `json:"document_id"`
	OriginalName string `json:"original_name"`
	Content      string `json:"content"`
	ChunkCount   int    `json:"chunk_count"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

type DeleteDocumentResponse struct {
	Deleted bool `json:"deleted"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:           d.ID,
		UserID:       d.UserID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		FileType:     string(d.FileType),
		StoragePath:  d.StoragePath,
		SizeBytes:    d.SizeBytes,
		CreatedAt:    d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ingestResultToResponse(result *service.IngestResult) *IngestResultResponse {
	return &IngestResultResponse{
		Document:    documentToResponse(result.Document),
		TotalChunks: result.TotalChunks,
		Processed:   result.Processed,
		Failed:      result.Failed,
	}
}

func chunkToResponse(c *domain.Chunk) *ChunkResponse {
	return &ChunkResponse{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		ChunkIndex: c.ChunkIndex,
		Content:    c.Content,
		TokenCount: c.TokenCount,
		Metadata:   c.Metadata,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *DocumentsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Path == "" {
		api.Error(w, http.StatusBadRequest, "path is required")
		return
	}

	input := service.IngestInput{
		UserID:       userID,
		Path:         req.Path,
		OriginalName: req.OriginalName,
		FileType:     req.FileType,
	}

	result, err := h.ingest.IngestDocument(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestResultToResponse(result))
}

func (h *DocumentsHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "documentID is required")
		return
	}

	result, err := h.ingest.Reindex(r.Context(), userID, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ingestResultToResponse(result))
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.docs.ListDocuments(r.Context(), service.ListDocumentsInput{
		UserID: userID,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(output.Items))
	for i, doc := range output.Items {
		items[i] = documentToResponse(doc)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "documentID is required")
		return
	}

	doc, err := h.docs.GetDocument(r.Context(), userID, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentsHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "documentID is required")
		return
	}

	content, err := h.content.GetDocumentContent(r.Context(), userID, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DocumentContentResponse{
		DocumentID:   content.Document.ID,
		OriginalName: content.Document.OriginalName,
		Content:      content.Content,
		ChunkCount:   content.ChunkCount,
	})
}

func (h *DocumentsHandler) GetChunk(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	chunkID := chi.URLParam(r, "chunkID")
	if documentID == "" || chunkID == "" {
		api.Error(w, http.StatusBadRequest, "documentID and chunkID are required")
		return
	}

	chunk, err := h.content.GetChunk(r.Context(), userID, documentID, chunkID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chunkToResponse(chunk))
}

func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "documentID is required")
		return
	}

	if err := h.docs.DeleteDocument(r.Context(), userID, documentID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteDocumentResponse{Deleted: true})
}
