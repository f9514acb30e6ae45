package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Search(ctx context.Context, input service.SearchInput) ([]*domain.RetrievalHit, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RetrievalHit), args.Error(1)
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewSearchHandler(mockSvc)

	hits := []*domain.RetrievalHit{
		{
			ChunkID:      "chunk-1",
			DocumentID:   "doc-123",
			DocumentName: "Seasonal rates 2026.txt",
			ChunkIndex:   0,
			Content:      "Winter season rates apply from December through March.",
			TokenCount:   12,
			Score:        0.91,
		},
		{
			ChunkID:      "chunk-2",
			DocumentID:   "doc-123",
			DocumentName: "Seasonal rates 2026.txt",
			ChunkIndex:   3,
			Content:      "Shoulder season discounts require a two night minimum.",
			TokenCount:   11,
			Score:        0.74,
		},
	}
	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.UserID == "user-456" && input.Query == "winter rates" && input.Limit == 5
	})).Return(hits, nil)

	body := `{"query":"winter rates","limit":5}`
	req := requestWithUserID(http.MethodPost, "/v1/search", []byte(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])
	respHits := data["hits"].([]interface{})
	require.Len(t, respHits, 2)
	first := respHits[0].(map[string]interface{})
	assert.Equal(t, "chunk-1", first["chunk_id"])
	assert.Equal(t, "Seasonal rates 2026.txt", first["document_name"])
	assert.InDelta(t, 0.91, first["score"], 0.0001)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_EmptyQuery(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.Query == ""
	})).Return([]*domain.RetrievalHit{}, nil)

	body := `{"query":""}`
	req := requestWithUserID(http.MethodPost, "/v1/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
	assert.Len(t, data["hits"], 0)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_Unauthorized(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewSearchHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchHandler_Search_InvalidJSON(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewSearchHandler(mockSvc)

	req := requestWithUserID(http.MethodPost, "/v1/search", []byte(`{invalid`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSearchHandler_Search_ServiceError(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	body := `{"query":"corporate rates"}`
	req := requestWithUserID(http.MethodPost, "/v1/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	mockSvc.AssertExpectations(t)
}
