package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSearchRepository is a mock implementation of SearchRepositoryInterface
type MockSearchRepository struct {
	mock.Mock
}

func (m *MockSearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, userID string, limit int) ([]*domain.RetrievalHit, error) {
	args := m.Called(ctx, embedding, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RetrievalHit), args.Error(1)
}

// MockSearchLogRepository is a mock implementation of SearchLogRepository
type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

// TestRetrievalService_Search tests the Search method
func TestRetrievalService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("returns empty result for a blank query without embedding", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		hits, err := svc.Search(ctx, SearchInput{UserID: "user-1", Query: "   \t  "})

		require.NoError(t, err)
		assert.Empty(t, hits)
		assert.NotNil(t, hits)

		mockEmbedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
		mockSearchRepo.AssertNotCalled(t, "SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("embeds the trimmed query and returns scored hits", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		vector := []float32{0.7, 0.1}
		expected := []*domain.RetrievalHit{
			{ChunkID: "chunk-1", DocumentID: "doc-1", DocumentName: "rates.txt", ChunkIndex: 0, Content: "summer rates", Score: 0.91},
			{ChunkID: "chunk-2", DocumentID: "doc-1", DocumentName: "rates.txt", ChunkIndex: 3, Content: "winter rates", Score: 0.58},
		}

		mockEmbedder.On("GenerateEmbedding", mock.Anything, "summer pricing").Return(vector, nil)
		mockSearchRepo.On("SearchByEmbedding", mock.Anything, vector, "user-1", 5).Return(expected, nil)

		hits, err := svc.Search(ctx, SearchInput{UserID: "user-1", Query: "  summer pricing \n", Limit: 5})

		require.NoError(t, err)
		assert.Equal(t, expected, hits)

		mockEmbedder.AssertExpectations(t)
		mockSearchRepo.AssertExpectations(t)
	})

	t.Run("truncates long hit content to a preview", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		long := strings.Repeat("ä", previewRunes+40)
		mockEmbedder.On("GenerateEmbedding", mock.Anything, "spa access").Return([]float32{0.3}, nil)
		mockSearchRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, "user-1", 0).Return([]*domain.RetrievalHit{
			{ChunkID: "chunk-1", Content: long, Score: 0.77},
			{ChunkID: "chunk-2", Content: "short enough", Score: 0.64},
		}, nil)

		hits, err := svc.Search(ctx, SearchInput{UserID: "user-1", Query: "spa access"})

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, strings.Repeat("ä", previewRunes)+"...", hits[0].Content)
		assert.Equal(t, "short enough", hits[1].Content)
	})

	t.Run("records the search when a log repository is configured", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)
		mockSearchLogRepo := new(MockSearchLogRepository)

		svc := NewRetrievalServiceWithSearchLog(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder, mockSearchLogRepo)

		hitsFromRepo := []*domain.RetrievalHit{
			{ChunkID: "chunk-1", Score: 0.82},
		}

		mockEmbedder.On("GenerateEmbedding", mock.Anything, "breakfast policy").Return([]float32{0.2}, nil)
		mockSearchRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, "user-1", 0).Return(hitsFromRepo, nil)
		mockSearchLogRepo.On("CreateSearchLog", mock.Anything, mock.MatchedBy(func(entry SearchLogEntry) bool {
			return entry.UserID == "user-1" &&
				entry.Query == "breakfast policy" &&
				entry.HitCount == 1 &&
				entry.TopScore != nil && *entry.TopScore == 0.82
		})).Return("log-1", nil)

		hits, err := svc.Search(ctx, SearchInput{UserID: "user-1", Query: "breakfast policy"})

		require.NoError(t, err)
		assert.Len(t, hits, 1)
		mockSearchLogRepo.AssertExpectations(t)
	})

	t.Run("search log failure does not fail the search", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)
		mockSearchLogRepo := new(MockSearchLogRepository)

		svc := NewRetrievalServiceWithSearchLog(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder, mockSearchLogRepo)

		mockEmbedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.2}, nil)
		mockSearchRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]*domain.RetrievalHit{}, nil)
		mockSearchLogRepo.On("CreateSearchLog", mock.Anything, mock.Anything).Return("", errors.New("insert failed"))

		hits, err := svc.Search(ctx, SearchInput{UserID: "user-1", Query: "cancellation"})

		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("returns error when the embedding call fails", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		mockEmbedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("api unavailable"))

		hits, err := svc.Search(ctx, SearchInput{UserID: "user-1", Query: "parking"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to embed query")
		assert.Nil(t, hits)
		mockSearchRepo.AssertNotCalled(t, "SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

// TestRetrievalService_GetDocumentContent tests chunk reassembly
func TestRetrievalService_GetDocumentContent(t *testing.T) {
	ctx := context.Background()

	t.Run("joins chunks in index order", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		doc := &domain.Document{ID: "doc-1", UserID: "user-1", Filename: "rates.txt"}
		chunks := []*domain.Chunk{
			{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 0, Content: "Standard rooms from EUR 99."},
			{ID: "chunk-2", DocumentID: "doc-1", ChunkIndex: 1, Content: "Suites from EUR 189."},
			{ID: "chunk-3", DocumentID: "doc-1", ChunkIndex: 2, Content: "Breakfast included."},
		}

		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		mockChunkRepo.On("ListByDocument", mock.Anything, "doc-1").Return(chunks, nil)

		content, err := svc.GetDocumentContent(ctx, "user-1", "doc-1")

		require.NoError(t, err)
		assert.Equal(t, "Standard rooms from EUR 99.\n\nSuites from EUR 189.\n\nBreakfast included.", content.Content)
		assert.Equal(t, 3, content.ChunkCount)
		assert.Equal(t, doc, content.Document)
	})

	t.Run("document without chunks is not indexed", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		doc := &domain.Document{ID: "doc-1", UserID: "user-1"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		mockChunkRepo.On("ListByDocument", mock.Anything, "doc-1").Return([]*domain.Chunk{}, nil)

		content, err := svc.GetDocumentContent(ctx, "user-1", "doc-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDocumentNotIndexed)
		assert.Nil(t, content)
	})

	t.Run("masks another user's document as not found", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		doc := &domain.Document{ID: "doc-1", UserID: "someone-else"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)

		content, err := svc.GetDocumentContent(ctx, "user-1", "doc-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
		assert.Nil(t, content)
		mockChunkRepo.AssertNotCalled(t, "ListByDocument", mock.Anything, mock.Anything)
	})
}

// TestRetrievalService_GetChunk tests single chunk retrieval
func TestRetrievalService_GetChunk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the chunk when it belongs to the document", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		doc := &domain.Document{ID: "doc-1", UserID: "user-1"}
		chunk := &domain.Chunk{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 2, Content: "late checkout until 14:00"}

		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		mockChunkRepo.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)

		result, err := svc.GetChunk(ctx, "user-1", "doc-1", "chunk-1")

		require.NoError(t, err)
		assert.Equal(t, chunk, result)
	})

	t.Run("chunk of a different document is not found", func(t *testing.T) {
		mockSearchRepo := new(MockSearchRepository)
		mockDocRepo := new(MockDocumentRepository)
		mockChunkRepo := new(MockChunkRepository)
		mockEmbedder := new(MockEmbeddingClient)

		svc := NewRetrievalService(mockSearchRepo, mockDocRepo, mockChunkRepo, mockEmbedder)

		doc := &domain.Document{ID: "doc-1", UserID: "user-1"}
		chunk := &domain.Chunk{ID: "chunk-9", DocumentID: "doc-2", ChunkIndex: 0}

		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		mockChunkRepo.On("GetByID", mock.Anything, "chunk-9").Return(chunk, nil)

		result, err := svc.GetChunk(ctx, "user-1", "doc-1", "chunk-9")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrChunkNotFound)
		assert.Nil(t, result)
	})
}
