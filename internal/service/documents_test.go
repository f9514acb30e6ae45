package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestDocumentService_ListDocuments tests cursor pagination plumbing
func TestDocumentService_ListDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the default limit", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		mockStore := new(MockFileStore)

		svc := NewDocumentService(mockDocRepo, mockStore)

		page := &DocumentPageResult{
			Items:      []*domain.Document{{ID: "doc-1", UserID: "user-1"}},
			NextCursor: "",
			HasMore:    false,
		}
		mockDocRepo.On("ListByUserWithCursor", mock.Anything, "user-1", (*pagination.Cursor)(nil), 20).Return(page, nil)

		output, err := svc.ListDocuments(ctx, ListDocumentsInput{UserID: "user-1"})

		require.NoError(t, err)
		assert.Len(t, output.Items, 1)
		assert.False(t, output.HasMore)
		mockDocRepo.AssertExpectations(t)
	})

	t.Run("passes the decoded cursor through", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		mockStore := new(MockFileStore)

		svc := NewDocumentService(mockDocRepo, mockStore)

		ts := time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)
		encoded := pagination.EncodeCursor("doc-5", ts)

		page := &DocumentPageResult{Items: []*domain.Document{}, HasMore: false}
		mockDocRepo.On("ListByUserWithCursor", mock.Anything, "user-1", mock.MatchedBy(func(c *pagination.Cursor) bool {
			return c != nil && c.ID == "doc-5" && c.CreatedAt.Equal(ts)
		}), 50).Return(page, nil)

		_, err := svc.ListDocuments(ctx, ListDocumentsInput{UserID: "user-1", Cursor: encoded, Limit: 50})

		require.NoError(t, err)
		mockDocRepo.AssertExpectations(t)
	})
}

// TestDocumentService_GetDocument tests ownership masking
func TestDocumentService_GetDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the owner's document", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		svc := NewDocumentService(mockDocRepo, new(MockFileStore))

		doc := &domain.Document{ID: "doc-1", UserID: "user-1"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)

		result, err := svc.GetDocument(ctx, "user-1", "doc-1")

		require.NoError(t, err)
		assert.Equal(t, doc, result)
	})

	t.Run("masks another user's document as not found", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		svc := NewDocumentService(mockDocRepo, new(MockFileStore))

		doc := &domain.Document{ID: "doc-1", UserID: "someone-else"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)

		result, err := svc.GetDocument(ctx, "user-1", "doc-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
		assert.Nil(t, result)
	})

	t.Run("empty user skips the owner check", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		svc := NewDocumentService(mockDocRepo, new(MockFileStore))

		doc := &domain.Document{ID: "doc-1", UserID: "someone-else"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)

		result, err := svc.GetDocument(ctx, "", "doc-1")

		require.NoError(t, err)
		assert.Equal(t, doc, result)
	})
}

// TestDocumentService_DeleteDocument tests deletion and file cleanup
func TestDocumentService_DeleteDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the rows and the stored file", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		mockStore := new(MockFileStore)
		svc := NewDocumentService(mockDocRepo, mockStore)

		doc := &domain.Document{ID: "doc-1", UserID: "user-1", StoragePath: "uploads/rates.txt"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		mockDocRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
		mockStore.On("Delete", mock.Anything, "uploads/rates.txt").Return(nil)

		err := svc.DeleteDocument(ctx, "user-1", "doc-1")

		require.NoError(t, err)
		mockDocRepo.AssertExpectations(t)
		mockStore.AssertExpectations(t)
	})

	t.Run("file removal failure does not fail the delete", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		mockStore := new(MockFileStore)
		svc := NewDocumentService(mockDocRepo, mockStore)

		doc := &domain.Document{ID: "doc-1", UserID: "user-1", StoragePath: "uploads/rates.txt"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		mockDocRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
		mockStore.On("Delete", mock.Anything, "uploads/rates.txt").Return(errors.New("permission denied"))

		err := svc.DeleteDocument(ctx, "user-1", "doc-1")

		require.NoError(t, err)
	})

	t.Run("masks another user's document as not found", func(t *testing.T) {
		mockDocRepo := new(MockDocumentRepository)
		mockStore := new(MockFileStore)
		svc := NewDocumentService(mockDocRepo, mockStore)

		doc := &domain.Document{ID: "doc-1", UserID: "someone-else"}
		mockDocRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)

		err := svc.DeleteDocument(ctx, "user-1", "doc-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
		mockDocRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
