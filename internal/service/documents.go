package service

import (
	"context"
	"log"

	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/pagination"
	"github.com/rateboard-io/corpus/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// DocumentService handles listing and lifecycle of ingested documents
type DocumentService struct {
	docRepo DocumentRepositoryInterface
	store   FileStoreInterface
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(docRepo DocumentRepositoryInterface, store FileStoreInterface) *DocumentService {
	return &DocumentService{
		docRepo: docRepo,
		store:   store,
	}
}

type ListDocumentsInput struct {
	UserID string
	Cursor string
	Limit  int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// ListDocuments retrieves a user's documents, newest first
func (s *DocumentService) ListDocuments(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.ListDocuments", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	result, err := s.docRepo.ListByUserWithCursor(ctx, input.UserID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// GetDocument retrieves a document owned by the given user. Documents of
// other users are reported as not found. An empty userID skips the owner
// check for administrative access.
func (s *DocumentService) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.GetDocument", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "get",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && doc.UserID != userID {
		return nil, domain.ErrDocumentNotFound
	}

	return doc, nil
}

// DeleteDocument removes a document together with its chunks and embeddings.
// The stored file is removed best effort after the database rows are gone.
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.DeleteDocument", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if userID != "" && doc.UserID != userID {
		return domain.ErrDocumentNotFound
	}

	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		return err
	}

	if s.store != nil {
		if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
			log.Printf("documents: stored file for %s not removed: %v", documentID, err)
		}
	}

	return nil
}
