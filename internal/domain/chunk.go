package domain

import (
	"fmt"
	"time"
)

// Chunk represents one retrievable slice of a document's extracted text.
// Indices are assigned contiguously from 0 in extraction order and are
// never reassigned; re-indexing deletes and regenerates the full set.
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	TokenCount int
	Metadata   map[string]string
	CreatedAt  time.Time
}

// NewChunk creates a new Chunk instance
func NewChunk(
	id, documentID string,
	chunkIndex int,
	content string,
	tokenCount int,
	metadata map[string]string,
	createdAt time.Time,
) *Chunk {
	return &Chunk{
		ID:         id,
		DocumentID: documentID,
		ChunkIndex: chunkIndex,
		Content:    content,
		TokenCount: tokenCount,
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}

	if c.Content == "" {
		return fmt.Errorf("chunk Content is required")
	}

	if c.TokenCount <= 0 {
		return fmt.Errorf("chunk TokenCount must be greater than 0")
	}

	return nil
}
