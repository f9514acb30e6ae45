package domain

import (
	"fmt"
	"time"
)

// Embedding represents the fixed-length vector generated for one chunk.
// A chunk has at most one embedding; it may lack one after a per-chunk
// generation failure until the repair worker fills it in.
type Embedding struct {
	ID        string
	ChunkID   string
	Vector    []float32
	Model     string
	CreatedAt time.Time
}

// ValidateEmbedding validates an Embedding instance
func ValidateEmbedding(e *Embedding) error {
	if e == nil {
		return fmt.Errorf("embedding cannot be nil")
	}

	if e.ChunkID == "" {
		return fmt.Errorf("embedding ChunkID is required")
	}

	if len(e.Vector) == 0 {
		return fmt.Errorf("embedding Vector is required")
	}

	return nil
}
