package domain

// RetrievalHit is an ephemeral search result pairing a chunk with its
// parent document's display name and a relevance score in (0, 1].
// Hits are never persisted.
type RetrievalHit struct {
	ChunkID      string
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Content      string
	TokenCount   int
	Score        float64
}
