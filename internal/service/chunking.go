package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/rateboard-io/corpus/internal/domain"
)

// charsPerToken approximates how many characters one token spans. Token
// counts derived from it are sizing estimates, not exact tokenizer output.
const charsPerToken = 4

// ChunkConfig controls how extracted text is split for embedding.
// ChunkSize and Overlap are measured in approximate tokens.
type ChunkConfig struct {
	ChunkSize int
	Overlap   int
}

// DefaultChunkConfig provides the defaults used for document ingestion.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 1000,
		Overlap:   150,
	}
}

// Validate rejects configurations whose sliding window could not advance.
// This runs before any chunk is produced; the step arithmetic never has to
// cope with a non-positive step.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 || c.Overlap < 0 {
		return domain.NewDomainError(domain.ErrCodeValidation, "chunk size must be positive and overlap non-negative")
	}
	if c.wordsPerChunk() < 1 {
		return domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("chunk size %d is below one word (%d chars)", c.ChunkSize, charsPerToken))
	}
	if c.overlapWords() >= c.wordsPerChunk() {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

func (c ChunkConfig) wordsPerChunk() int {
	return c.ChunkSize / charsPerToken
}

func (c ChunkConfig) overlapWords() int {
	return c.Overlap / charsPerToken
}

// TextChunk is one chunker output: content plus sizing metadata, not yet
// bound to a document.
type TextChunk struct {
	Index      int
	Content    string
	TokenCount int
	Metadata   map[string]string
}

// chunkText slides a window of wordsPerChunk words across the text,
// advancing by wordsPerChunk-overlapWords each step. The split keeps empty
// words from runs of spaces, so a window can come up all whitespace; such
// windows are dropped without consuming a chunk index.
func chunkText(text string, cfg ChunkConfig) ([]TextChunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	words := strings.Split(text, " ")
	wordsPerChunk := cfg.wordsPerChunk()
	step := wordsPerChunk - cfg.overlapWords()

	chunks := make([]TextChunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := start + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}

		content := strings.TrimSpace(strings.Join(words[start:end], " "))
		if content == "" {
			if end >= len(words) {
				break
			}
			continue
		}

		index := len(chunks)
		chunks = append(chunks, TextChunk{
			Index:      index,
			Content:    content,
			TokenCount: estimateTokens(content),
			Metadata:   map[string]string{"section": fmt.Sprintf("part %d", index+1)},
		})

		if end >= len(words) {
			break
		}
	}

	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	return chunks, nil
}

// estimateTokens approximates the token count of text as ceil(len/4).
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / float64(charsPerToken)))
}
