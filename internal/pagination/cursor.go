// Package pagination implements keyset cursors for list endpoints ordered
// by (created_at, id) descending.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor marks the last row of the previous page.
type Cursor struct {
	ID        string
	CreatedAt time.Time
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// EncodeCursor packs the keyset position into an opaque URL-safe token.
func EncodeCursor(id string, createdAt time.Time) string {
	if id == "" {
		return ""
	}
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty token
// decodes to nil, which reads as the first page.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	created, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{ID: id, CreatedAt: createdAt}, nil
}
