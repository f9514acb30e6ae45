package middleware

import (
	"fmt"
	"net/http"

	"github.com/rateboard-io/corpus/internal/api"
)

// MaxBodyBytes caps request body size. Requests that declare a larger
// Content-Length are rejected before the handler runs; chunked bodies are
// cut off at the limit by http.MaxBytesReader.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	tooLarge := fmt.Sprintf("request body exceeds %d bytes", limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
