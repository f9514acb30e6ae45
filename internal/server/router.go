package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rateboard-io/corpus/internal/api"
	"github.com/rateboard-io/corpus/internal/api/handlers"
	"github.com/rateboard-io/corpus/internal/api/middleware"
)

type RouterConfig struct {
	DocumentsHandler *handlers.DocumentsHandler
	SearchHandler    *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentsHandler.Ingest)
			r.Get("/", cfg.DocumentsHandler.List)
			r.Get("/{documentID}", cfg.DocumentsHandler.Get)
			r.Delete("/{documentID}", cfg.DocumentsHandler.Delete)
			r.Post("/{documentID}/reindex", cfg.DocumentsHandler.Reindex)
			r.Get("/{documentID}/content", cfg.DocumentsHandler.GetContent)
			r.Get("/{documentID}/chunks/{chunkID}", cfg.DocumentsHandler.GetChunk)
		})

		r.Post("/search", cfg.SearchHandler.Search)
	})

	return r
}
