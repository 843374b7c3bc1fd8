package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sattva-labs/sattva/internal/api"
	"github.com/sattva-labs/sattva/internal/api/handlers"
	"github.com/sattva-labs/sattva/internal/api/middleware"
)

// IndexStatus reports whether the document index is available, so the
// health endpoint can surface degraded retrieval.
type IndexStatus interface {
	Loaded() bool
}

type RouterConfig struct {
	ChatHandler    *handlers.ChatHandler
	SessionHandler *handlers.SessionHandler
	Index          IndexStatus
	CORSOrigin     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		indexState := "not_loaded"
		if cfg.Index != nil && cfg.Index.Loaded() {
			indexState = "loaded"
		}
		api.JSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"index":  indexState,
		})
	})

	r.Post("/chat", cfg.ChatHandler.Chat)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", cfg.SessionHandler.List)
		r.Post("/", cfg.SessionHandler.Create)
		r.Get("/{id}/history", cfg.SessionHandler.History)
		r.Post("/{id}/clear", cfg.SessionHandler.Clear)
		r.Delete("/{id}", cfg.SessionHandler.Delete)
	})

	return r
}
