package server

import (
	"net/http"
	"time"

	"github.com/cloo-solutions/videochat/internal/api"
	"github.com/cloo-solutions/videochat/internal/api/handlers"
	"github.com/cloo-solutions/videochat/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	SessionHandler *handlers.SessionHandler

	// Zero disables the bound.
	AskTimeout    time.Duration
	IngestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", cfg.SessionHandler.Create)
		r.Get("/{id}", cfg.SessionHandler.Get)
		r.Delete("/{id}", cfg.SessionHandler.Delete)
		r.With(middleware.Timeout(cfg.IngestTimeout)).Post("/{id}/ingest", cfg.SessionHandler.Ingest)
		r.With(middleware.Timeout(cfg.AskTimeout)).Post("/{id}/ask", cfg.SessionHandler.Ask)
		r.Post("/{id}/reset", cfg.SessionHandler.Reset)
		r.Get("/{id}/history", cfg.SessionHandler.History)
	})

	return r
}
