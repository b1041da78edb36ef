// Package server exposes the expense tracker as a JSON REST API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kaasu-app/kaasu/internal/database"
	"github.com/kaasu-app/kaasu/internal/logger"
	"github.com/kaasu-app/kaasu/internal/repository"
)

// Options configures a Server.
type Options struct {
	Addr        string
	AllowOrigin string

	// InitStore backs POST /api/init-db. Must be idempotent. Nil disables
	// bootstrap (the endpoint still answers 204).
	InitStore func(context.Context) error
}

// Server wires repositories to HTTP handlers.
type Server struct {
	opts       Options
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
	expenses   *repository.ExpenseRepository
	httpServer *http.Server
}

// New creates a Server over the given database handle.
func New(db database.PGXDB, opts Options) *Server {
	s := &Server{
		opts:       opts,
		categories: repository.NewCategoryRepository(db),
		tags:       repository.NewTagRepository(db),
		expenses:   repository.NewExpenseRepository(db),
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the routed handler with logging, CORS and tracing applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/init-db", s.handleInitDB)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/tags", s.handleListTags)
	mux.HandleFunc("POST /api/tags", s.handleCreateTag)
	mux.HandleFunc("DELETE /api/tags/{id}", s.handleDeleteTag)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var handler http.Handler = mux
	handler = corsMiddleware(s.opts.AllowOrigin, handler)
	handler = requestLogger(handler)
	return otelhttp.NewHandler(handler, "kaasu")
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleInitDB is the idempotent bootstrap endpoint. Clients call it
// best-effort before their first load.
func (s *Server) handleInitDB(w http.ResponseWriter, r *http.Request) {
	if s.opts.InitStore != nil {
		if err := s.opts.InitStore(r.Context()); err != nil {
			logger.Log.Error().Err(err).Msg("init-db failed")
			respondError(w, http.StatusInternalServerError, "store initialization failed")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
