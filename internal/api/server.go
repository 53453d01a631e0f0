package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Outliner turns a PDF on disk into a title and outline.
type Outliner interface {
	Extract(ctx context.Context, path string) (outline.Result, error)
}

// Options configure the HTTP surface.
type Options struct {
	// APIKey enables bearer auth on /api routes when non-empty.
	APIKey         string
	MaxUploadBytes int64
	// CollectionRoot, when set, confines submitted collection paths to
	// this directory.
	CollectionRoot string
}

// Server is the HTTP API server for docsift.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	outliner     Outliner
	stats        *embed.Stats
	log          *slog.Logger
	opts         Options
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, outliner Outliner, stats *embed.Stats, log *slog.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	s := &Server{
		orchestrator: orch,
		outliner:     outliner,
		stats:        stats,
		log:          log,
		opts:         opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.opts.APIKey != "" {
			r.Use(AuthMiddleware(s.opts.APIKey, s.log))
		}

		r.Post("/api/outline", s.handleOutline)

		r.Post("/api/collections", s.handleSubmitCollection)
		r.Get("/api/collections/{jobID}/status", s.handleCollectionStatus)
		r.Get("/api/collections/{jobID}/result", s.handleCollectionResult)

		r.Get("/api/stats/embeddings", s.handleEmbeddingStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
