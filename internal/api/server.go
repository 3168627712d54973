package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/codetransmute/internal/blocks"
	"github.com/dgallion1/codetransmute/internal/config"
	"github.com/dgallion1/codetransmute/internal/metrics"
	"github.com/dgallion1/codetransmute/internal/pipeline"
	"github.com/dgallion1/codetransmute/internal/session"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

// Deps are the components the server routes requests to.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Hub          *session.Hub
	Renderer     *session.Renderer
	Workspace    *workspace.Workspace
	Cache        *workspace.TreeCache
	Catalog      *blocks.Catalog
	Projections  *metrics.ProjectionStats
}

// Server is the HTTP API server for codetransmute.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
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
	r.Handle("/metrics", promhttp.Handler())

	// API endpoints; authenticated when a key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/project", s.handleProject)
		r.Post("/api/preview", s.handlePreview)

		r.Get("/api/files", s.handleFileTree)
		r.Get("/api/files/content", s.handleFileContent)
		r.Get("/api/catalog", s.handleCatalog)
		r.Get("/api/stats/projection", s.handleProjectionStats)

		r.Post("/api/analyze", s.handleAnalyze)
		r.Get("/api/analyze/{jobID}/status", s.handleAnalyzeStatus)

		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/sessions/{sessionID}", s.handleGetSession)
		r.Put("/api/sessions/{sessionID}/file", s.handleSelectFile)
		r.Put("/api/sessions/{sessionID}/level", s.handleSetLevel)
		r.Get("/api/sessions/{sessionID}/ws", s.handleSessionSocket)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
