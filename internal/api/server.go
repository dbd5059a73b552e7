package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docnum/internal/config"
	"github.com/dgallion1/docnum/internal/pipeline"
	"github.com/dgallion1/docnum/internal/preview"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docnum.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	hub          *preview.Hub
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. hub may be nil, in
// which case the preview endpoint is not mounted.
func NewServer(orch *pipeline.Orchestrator, hub *preview.Hub, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		hub:          hub,
		log:          log,
		cfg:          cfg,
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
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeWS)
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/builds", s.handleSubmit)
		r.Get("/api/stats", s.handleStats)

		r.Route("/api/builds/{buildID}", func(r chi.Router) {
			r.Get("/", s.handleBuildStatus)
			r.Get("/manifest", s.handleManifest)
			r.Get("/sections/{index}", s.handleSection)
			r.Get("/refs", s.handleRefs)
			r.Get("/export/html", s.handleExportHTML)
			r.Get("/export/docx", s.handleExportDOCX)
		})

		r.Get("/api/documents/{docID}/latest", s.handleLatest)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
