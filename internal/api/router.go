package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/internal/workflow"
	"github.com/alvesdmateus/slotship/pkg/config"
	"github.com/alvesdmateus/slotship/pkg/database"
)

// Server represents the HTTP API server
type Server struct {
	router         *chi.Mux
	db             *gorm.DB
	cfg            *config.Config
	runHandler     *RunHandler
	webhookHandler *WebhookHandler
}

// NewServer creates a new API server
func NewServer(db *gorm.DB, cfg *config.Config, wf *workflow.Workflow, engine RunEnqueuer) *Server {
	repo := state.NewRepository(db)

	runHandler := NewRunHandler(repo, engine, wf, cfg.Pipeline.RepoURL)

	s := &Server{
		router:         chi.NewRouter(),
		db:             db,
		cfg:            cfg,
		runHandler:     runHandler,
		webhookHandler: NewWebhookHandler(runHandler, wf, cfg.Auth.WebhookSecret),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(RequestLogger)
	s.router.Use(CORSMiddleware())
	s.router.Use(middleware.RealIP)

	// Health check
	s.router.Get("/health", s.healthCheck)

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Webhook routes authenticate via payload signature, not JWT
		r.Post("/events/push", s.webhookHandler.PushEvent)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.runHandler.ListRuns)

			r.With(JWTAuthMiddleware(&s.cfg.Auth)).
				Post("/dispatch", s.runHandler.DispatchRun)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.runHandler.GetRun)
				r.Get("/stages", s.runHandler.GetRunStages)
				r.Get("/logs", s.runHandler.GetRunLogs)
			})
		})
	})
}

// healthCheck handles GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := database.HealthCheck(s.db); err != nil {
		dbStatus = "error"
	}

	response := HealthResponse{
		Status:   "ok",
		Database: dbStatus,
		Version:  "1.0.0",
	}

	RespondWithJSON(w, http.StatusOK, response)
}

// Handler returns the http.Handler for the server
func (s *Server) Handler() http.Handler {
	return s.router
}
