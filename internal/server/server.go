// Package server provides the HTTP server and routing for Edifika.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/edifika/edifika/internal/config"
	"github.com/edifika/edifika/internal/database"
	"github.com/edifika/edifika/internal/events"
	"github.com/edifika/edifika/internal/modules/attachments"
	"github.com/edifika/edifika/internal/modules/movementform"
	"github.com/edifika/edifika/internal/modules/movements"
	"github.com/edifika/edifika/internal/modules/taxonomy"
	"github.com/edifika/edifika/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log        zerolog.Logger
	TaxonomyDB *database.DB
	LedgerDB   *database.DB
	Config     *config.Config
	Bus        *events.Bus
	Cache      *taxonomy.Cache
	Movements  *movements.Service
	Attach     *attachments.Repository
	Scheduler  *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	taxonomyDB     *database.DB
	ledgerDB       *database.DB
	cfg            *config.Config
	bus            *events.Bus
	cache          *taxonomy.Cache
	movements      *movements.Service
	attach         *attachments.Repository
	sched          *scheduler.Scheduler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		taxonomyDB: cfg.TaxonomyDB,
		ledgerDB:   cfg.LedgerDB,
		cfg:        cfg.Config,
		bus:        cfg.Bus,
		cache:      cfg.Cache,
		movements:  cfg.Movements,
		attach:     cfg.Attach,
		sched:      cfg.Scheduler,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.TaxonomyDB, cfg.LedgerDB, cfg.Scheduler)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(taxonomyRefresh, integrityCheck scheduler.Job) {
	s.systemHandlers.SetJobs(taxonomyRefresh, integrityCheck)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organization-ID", "X-Member-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Unified events stream (SSE)
		eventsStreamHandler := NewEventsStreamHandler(s.bus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		// System monitoring and operations
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/taxonomy-refresh", s.systemHandlers.HandleTriggerTaxonomyRefresh)
				r.Post("/integrity-check", s.systemHandlers.HandleTriggerIntegrityCheck)
			})
		})

		// Tenant-scoped routes require the identity headers
		r.Group(func(r chi.Router) {
			r.Use(IdentityMiddleware)

			taxonomyHandler := taxonomy.NewHandler(s.cache, s.log)
			r.Route("/taxonomy", taxonomyHandler.Routes)

			movementHandler := movementform.NewHandler(s.movements, s.attach, s.cache, s.log)
			r.Route("/movements", movementHandler.Routes)
		})
	})
}

// handleHealth is a simple liveness probe
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the underlying router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
