// Package server provides the HTTP server and routing for folio.
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

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/di"
	holdingshandlers "github.com/aristath/folio/internal/modules/holdings/handlers"
	insightshandlers "github.com/aristath/folio/internal/modules/insights/handlers"
	quoteshandlers "github.com/aristath/folio/internal/modules/quotes/handlers"
	rebalancinghandlers "github.com/aristath/folio/internal/modules/rebalancing/handlers"
	reconciliationhandlers "github.com/aristath/folio/internal/modules/reconciliation/handlers"
	"github.com/aristath/folio/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Jobs      *di.JobInstances
	Scheduler *scheduler.Scheduler // optional, feeds job status
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	jobs           *di.JobInstances
	systemHandlers *SystemHandlers
	port           int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		jobs:      cfg.Jobs,
		port:      cfg.Port,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Container.DB,
			cfg.Container.QuoteCache,
			cfg.Jobs.Reconciliation,
			cfg.Scheduler,
		),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: the price stream holds connections open
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(devMode bool) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived websocket, outside the timeout and compression group
		priceStream := NewPriceStreamHandler(s.container.EventBus, s.log)
		r.Get("/stream/prices", priceStream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !devMode {
				r.Use(middleware.Compress(5))
			}

			r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/system/jobs", s.systemHandlers.HandleJobsStatus)

			holdingshandlers.NewHandler(s.container.HoldingsService, s.jobs.Reconciliation, s.log).RegisterRoutes(r)
			quoteshandlers.NewHandler(s.container.PriceFetcher, s.log).RegisterRoutes(r)
			reconciliationhandlers.NewHandler(s.jobs.Reconciliation, s.log).RegisterRoutes(r)
			rebalancinghandlers.NewHandler(s.container.RebalancingService, s.jobs.Rebalance, s.log).RegisterRoutes(r)
			insightshandlers.NewHandler(s.container.InsightsService, s.log).RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
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
