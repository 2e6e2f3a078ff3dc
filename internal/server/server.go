// Package server provides the HTTP server and routing for the dashboard API.
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

	"github.com/heisenbergtrx/portfolio-dashboard/internal/cache"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/database"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/charts"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/dashboard"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/snapshots"
)

// Config holds server configuration.
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	DB        *database.DB
	Dashboard *dashboard.Service
	Charts    *charts.Service
	Cache     *cache.Repository
	Snapshots *snapshots.Repository
	Benchmark *snapshots.Benchmark
}

// Server is the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	handlers       *Handlers
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		handlers: NewHandlers(cfg.Dashboard, cfg.Charts, cfg.Cache,
			cfg.Snapshots, cfg.Benchmark, cfg.Log),
		systemHandlers: NewSystemHandlers(cfg.DB, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // refresh can wait on slow upstreams
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/refresh", s.handlers.HandleRefresh)
		r.Get("/portfolio", s.handlers.HandlePortfolio)
		r.Get("/recommendations", s.handlers.HandleRecommendations)
		r.Get("/rebalance", s.handlers.HandleRebalance)
		r.Get("/correlation", s.handlers.HandleCorrelation)

		r.Route("/charts", func(r chi.Router) {
			r.Get("/allocation.png", s.handlers.HandleAllocationChart)
			r.Get("/deviation.png", s.handlers.HandleDeviationChart)
			r.Get("/history/{code}.png", s.handlers.HandleHistoryChart)
		})

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handlers.HandleListSnapshots)
			r.Post("/", s.handlers.HandleTakeSnapshot)
			r.Get("/{id}", s.handlers.HandleGetSnapshot)
		})
		r.Get("/benchmark", s.handlers.HandleBenchmark)

		r.Post("/config/reload", s.handlers.HandleReloadConfig)
		r.Post("/cache/prune", s.handlers.HandlePruneCache)

		r.Get("/system/stats", s.systemHandlers.HandleSystemStats)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
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
