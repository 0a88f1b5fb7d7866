// Package httpapi exposes the engine's HTTP surface (§6.2) through a
// thin gorilla/mux router, grounded on the teacher's read-only,
// local-only server (internal/interfaces/http/server.go) but adapted
// to dispatch to the pipeline, config store, and replay orchestrator
// instead of candidate scans.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ServerConfig holds the HTTP server's bind address and timeouts.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Metrics, when set, exposes /metrics via promhttp. Left nil, the
	// route is omitted rather than serving an empty registry.
	Metrics prometheus.Gatherer
}

// DefaultServerConfig is local-only by default, matching the
// teacher's posture for an analysis surface with no auth layer.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server wires the §6.2 routes to a Handlers instance.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	log      zerolog.Logger
	cfg      ServerConfig
}

// NewServer builds a Server ready to Start, dispatching every route to h.
func NewServer(cfg ServerConfig, h *Handlers, log zerolog.Logger) *Server {
	router := mux.NewRouter()
	s := &Server{router: router, handlers: h, log: log, cfg: cfg}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/analyze", s.handlers.Analyze).Methods(http.MethodGet)

	api.HandleFunc("/config", s.handlers.GetConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handlers.PutConfig).Methods(http.MethodPut)
	api.HandleFunc("/config/validate", s.handlers.ValidateConfig).Methods(http.MethodPost)
	api.HandleFunc("/config/history", s.handlers.ConfigHistory).Methods(http.MethodGet)
	api.HandleFunc("/config/rollback", s.handlers.RollbackConfig).Methods(http.MethodPost)
	api.HandleFunc("/config/export", s.handlers.ExportConfig).Methods(http.MethodGet)
	api.HandleFunc("/config/import", s.handlers.ImportConfig).Methods(http.MethodPost)

	api.HandleFunc("/replay/single", s.handlers.ReplaySingle).Methods(http.MethodPost)
	api.HandleFunc("/replay/batch", s.handlers.ReplayBatch).Methods(http.MethodPost)
	api.HandleFunc("/replay/status/{id}", s.handlers.ReplayStatus).Methods(http.MethodGet)
	api.HandleFunc("/replay/results/{id}", s.handlers.ReplayResults).Methods(http.MethodGet)
	api.HandleFunc("/replay/pause/{id}", s.handlers.ReplayPause).Methods(http.MethodPost)
	api.HandleFunc("/replay/resume/{id}", s.handlers.ReplayResume).Methods(http.MethodPost)
	api.HandleFunc("/replay/batch/{id}", s.handlers.ReplayDeleteBatch).Methods(http.MethodDelete)
	api.HandleFunc("/replay/label", s.handlers.ReplayLabel).Methods(http.MethodPost)
	api.HandleFunc("/replay/scoreboard", s.handlers.ReplayScoreboard).Methods(http.MethodGet)

	api.HandleFunc("/stream/state", s.handlers.StreamState).Methods(http.MethodGet)

	if s.cfg.Metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.cfg.Metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Start blocks serving HTTP until the server is shut down or fails.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting http server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
