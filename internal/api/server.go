// Package api serves the range-Doppler solver over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/caesar/internal/auth"
	"github.com/star/caesar/internal/geocode"
	"github.com/star/caesar/internal/health"
	"github.com/star/caesar/internal/httputil"
	"github.com/star/caesar/internal/metrics"
	"github.com/star/caesar/internal/rdr"
	"github.com/star/caesar/internal/statevec"
)

// Config holds server settings loaded from environment variables.
type Config struct {
	Addr         string
	Auth         auth.Config
	MaxTargets   int     // targets per solve request
	MaxBodyBytes int64   // request body cap
	RateLimit    float64 // API requests per minute per client; 0 disables
	RateBurst    int
	TrustProxy   bool
	Solver       rdr.Options // defaults for solve requests
}

// Default request limits.
const (
	DefaultMaxTargets   = 100000
	DefaultMaxBodyBytes = 32 << 20
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger, store *statevec.Store, pool *geocode.WorkerPool) *Server {
	if cfg.MaxTargets <= 0 {
		cfg.MaxTargets = DefaultMaxTargets
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store.Ready))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/orbit", orbitHandler(store))
	mux.HandleFunc("PUT /api/v1/orbit", uploadOrbitHandler(logger, store, cfg.MaxBodyBytes))
	mux.HandleFunc("POST /api/v1/rdr", rdrHandler(logger, store, pool, cfg))

	var limiter *httputil.IPRateLimiter
	if cfg.RateLimit > 0 {
		limiter = httputil.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	// Build middleware chain: metrics -> logging -> auth -> rate limit -> mux.
	var handler http.Handler = mux
	handler = httputil.RateLimit(limiter, "/api/", cfg.TrustProxy)(handler)
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}
			if sr.statusCode >= 500 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
