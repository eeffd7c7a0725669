package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the driver facade's HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	MetricsAddr string
	CORSEnabled bool
	CORSOrigins []string
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimitConfig
}

// Server is the HTTP driver facade server (spec.md §4.J).
type Server struct {
	config        Config
	handler       *Handler
	httpServer    *http.Server
	metricsServer *http.Server
	mux           *http.ServeMux
	logger        *observability.Logger
}

// NewServer creates a new driver facade server.
func NewServer(config Config, logger *observability.Logger, metrics *observability.Metrics) *Server {
	handler := NewHandler(logger, metrics)

	s := &Server{
		config:  config,
		handler: handler,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if config.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		s.metricsServer = &http.Server{Addr: config.MetricsAddr, Handler: metricsMux}
	}

	return s
}

// setupRoutes configures the driver facade's HTTP routes (spec.md §4.J).
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/scans", s.handler.CreateScan)
	s.mux.HandleFunc("/v1/scans/", s.routeScansWithPath)
}

// routeScansWithPath dispatches /v1/scans/{id}, /v1/scans/{id}/results and
// /v1/scans/{id}/energies to their handlers.
func (s *Server) routeScansWithPath(w http.ResponseWriter, r *http.Request) {
	switch {
	case hasSuffix(r.URL.Path, "/results"):
		s.handler.PostResults(w, r)
	case hasSuffix(r.URL.Path, "/energies"):
		s.handler.GetEnergies(w, r)
	default:
		s.handler.GetScan(w, r)
	}
}

func hasSuffix(path, suffix string) bool {
	n := len(path)
	m := len(suffix)
	return n >= m && path[n-m:] == suffix
}

// withMiddleware wraps the mux with logging, CORS, rate limiting and auth,
// in the same order the teacher's vector-search REST API does.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = loggingMiddleware(s.logger)(handler)
	if s.config.CORSEnabled {
		handler = corsMiddleware(s.config.CORSOrigins)(handler)
	}
	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)
	handler = middleware.AuthMiddleware(s.config.Auth)(handler)
	return handler
}

// Start starts the HTTP driver facade server (and its separate metrics
// listener, if configured).
func (s *Server) Start() error {
	if s.metricsServer != nil {
		go func() {
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Errorf("metrics server error: %v", err)
			}
		}()
	}

	s.logger.Infof("driver facade listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("driver facade server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down driver facade")
	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(ctx)
	}
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs every HTTP request at INFO, the way the teacher's
// LogOperation helper wraps work.
func loggingMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			duration := time.Since(start)
			if logger != nil {
				logger.WithField("method", r.Method).
					WithField("path", r.URL.Path).
					WithField("status", wrapped.statusCode).
					WithField("duration", duration).
					Info("request handled")
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
