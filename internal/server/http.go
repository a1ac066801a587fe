package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/instrumentation"
)

// Routes are the tool endpoints mounted by NewHandler. Nil routes are skipped.
type Routes struct {
	// CreateEvent serves POST /create-event.
	CreateEvent http.Handler

	// ToolCalls serves POST /tool-calls.
	ToolCalls http.Handler

	// MCP serves the streamable HTTP MCP endpoint at /mcp.
	MCP http.Handler
}

// HandlerConfig holds the settings applied to every tool route.
type HandlerConfig struct {
	SharedSecret string
	RateLimit    config.RateLimitConfig
	MaxBodyBytes int64
}

// NewHandler assembles the service mux. Health endpoints are public; tool
// routes pass through rate limiting, the shared secret check and a body cap.
// The returned limiter is nil when rate limiting is disabled.
func NewHandler(sc *ServerContext, health *HealthChecker, routes Routes, cfg HandlerConfig) (http.Handler, *RateLimiter) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	var limiter *RateLimiter
	if cfg.RateLimit.PerSecond > 0 {
		limiter = NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, cfg.RateLimit.TrustProxy)
	}

	protect := func(h http.Handler) http.Handler {
		h = LimitBody(cfg.MaxBodyBytes, h)
		h = SharedSecret(cfg.SharedSecret, h)
		if limiter != nil {
			h = limiter.Middleware(h)
		}
		return h
	}

	mux := http.NewServeMux()
	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}
	if routes.CreateEvent != nil {
		mux.Handle("POST /create-event", protect(routes.CreateEvent))
	}
	if routes.ToolCalls != nil {
		mux.Handle("POST /tool-calls", protect(routes.ToolCalls))
	}
	if routes.MCP != nil {
		mux.Handle("/mcp", protect(routes.MCP))
	}

	var metrics *instrumentation.Metrics
	if sc != nil {
		metrics = sc.Metrics()
	}
	return RequestID(Instrument(metrics, mux)), limiter
}

// HTTPServer runs the tool endpoints.
type HTTPServer struct {
	server  *http.Server
	limiter *RateLimiter
	cancel  context.CancelFunc
}

// NewHTTPServer creates a server on addr. writeTimeout should exceed the
// longest tool call, which is one refresh plus one insert.
func NewHTTPServer(addr string, handler http.Handler, limiter *RateLimiter, writeTimeout time.Duration) *HTTPServer {
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
		limiter: limiter,
	}
}

// Start listens and serves until Shutdown. It returns nil after a graceful
// shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *HTTPServer) Serve(ln net.Listener) error {
	if s.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.limiter.Run(ctx, time.Minute)
	}

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.server.Addr
}
