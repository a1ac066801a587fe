package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/resources"
	"github.com/teemow/voicecal/internal/server"
	"github.com/teemow/voicecal/internal/tools/calendar_tools"
)

// Transport types.
const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	transport        string
	httpAddr         string
	disableStreaming bool
	metrics          MetricsConfig
	calendar         calendarFlags
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the voicecal server",
		Long: `Start the server that books calendar events for voice assistants.

Transports:
  - http (default): serves the tool endpoints on --http-addr
      POST /create-event   plain JSON webhook
      POST /tool-calls     voice platform tool-call envelope
      /mcp                 MCP streamable HTTP
      GET  /health         liveness for load balancers
  - stdio: serves the MCP tools over standard input/output

Configuration is read from the environment and optional .env files.
GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN are required;
run "voicecal auth" to mint a refresh token.

Set TOOL_SHARED_SECRET to require "Authorization: Bearer <secret>" or
X-Tool-Secret on the tool endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loadMetricsEnvVars(cmd, &opts.metrics)

			cfg, err := loadConfig(cmd, &opts.calendar)
			if err != nil {
				return err
			}
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for http transport)")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Answer MCP requests with plain JSON instead of SSE streams")
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	opts.calendar.register(cmd)

	return cmd
}

func runServe(cfg config.Config, opts serveOptions) error {
	if opts.transport != transportHTTP && opts.transport != transportStdio {
		return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", opts.transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	metrics := provider.Metrics()

	sched, closeCache, err := buildScheduler(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeCache()

	serverContext := server.NewServerContext(shutdownCtx, sched, logger)
	if provider.Enabled() {
		serverContext.SetInstrumentation(metrics, instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging))
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("voicecal", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithRecovery(),
	)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}
	if err := resources.RegisterSchedulerResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}

	logger.Info("scheduler ready",
		"calendar", cfg.CalendarID,
		"timezone", cfg.DefaultTimeZone,
		"token_cache", cfg.TokenCache.Backend,
		"transport", opts.transport,
	)

	if opts.transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	var metricsServer *server.MetricsServer
	if opts.metrics.Enabled && provider.Gatherer() != nil {
		metricsServer, err = startMetricsServer(provider, opts.metrics.Addr)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", "error", err)
			}
		}()
	}

	return runHTTPServer(shutdownCtx, cfg, opts, mcpSrv, serverContext)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// startMetricsServer binds the Prometheus endpoint before returning, so a
// port conflict fails startup.
func startMetricsServer(provider *instrumentation.Provider, addr string) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}

	go func() {
		if err := metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	logger.Info("metrics server started", "addr", metricsServer.Addr())
	return metricsServer, nil
}

func runHTTPServer(ctx context.Context, cfg config.Config, opts serveOptions, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithDisableStreaming(opts.disableStreaming),
	)

	health := server.NewHealthChecker(sc, version)
	handler, limiter := server.NewHandler(sc, health, server.Routes{
		CreateEvent: calendar_tools.CreateEventHandler(sc),
		ToolCalls:   calendar_tools.ToolCallsHandler(sc),
		MCP:         streamable,
	}, server.HandlerConfig{
		SharedSecret: cfg.SharedSecret,
		RateLimit:    cfg.RateLimit,
	})

	// One refresh plus one insert, each bounded by the HTTP timeout.
	httpServer := server.NewHTTPServer(opts.httpAddr, handler, limiter, 2*cfg.HTTPTimeout+10*time.Second)

	if cfg.SharedSecret == "" {
		logger.Warn("TOOL_SHARED_SECRET is not set, tool endpoints accept unauthenticated calls")
	}
	logger.Info("http server starting",
		"addr", opts.httpAddr,
		"endpoints", []string{"/create-event", "/tool-calls", "/mcp", "/health"},
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping http server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("http server stopped")
	return nil
}

// loadMetricsEnvVars applies METRICS_* variables unless the flag was set.
func loadMetricsEnvVars(cmd *cobra.Command, cfg *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			cfg.Enabled = true
		case "false":
			cfg.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			cfg.Addr = addr
		}
	}
}
