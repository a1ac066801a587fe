package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/scheduler"
)

// ServerContext holds the shared dependencies of every transport. The
// scheduler and the instrumentation hooks are immutable after construction.
type ServerContext struct {
	ctx       context.Context
	cancel    context.CancelFunc
	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, sched *scheduler.Scheduler, logger *slog.Logger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = slog.Default()
	}

	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		scheduler: sched,
		logger:    logger,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Scheduler returns the event scheduler.
func (sc *ServerContext) Scheduler() *scheduler.Scheduler {
	return sc.scheduler
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// SetInstrumentation installs the metrics recorder and audit logger.
// Either may be nil.
func (sc *ServerContext) SetInstrumentation(metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
	sc.auditLogger = audit
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
