package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/voicecal/internal/logging"
)

// ToolInvocation captures one tool call for the audit trail.
//
// # Privacy Considerations
//
// Caller is the name the person gave the voice agent. It is hashed in audit
// output unless IncludePII is enabled.
type ToolInvocation struct {
	Tool      string
	Transport string
	RequestID string

	// Caller is the spoken name of the person scheduling.
	Caller string

	// Outcome details
	CalendarID string
	EventID    string
	ErrorKind  string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool operation finishes.
func NewToolInvocation(tool, transport string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		Transport: transport,
		StartTime: time.Now(),
	}
}

// WithCaller sets the caller name.
func (ti *ToolInvocation) WithCaller(name string) *ToolInvocation {
	ti.Caller = name
	return ti
}

// WithRequestID sets the inbound request id.
func (ti *ToolInvocation) WithRequestID(id string) *ToolInvocation {
	ti.RequestID = id
	return ti
}

// WithEvent records the calendar and event created.
func (ti *ToolInvocation) WithEvent(calendarID, eventID string) *ToolInvocation {
	ti.CalendarID = calendarID
	ti.EventID = eventID
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// CompleteSuccess marks the invocation as successful and records its duration.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = true
	return ti
}

// CompleteWithError marks the invocation as failed with the given error kind.
func (ti *ToolInvocation) CompleteWithError(errorKind string, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = false
	ti.ErrorKind = errorKind
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the invocation. When includePII is
// false the caller name is replaced by HashCaller.
func (ti *ToolInvocation) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("transport", ti.Transport),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.Caller != "" {
		if includePII {
			attrs = append(attrs, slog.String("caller", ti.Caller))
		} else {
			attrs = append(attrs, slog.String(logging.KeyCallerHash, HashCaller(ti.Caller)))
		}
	}
	if ti.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", ti.RequestID))
	}
	if ti.CalendarID != "" {
		attrs = append(attrs, slog.String("calendar", ti.CalendarID))
	}
	if ti.EventID != "" {
		attrs = append(attrs, slog.String("event_id", ti.EventID))
	}
	if ti.ErrorKind != "" {
		attrs = append(attrs, slog.String("error_kind", ti.ErrorKind))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if includePII && ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// HashCaller returns a short, stable pseudonym for a caller name.
// Names differing only in case or surrounding space hash alike.
func HashCaller(name string) string {
	return logging.AnonymizeName(name)
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger selects slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation writes one audit record. Safe to call on a nil logger.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includePII)
	if ti.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "tool_executed", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "tool_failed", attrs...)
	}
}
