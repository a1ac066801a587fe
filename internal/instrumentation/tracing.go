package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the voicecal module.
const TracerName = "github.com/teemow/voicecal"

// Span attribute keys.
const (
	SpanAttrTool       = "voicecal.tool"
	SpanAttrTransport  = "voicecal.transport"
	SpanAttrService    = "google.service"
	SpanAttrOperation  = "google.operation"
	SpanAttrCalendar   = "google.calendar_id"
	SpanAttrEventID    = "google.event_id"
	SpanAttrHTTPStatus = "google.http_status"
	SpanAttrRequestID  = "voicecal.request_id"
	SpanAttrErrorKind  = "voicecal.error_kind"
)

// SpanAttributeBuilder helps construct span attributes with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 4),
	}
}

// WithCalendar adds the target calendar id.
func (b *SpanAttributeBuilder) WithCalendar(calendarID string) *SpanAttributeBuilder {
	if calendarID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrCalendar, calendarID))
	}
	return b
}

// WithRequestID adds the scheduling request id.
func (b *SpanAttributeBuilder) WithRequestID(requestID string) *SpanAttributeBuilder {
	if requestID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrRequestID, requestID))
	}
	return b
}

// WithEventID adds the created event id.
func (b *SpanAttributeBuilder) WithEventID(eventID string) *SpanAttributeBuilder {
	if eventID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrEventID, eventID))
	}
	return b
}

// WithErrorKind adds the error classification of a failure.
func (b *SpanAttributeBuilder) WithErrorKind(kind string) *SpanAttributeBuilder {
	if kind != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrErrorKind, kind))
	}
	return b
}

// WithHTTPStatus adds the provider status code when one was received.
func (b *SpanAttributeBuilder) WithHTTPStatus(status int) *SpanAttributeBuilder {
	if status != 0 {
		b.attrs = append(b.attrs, attribute.Int(SpanAttrHTTPStatus, status))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span for a tool invocation.
func StartToolSpan(ctx context.Context, toolName, transport string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrTool, toolName),
		attribute.String(SpanAttrTransport, transport),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context, or "".
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
