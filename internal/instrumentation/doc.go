// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the voicecal service.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of token refreshes and event inserts by status
//   - google_api_operation_duration_seconds: Histogram of Google API call durations
//   - oauth_token_refresh_total: Counter of refresh attempts by result
//   - token_cache_lookups_total: Counter of access token cache lookups by result
//
// Tool Metrics:
//   - tool_invocations_total: Counter of tool invocations by tool, transport, and status
//   - tool_duration_seconds: Histogram of tool execution durations
//   - events_scheduled_total: Counter of scheduling attempts by outcome
//
// Request paths are folded through RoutePattern so that scanners cannot
// inflate label cardinality.
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and Google calls
// (google.oauth.refresh, google.calendar.insert).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: voicecal)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar,
//		instrumentation.OperationInsert, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
