package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/server"
	"github.com/teemow/voicecal/internal/toolerr"
)

func newServerContext(t *testing.T, audit *bytes.Buffer) *server.ServerContext {
	t.Helper()
	sc := server.NewServerContext(context.Background(), nil, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	var auditLogger *instrumentation.AuditLogger
	if audit != nil {
		logger := slog.New(slog.NewJSONHandler(audit, nil))
		auditLogger = instrumentation.NewAuditLogger(logger, instrumentation.AuditLoggingConfig{Enabled: true})
	}
	sc.SetInstrumentation(metrics, auditLogger)
	return sc
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("len(Content) = %d, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	var audit bytes.Buffer
	sc := newServerContext(t, &audit)

	var seenCaller string
	handler := InstrumentedToolHandler("test_tool", sc, func(_ context.Context, args map[string]any, ti *instrumentation.ToolInvocation) (any, error) {
		seenCaller = ti.Caller
		ti.WithEvent("primary", "evt1")
		return map[string]any{"ok": true, "echo": args["name"]}, nil
	})

	result := callTool(t, handler, map[string]any{"name": "  Alex "})
	if result.IsError {
		t.Fatal("expected a success result")
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &body); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if body["ok"] != true {
		t.Errorf("body = %v", body)
	}
	if seenCaller != "Alex" {
		t.Errorf("caller = %q, want Alex", seenCaller)
	}

	out := audit.String()
	if !strings.Contains(out, "tool_executed") || !strings.Contains(out, `"event_id":"evt1"`) {
		t.Errorf("audit output = %s", out)
	}
	if strings.Contains(out, "Alex") {
		t.Error("audit output must not contain the caller name")
	}
}

func TestInstrumentedToolHandler_DomainError(t *testing.T) {
	var audit bytes.Buffer
	sc := newServerContext(t, &audit)

	handler := InstrumentedToolHandler("test_tool", sc, func(context.Context, map[string]any, *instrumentation.ToolInvocation) (any, error) {
		return nil, toolerr.CalendarAPI(401, "Invalid Credentials", nil)
	})

	result := callTool(t, handler, nil)
	if !result.IsError {
		t.Fatal("expected an error result")
	}

	var desc toolerr.Descriptor
	if err := json.Unmarshal([]byte(resultText(t, result)), &desc); err != nil {
		t.Fatalf("result is not a descriptor: %v", err)
	}
	if desc.Kind != toolerr.KindCalendarAPI || desc.Status != 401 {
		t.Errorf("descriptor = %+v", desc)
	}
	if !strings.Contains(audit.String(), `"error_kind":"calendar_api"`) {
		t.Errorf("audit output = %s", audit.String())
	}
}

func TestInstrumentedToolHandler_UntypedError(t *testing.T) {
	sc := newServerContext(t, nil)

	handler := InstrumentedToolHandler("test_tool", sc, func(context.Context, map[string]any, *instrumentation.ToolInvocation) (any, error) {
		return nil, errors.New("boom")
	})

	result := callTool(t, handler, nil)
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(resultText(t, result), `"error":"internal"`) {
		t.Errorf("result = %s", resultText(t, result))
	}
}

func TestTrack_NilServerContext(t *testing.T) {
	want := errors.New("boom")
	err := Track(context.Background(), nil, "test_tool", instrumentation.TransportHTTP, func(context.Context, *instrumentation.ToolInvocation) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestTrack_RequestID(t *testing.T) {
	ctx := server.ContextWithRequestID(context.Background(), "req-42")

	var seen string
	_ = Track(ctx, nil, "test_tool", instrumentation.TransportHTTP, func(_ context.Context, ti *instrumentation.ToolInvocation) error {
		seen = ti.RequestID
		return nil
	})
	if seen != "req-42" {
		t.Errorf("RequestID = %q, want req-42", seen)
	}
}

func TestCallerFromArgs(t *testing.T) {
	tests := []struct {
		args map[string]any
		want string
	}{
		{map[string]any{"name": "Alex"}, "Alex"},
		{map[string]any{"name": " Sam "}, "Sam"},
		{map[string]any{"name": 42}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := CallerFromArgs(tt.args); got != tt.want {
			t.Errorf("CallerFromArgs(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
