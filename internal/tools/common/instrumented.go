package common

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/server"
	"github.com/teemow/voicecal/internal/toolerr"
)

// ToolFunc implements one MCP tool. The returned value is encoded as the JSON
// text of the tool result; a returned error becomes an error result carrying
// its descriptor.
type ToolFunc func(ctx context.Context, args map[string]any, ti *instrumentation.ToolInvocation) (any, error)

// Track runs fn as one tool invocation. It opens the tool span, records
// tool_invocations_total and tool_duration_seconds, and writes the audit
// record. fn may enrich ti with the caller and the created event.
func Track(
	ctx context.Context,
	sc *server.ServerContext,
	toolName, transport string,
	fn func(ctx context.Context, ti *instrumentation.ToolInvocation) error,
) error {
	ctx, span := instrumentation.StartToolSpan(ctx, toolName, transport)
	defer span.End()

	invocation := instrumentation.NewToolInvocation(toolName, transport).
		WithSpanContext(ctx).
		WithRequestID(server.RequestIDFromContext(ctx))

	err := fn(ctx, invocation)
	if err != nil {
		kind := string(toolerr.KindOf(err))
		invocation.CompleteWithError(kind, err)
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithErrorKind(kind).Build()...)
		instrumentation.SetSpanError(span, err)
	} else {
		invocation.CompleteSuccess()
		instrumentation.SetSpanSuccess(span)
	}

	if sc != nil {
		sc.Metrics().RecordToolInvocation(ctx, toolName, transport, invocation.Status(), invocation.Duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)
	}

	return err
}

// InstrumentedToolHandler adapts fn to an MCP tool handler wrapped in Track.
// Domain failures are reported as tool error results, never as protocol
// errors, so the agent can read the descriptor and respond to the caller.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("calendar_create_event", sc, fn))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	fn ToolFunc,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		var value any
		err := Track(ctx, sc, toolName, instrumentation.TransportMCP, func(ctx context.Context, ti *instrumentation.ToolInvocation) error {
			ti.WithCaller(CallerFromArgs(args))
			var err error
			value, err = fn(ctx, args, ti)
			return err
		})
		if err != nil {
			return ErrorResult(err), nil
		}

		data, err := json.Marshal(value)
		if err != nil {
			return ErrorResult(err), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// ErrorResult renders err as an MCP error result holding its descriptor.
func ErrorResult(err error) *mcp.CallToolResult {
	data, _ := json.Marshal(toolerr.Describe(err))
	return mcp.NewToolResultError(string(data))
}
