package calendar_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/scheduler"
	"github.com/teemow/voicecal/internal/server"
	"github.com/teemow/voicecal/internal/tools/common"
)

// Tool names.
const (
	ToolCreateEvent  = "calendar_create_event"
	ToolPreviewEvent = "calendar_preview_event"
)

// Function names accepted on the tool-call webhook for event creation.
var createEventAliases = []string{ToolCreateEvent, "createCalendarEvent", "create_event", "createEvent"}

// Function names accepted on the tool-call webhook for previews.
var previewEventAliases = []string{ToolPreviewEvent, "previewCalendarEvent"}

// RegisterCalendarTools registers the calendar tools with the MCP server.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil || sc.Scheduler() == nil {
		return fmt.Errorf("calendar tools require a scheduler")
	}

	createEventTool := mcp.NewTool(ToolCreateEvent,
		mcp.WithDescription("Book a calendar event for a caller. Understands spoken dates "+
			"such as 'tomorrow at 5pm' or 'next Friday at 9:30 in the morning'. "+
			"Returns the created event and a sentence to read back to the caller."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the person booking"),
		),
		mcp.WithString("datetime",
			mcp.Required(),
			mcp.Description("Date and time as spoken, e.g. 'tomorrow at 5pm' or '2025-03-04 14:30'"),
		),
		mcp.WithString("title",
			mcp.Description("Event title (default: Meeting)"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Length in minutes, 15 to 240 (default: 30)"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA time zone of the caller, e.g. 'America/New_York'"),
		),
		mcp.WithArray("invitees",
			mcp.Description("E-mail addresses to invite"),
			mcp.WithStringItems(),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandler(ToolCreateEvent, sc,
		func(ctx context.Context, args map[string]any, ti *instrumentation.ToolInvocation) (any, error) {
			parsed, err := argsFromMap(args)
			if err != nil {
				return nil, err
			}
			return createEvent(ctx, sc, parsed, ti)
		}))

	previewEventTool := mcp.NewTool(ToolPreviewEvent,
		mcp.WithDescription("Resolve a spoken date and time into the event that would be booked, "+
			"without creating it. Use it to confirm the time with the caller first."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the person booking"),
		),
		mcp.WithString("datetime",
			mcp.Required(),
			mcp.Description("Date and time as spoken"),
		),
		mcp.WithString("title",
			mcp.Description("Event title (default: Meeting)"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Length in minutes, 15 to 240 (default: 30)"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA time zone of the caller"),
		),
		mcp.WithArray("invitees",
			mcp.Description("E-mail addresses to invite"),
			mcp.WithStringItems(),
		),
	)

	s.AddTool(previewEventTool, common.InstrumentedToolHandler(ToolPreviewEvent, sc,
		func(_ context.Context, args map[string]any, ti *instrumentation.ToolInvocation) (any, error) {
			parsed, err := argsFromMap(args)
			if err != nil {
				return nil, err
			}
			return previewEvent(sc, parsed, ti)
		}))

	return nil
}

// createEvent runs one scheduling request through the scheduler.
func createEvent(ctx context.Context, sc *server.ServerContext, args createEventArgs, ti *instrumentation.ToolInvocation) (*scheduler.Result, error) {
	req := args.request()
	ti.WithCaller(req.Name)

	result, err := sc.Scheduler().Schedule(ctx, req)
	if err != nil {
		return nil, err
	}
	ti.WithEvent(result.CalendarID, result.EventID)
	return result, nil
}

// previewResult is the answer of a preview: the normalized event plus the
// sentence the agent would read back once booked.
type previewResult struct {
	OK           bool              `json:"ok"`
	Event        scheduler.Preview `json:"event"`
	Confirmation string            `json:"confirmation"`
}

func previewEvent(sc *server.ServerContext, args createEventArgs, ti *instrumentation.ToolInvocation) (*previewResult, error) {
	req := args.request()
	ti.WithCaller(req.Name)

	ev, err := sc.Scheduler().Normalize(req)
	if err != nil {
		return nil, err
	}
	return &previewResult{OK: true, Event: ev.Preview(), Confirmation: ev.Confirmation()}, nil
}
