package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/voicecal/internal/server"
)

// Resource URIs.
const (
	DefaultsURI = "voicecal://scheduler/defaults"
	ClockURI    = "voicecal://scheduler/clock"
)

// RegisterSchedulerResources registers read-only resources describing how
// requests are completed: the defaults and the current time in the default
// zone, which agents use to resolve "today" and "tomorrow" before asking.
func RegisterSchedulerResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil || sc.Scheduler() == nil {
		return fmt.Errorf("scheduler resources require a scheduler")
	}

	defaultsResource := mcp.NewResource(
		DefaultsURI,
		"Scheduling Defaults",
		mcp.WithResourceDescription("Calendar, title, duration and time zone used when a request leaves them out"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(defaultsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleDefaults(ctx, request, sc)
	})

	clockResource := mcp.NewResource(
		ClockURI,
		"Scheduler Clock",
		mcp.WithResourceDescription("Current date and time in the default time zone"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(clockResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleClock(ctx, request, sc)
	})

	return nil
}

func handleDefaults(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, sc.Scheduler().Defaults())
}

// clockData is the payload of the clock resource.
type clockData struct {
	Now      string `json:"now"`
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	TimeZone string `json:"timezone"`
}

func handleClock(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	sched := sc.Scheduler()
	zone := sched.Defaults().TimeZone

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", zone, err)
	}
	now := sched.Now().In(loc)

	return jsonContents(request.Params.URI, clockData{
		Now:      now.Format(time.RFC3339),
		Date:     now.Format(time.DateOnly),
		Weekday:  now.Weekday().String(),
		TimeZone: zone,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
