package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/google"
	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/logging"
	"github.com/teemow/voicecal/internal/toolerr"
)

// ClientOptions tunes a Client. Zero values select defaults.
type ClientOptions struct {
	// Endpoint overrides the Calendar API base URL.
	Endpoint string

	// Timeout bounds a single insert (default: 20s)
	Timeout time.Duration

	// HTTPClient is the base client; the bearer token is layered on top.
	HTTPClient *http.Client

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Client inserts events into Google Calendar. It holds no credentials; the
// access token is supplied per call.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewClient creates a Calendar client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultHTTPTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = google.NewHTTPClient(opts.Timeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		endpoint:   opts.Endpoint,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		metrics:    opts.Metrics,
		logger:     logging.WithOperation(opts.Logger, toolerr.OpEventInsert),
	}
}

// service builds a Calendar service that authenticates with accessToken.
func (c *Client) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

// InsertEvent creates one event on calendarID. It makes exactly one attempt.
// Failures are *toolerr.Error values of kind calendar_api or network.
func (c *Client) InsertEvent(ctx context.Context, accessToken, calendarID string, input EventInput) (*EventSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert,
		instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()...)
	defer span.End()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		terr := &toolerr.Error{Kind: toolerr.KindInternal, Op: toolerr.OpEventInsert, Message: "could not build calendar client", Err: err}
		instrumentation.SetSpanError(span, terr)
		return nil, terr
	}

	start := time.Now()
	created, err := svc.Events.Insert(calendarID, toEvent(input)).Context(ctx).Do()
	duration := time.Since(start)

	if err != nil {
		terr := classifyInsertError(err)
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
			WithHTTPStatus(terr.Status).
			WithErrorKind(string(terr.Kind)).
			Build()...)
		instrumentation.SetSpanError(span, terr)
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert, instrumentation.StatusError, duration)
		c.logger.WarnContext(ctx, "event insert failed",
			logging.Calendar(calendarID),
			logging.Kind(string(terr.Kind)),
			slog.Int(logging.KeyStatus, terr.Status),
			logging.Err(err),
		)
		return nil, terr
	}

	summary := toEventSummary(created)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithEventID(summary.ID).Build()...)
	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert, instrumentation.StatusSuccess, duration)
	c.logger.DebugContext(ctx, "event inserted",
		logging.Calendar(calendarID),
		slog.String(logging.KeyEventID, summary.ID),
		slog.Duration(logging.KeyDuration, duration),
	)
	return &summary, nil
}

// classifyInsertError maps an insert failure onto the error taxonomy.
func classifyInsertError(err error) *toolerr.Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		if len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			msg = fmt.Sprintf("%s (%s)", msg, gerr.Errors[0].Reason)
		}
		return toolerr.CalendarAPI(gerr.Code, msg, err)
	}
	if toolerr.IsTransport(err) {
		return toolerr.Network(toolerr.OpEventInsert, err)
	}
	return toolerr.CalendarAPI(0, "unexpected response from Google Calendar", err)
}
