package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/teemow/voicecal/internal/calendar"
	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/google"
	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/logging"
	"github.com/teemow/voicecal/internal/timeparse"
	"github.com/teemow/voicecal/internal/toolerr"
)

// Request field limits.
const (
	MaxNameLength  = 120
	MaxTitleLength = 200
	MaxInvitees    = 20
)

// Inserter creates one calendar event with a given access token.
type Inserter interface {
	InsertEvent(ctx context.Context, accessToken, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
}

// Options configures a Scheduler. Zero values select the package defaults.
type Options struct {
	CalendarID      string
	DefaultTitle    string
	DefaultDuration int // minutes
	DefaultTimeZone string

	// Now is the clock; tests inject a fixed instant.
	Now func() time.Time

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// OptionsFromConfig derives Options from the service configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		CalendarID:      cfg.CalendarID,
		DefaultTitle:    cfg.DefaultTitle,
		DefaultDuration: cfg.DefaultDurationMinutes,
		DefaultTimeZone: cfg.DefaultTimeZone,
	}
}

// Scheduler turns a Request into a calendar event: validate, normalize the
// time, refresh the token once, insert once.
type Scheduler struct {
	tokens   google.TokenProvider
	inserter Inserter
	opts     Options
	logger   *slog.Logger
}

// New creates a Scheduler.
func New(tokens google.TokenProvider, inserter Inserter, opts Options) *Scheduler {
	if opts.CalendarID == "" {
		opts.CalendarID = config.DefaultCalendarID
	}
	if opts.DefaultTitle == "" {
		opts.DefaultTitle = config.DefaultEventTitle
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = config.DefaultDurationMinutes
	}
	if opts.DefaultTimeZone == "" {
		opts.DefaultTimeZone = config.DefaultTimeZone
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Scheduler{
		tokens:   tokens,
		inserter: inserter,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// CalendarID returns the calendar events are inserted into.
func (s *Scheduler) CalendarID() string {
	return s.opts.CalendarID
}

// Defaults are the values applied when a request leaves a field empty.
type Defaults struct {
	CalendarID      string `json:"calendarId"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
	TimeZone        string `json:"timezone"`
}

// Defaults returns the effective request defaults.
func (s *Scheduler) Defaults() Defaults {
	return Defaults{
		CalendarID:      s.opts.CalendarID,
		Title:           s.opts.DefaultTitle,
		DurationMinutes: s.opts.DefaultDuration,
		TimeZone:        s.opts.DefaultTimeZone,
	}
}

// Now returns the scheduler clock's current time.
func (s *Scheduler) Now() time.Time {
	return s.opts.Now()
}

// Normalize validates req and resolves its start time without contacting
// Google. Failures are invalid_request or time_parse errors.
func (s *Scheduler) Normalize(req Request) (NormalizedEvent, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return NormalizedEvent{}, toolerr.InvalidRequest("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return NormalizedEvent{}, toolerr.InvalidRequest("name must be at most %d characters", MaxNameLength)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = s.opts.DefaultTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return NormalizedEvent{}, toolerr.InvalidRequest("title must be at most %d characters", MaxTitleLength)
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = s.opts.DefaultDuration
	}
	if duration < config.MinDurationMinutes || duration > config.MaxDurationMinutes {
		return NormalizedEvent{}, toolerr.InvalidRequest("durationMinutes must be between %d and %d",
			config.MinDurationMinutes, config.MaxDurationMinutes)
	}

	zone := strings.TrimSpace(req.TimeZone)
	if zone == "" {
		zone = s.opts.DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return NormalizedEvent{}, toolerr.InvalidRequest("unknown timezone %q", zone)
	}

	attendees, err := parseInvitees(req.Invitees)
	if err != nil {
		return NormalizedEvent{}, err
	}

	now := s.opts.Now().In(loc)
	start, err := timeparse.Parse(req.When, now, loc)
	if err != nil {
		return NormalizedEvent{}, toolerr.TimeParse(timeParseMessage(err), err)
	}
	if start.Before(now.Truncate(time.Minute)) {
		return NormalizedEvent{}, toolerr.TimeParse(
			fmt.Sprintf("start time %s is in the past for timezone %s", start.Format(isoLayout), zone), nil)
	}

	ev := NormalizedEvent{
		Title:      title,
		Start:      start,
		End:        start.Add(time.Duration(duration) * time.Minute),
		TimeZone:   zone,
		Attendees:  attendees,
		CalendarID: s.opts.CalendarID,
	}
	ev.RequestID = RequestID(name, ev)
	ev.Description = fmt.Sprintf("Scheduled by voice assistant for %s. RequestId: %s", name, ev.RequestID)
	return ev, nil
}

// Schedule creates the event described by req. The token is refreshed only
// after the request normalized cleanly, and the insert is attempted only
// after the refresh succeeded. Neither step is retried.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (*Result, error) {
	ctx, span := instrumentation.StartSpan(ctx, "scheduler.schedule",
		instrumentation.NewSpanAttributeBuilder().WithCalendar(s.opts.CalendarID).Build()...)
	defer span.End()

	logger := s.logger.With(logging.CallerHash(req.Name), logging.Calendar(s.opts.CalendarID))

	result, err := s.schedule(ctx, req, logger)
	if err != nil {
		kind := string(toolerr.KindOf(err))
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithErrorKind(kind).Build()...)
		instrumentation.SetSpanError(span, err)
		s.opts.Metrics.RecordEventScheduled(ctx, kind, s.opts.CalendarID)
		logger.WarnContext(ctx, "event not scheduled", logging.Kind(kind), logging.Err(err))
		return nil, err
	}

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithRequestID(result.RequestID).
		WithEventID(result.EventID).
		Build()...)
	instrumentation.SetSpanSuccess(span)
	s.opts.Metrics.RecordEventScheduled(ctx, instrumentation.StatusSuccess, s.opts.CalendarID)
	logger.InfoContext(ctx, "event scheduled",
		slog.String(logging.KeyRequestID, result.RequestID),
		slog.String(logging.KeyEventID, result.EventID),
	)
	return result, nil
}

func (s *Scheduler) schedule(ctx context.Context, req Request, logger *slog.Logger) (*Result, error) {
	ev, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "request normalized",
		slog.String("start", ev.StartISO()),
		slog.Int("duration_minutes", ev.DurationMinutes()),
		slog.Any("invitee_domains", logging.InviteeDomains(ev.Attendees)),
	)

	accessToken, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.inserter.InsertEvent(ctx, accessToken, ev.CalendarID, calendar.EventInput{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
		TimeZone:    ev.TimeZone,
		Attendees:   ev.Attendees,
	})
	if err != nil {
		return nil, err
	}

	return buildResult(ev, created), nil
}

// buildResult prefers what the provider echoed back over local values.
func buildResult(ev NormalizedEvent, created *calendar.EventSummary) *Result {
	res := &Result{
		OK:           true,
		EventID:      created.ID,
		Status:       created.Status,
		HTMLLink:     created.HTMLLink,
		Summary:      created.Summary,
		Start:        created.StartDateTime,
		End:          created.EndDateTime,
		CalendarID:   ev.CalendarID,
		RequestID:    ev.RequestID,
		Confirmation: ev.Confirmation(),
	}
	if res.Summary == "" {
		res.Summary = ev.Title
	}
	if res.Start == "" {
		res.Start = ev.StartISO()
	}
	if res.End == "" {
		res.End = ev.EndISO()
	}
	return res
}

// RequestID derives a stable 16 hex character id from the request identity.
// The same caller asking for the same slot twice yields the same id.
func RequestID(name string, ev NormalizedEvent) string {
	basis := strings.Join([]string{
		strings.TrimSpace(name),
		ev.Title,
		ev.StartISO(),
		strconv.Itoa(ev.DurationMinutes()),
		ev.TimeZone,
		strings.Join(ev.Attendees, ","),
	}, "|")
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:])[:16]
}

func parseInvitees(invitees []string) ([]string, error) {
	if len(invitees) > MaxInvitees {
		return nil, toolerr.InvalidRequest("at most %d invitees are allowed", MaxInvitees)
	}
	if len(invitees) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(invitees))
	seen := make(map[string]bool, len(invitees))
	for _, raw := range invitees {
		raw = strings.TrimSpace(raw)
		addr, err := mail.ParseAddress(raw)
		if err != nil || !strings.Contains(addr.Address, "@") {
			return nil, toolerr.InvalidRequest("invalid invitee e-mail address %q", raw)
		}
		key := strings.ToLower(addr.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr.Address)
	}
	return out, nil
}

func timeParseMessage(err error) string {
	var perr *timeparse.Error
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return "could not understand the date and time"
}
