package scheduler

import (
	"time"
)

// isoLayout renders timestamps with an explicit numeric offset, never "Z".
const isoLayout = "2006-01-02T15:04:05-07:00"

// confirmationLayout renders the start in the spoken confirmation.
const confirmationLayout = "Monday, January 2 at 3:04 PM MST"

// Request is one scheduling request as received from the voice agent.
type Request struct {
	// Name of the person scheduling. Required.
	Name string `json:"name"`
	// When is the free-form date and time, e.g. "tomorrow at 5pm". Required.
	When string `json:"datetime"`
	// Title defaults to the configured event title.
	Title string `json:"title,omitempty"`
	// DurationMinutes defaults to the configured duration.
	DurationMinutes int `json:"durationMinutes,omitempty"`
	// TimeZone is an IANA zone name; defaults to the configured zone.
	TimeZone string   `json:"timezone,omitempty"`
	Invitees []string `json:"invitees,omitempty"`
}

// NormalizedEvent is a validated request with its start resolved to an
// absolute instant in TimeZone.
type NormalizedEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
	CalendarID  string
	RequestID   string
}

// StartISO returns the start with its zone offset.
func (e NormalizedEvent) StartISO() string {
	return e.Start.Format(isoLayout)
}

// EndISO returns the end with its zone offset.
func (e NormalizedEvent) EndISO() string {
	return e.End.Format(isoLayout)
}

// DurationMinutes returns the event length in whole minutes.
func (e NormalizedEvent) DurationMinutes() int {
	return int(e.End.Sub(e.Start) / time.Minute)
}

// Confirmation is the sentence read back to the caller.
func (e NormalizedEvent) Confirmation() string {
	return `"` + e.Title + `" is booked for ` + e.Start.Format(confirmationLayout) + "."
}

// Preview is the JSON form of a NormalizedEvent, printed by dry runs.
type Preview struct {
	Title           string   `json:"title"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	DurationMinutes int      `json:"durationMinutes"`
	TimeZone        string   `json:"timezone"`
	Attendees       []string `json:"attendees,omitempty"`
	CalendarID      string   `json:"calendarId"`
	RequestID       string   `json:"requestId"`
	Description     string   `json:"description"`
}

// Preview returns the JSON-friendly form of the event.
func (e NormalizedEvent) Preview() Preview {
	return Preview{
		Title:           e.Title,
		Start:           e.StartISO(),
		End:             e.EndISO(),
		DurationMinutes: e.DurationMinutes(),
		TimeZone:        e.TimeZone,
		Attendees:       e.Attendees,
		CalendarID:      e.CalendarID,
		RequestID:       e.RequestID,
		Description:     e.Description,
	}
}

// Result describes a created event.
type Result struct {
	OK           bool   `json:"ok"`
	EventID      string `json:"eventId"`
	Status       string `json:"status,omitempty"`
	HTMLLink     string `json:"htmlLink,omitempty"`
	Summary      string `json:"summary"`
	Start        string `json:"start"`
	End          string `json:"end"`
	CalendarID   string `json:"calendarId"`
	RequestID    string `json:"requestId"`
	Confirmation string `json:"confirmation"`
}
