package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// dateTimeLayout is RFC 3339 with a numeric offset, so UTC is sent as
// +00:00 rather than Z.
const dateTimeLayout = "2006-01-02T15:04:05-07:00"

// EventInput represents the input for creating a calendar event.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	// TimeZone is the IANA zone sent alongside both timestamps.
	TimeZone  string
	Attendees []string
}

// EventSummary represents the event as returned by the insert call.
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Status      string
	HTMLLink    string
	Start       time.Time
	End         time.Time
	// StartDateTime and EndDateTime are the provider's strings, unparsed.
	StartDateTime string
	EndDateTime   string
	Attendees     []AttendeeInfo
}

// AttendeeInfo represents information about an event attendee
type AttendeeInfo struct {
	Email          string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
}

// toEvent builds the insert payload. Times are sent with their offset plus
// the zone name so that Google renders them in the caller's zone.
func toEvent(input EventInput) *calendar.Event {
	tz := input.TimeZone
	if tz == "" {
		tz = input.Start.Location().String()
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(dateTimeLayout),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(dateTimeLayout),
			TimeZone: tz,
		},
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{
			Email: email,
		})
	}

	return event
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		summary.StartDateTime = event.Start.DateTime
		if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
			summary.Start = t
		}
	}
	if event.End != nil {
		summary.EndDateTime = event.End.DateTime
		if t, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
			summary.End = t
		}
	}

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			ResponseStatus: att.ResponseStatus,
		})
	}

	return summary
}
