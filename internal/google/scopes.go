package google

import calendar "google.golang.org/api/calendar/v3"

// DefaultOAuthScopes are requested when minting a refresh token. Inserting
// events needs nothing broader than calendar.events.
var DefaultOAuthScopes = []string{
	calendar.CalendarEventsScope,
}
