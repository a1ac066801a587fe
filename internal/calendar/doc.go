// Package calendar inserts events into Google Calendar.
//
// The client carries no credentials of its own. Each InsertEvent call is
// given a freshly refreshed access token and makes a single attempt:
//
//	client := calendar.NewClient(calendar.ClientOptions{Timeout: 20 * time.Second})
//	event, err := client.InsertEvent(ctx, accessToken, "primary", calendar.EventInput{
//	    Summary: "Project Sync",
//	    Start:   start,
//	    End:     start.Add(30 * time.Minute),
//	})
//
// Provider rejections surface as toolerr calendar_api errors carrying the HTTP
// status; timeouts and transport failures surface as network errors.
package calendar
