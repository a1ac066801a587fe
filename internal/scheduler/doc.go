// Package scheduler creates calendar events from spoken scheduling requests.
//
// A request passes through four steps, and a failure at any step stops the
// rest:
//
//  1. validate the request fields (invalid_request)
//  2. resolve the free-form date and time in the caller's zone (time_parse)
//  3. refresh the Google access token once (auth, network)
//  4. insert the event once (calendar_api, network)
//
// Every error returned by Schedule is a *toolerr.Error.
package scheduler
