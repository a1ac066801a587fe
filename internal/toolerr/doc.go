// Package toolerr defines the typed failures of the event scheduling flow.
//
// Every failure reported to a caller is an *Error with one of these kinds:
//   - auth: the refresh credential was rejected or produced no access token
//   - time_parse: the spoken date/time could not be resolved
//   - calendar_api: the Calendar API rejected the insert
//   - network: a timeout or transport failure talking to Google
//   - invalid_request: the request fields failed validation
//
// Describe turns any error into the JSON descriptor sent back to the agent.
package toolerr
