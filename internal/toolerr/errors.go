package toolerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// Kind classifies a failure so callers can decide how to report it.
type Kind string

const (
	KindAuth           Kind = "auth"
	KindTimeParse      Kind = "time_parse"
	KindCalendarAPI    Kind = "calendar_api"
	KindNetwork        Kind = "network"
	KindInvalidRequest Kind = "invalid_request"
	KindInternal       Kind = "internal"
)

// Operation names attached to errors.
const (
	OpTokenRefresh = "token_refresh"
	OpEventInsert  = "event_insert"
	OpParseTime    = "parse_time"
	OpValidate     = "validate"
)

// Error is the typed failure returned by the scheduling flow.
type Error struct {
	Kind    Kind   // failure class
	Op      string // operation that failed (token_refresh, event_insert, ...)
	Status  int    // provider HTTP status when one was received, else 0
	Message string // caller-safe description
	Err     error  // underlying cause, never relayed verbatim
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, toolerr.ErrAuth) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

// Retryable reports whether the caller may reasonably try the same request again.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindCalendarAPI:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	}
	return false
}

// Sentinels for errors.Is matching by kind.
var (
	ErrAuth           = &Error{Kind: KindAuth}
	ErrTimeParse      = &Error{Kind: KindTimeParse}
	ErrCalendarAPI    = &Error{Kind: KindCalendarAPI}
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest}
)

// Auth builds an AuthError for a rejected or unusable credential exchange.
func Auth(status int, message string, err error) *Error {
	return &Error{Kind: KindAuth, Op: OpTokenRefresh, Status: status, Message: message, Err: err}
}

// TimeParse builds a TimeParseError for an input that could not be resolved.
func TimeParse(message string, err error) *Error {
	return &Error{Kind: KindTimeParse, Op: OpParseTime, Message: message, Err: err}
}

// CalendarAPI builds a CalendarApiError from a provider rejection.
func CalendarAPI(status int, message string, err error) *Error {
	return &Error{Kind: KindCalendarAPI, Op: OpEventInsert, Status: status, Message: message, Err: err}
}

// Network builds a NetworkError for a timeout or transport failure during op.
func Network(op string, err error) *Error {
	msg := "request to Google failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request to Google timed out"
	}
	return &Error{Kind: KindNetwork, Op: op, Message: msg, Err: err}
}

// InvalidRequest builds a validation error for a malformed scheduling request.
func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Op: OpValidate, Message: fmt.Sprintf(format, args...)}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	if te, ok := As(err); ok {
		return te.Kind
	}
	return KindInternal
}

// IsTransport reports whether err is a timeout or a connection-level failure
// rather than a response from the remote side.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
