package toolerr

import "net/http"

// Descriptor is the wire form of a failure relayed back to the calling agent.
type Descriptor struct {
	OK        bool   `json:"ok"`
	Kind      Kind   `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
	Retryable bool   `json:"retryable"`
}

// Describe converts any error into a Descriptor. Untyped errors become
// "internal" with a generic message so internals never leak to callers.
func Describe(err error) Descriptor {
	te, ok := As(err)
	if !ok {
		return Descriptor{
			Kind:    KindInternal,
			Message: "internal error",
		}
	}
	return Descriptor{
		Kind:      te.Kind,
		Message:   te.Message,
		Status:    te.Status,
		Retryable: te.Retryable(),
	}
}

// HTTPStatus maps an error to the status code used by the direct webhook.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindTimeParse:
		return http.StatusUnprocessableEntity
	case KindAuth, KindCalendarAPI:
		return http.StatusBadGateway
	case KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
