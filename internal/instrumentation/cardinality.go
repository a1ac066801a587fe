package instrumentation

import "net/http"

// Cardinality helpers for metric labels. Request paths and methods come from
// the network, so they are folded into a fixed set before use as labels.

// knownRoutes lists every path the service serves.
var knownRoutes = map[string]bool{
	"/create-event":     true,
	"/tool-calls":       true,
	"/mcp":              true,
	"/health":           true,
	"/healthz":          true,
	"/readyz":           true,
	"/healthz/detailed": true,
}

// RouteOther is the label used for any path the service does not serve.
const RouteOther = "other"

// RoutePattern returns path when it is a known route and RouteOther otherwise.
//
// Example:
//
//	RoutePattern("/create-event")   // "/create-event"
//	RoutePattern("/wp-login.php")   // "other"
func RoutePattern(path string) string {
	if knownRoutes[path] {
		return path
	}
	return RouteOther
}

// NormalizeMethod folds non-standard HTTP methods into "OTHER".
func NormalizeMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	}
	return "OTHER"
}
