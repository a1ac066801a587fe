package instrumentation

import "testing"

func TestRoutePattern(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/create-event", "/create-event"},
		{"/tool-calls", "/tool-calls"},
		{"/mcp", "/mcp"},
		{"/health", "/health"},
		{"/healthz/detailed", "/healthz/detailed"},
		{"/wp-login.php", RouteOther},
		{"/create-event/123", RouteOther},
		{"", RouteOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := RoutePattern(tt.path); got != tt.want {
				t.Errorf("RoutePattern(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := map[string]string{
		"GET":      "GET",
		"POST":     "POST",
		"OPTIONS":  "OPTIONS",
		"PROPFIND": "OTHER",
		"get":      "OTHER",
	}
	for in, want := range tests {
		if got := NormalizeMethod(in); got != want {
			t.Errorf("NormalizeMethod(%q) = %q, want %q", in, got, want)
		}
	}
}
