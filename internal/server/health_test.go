package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker_OKHandler(t *testing.T) {
	h := NewHealthChecker(nil, "test")
	rec := httptest.NewRecorder()
	h.OKHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["ok"] {
		t.Errorf("body = %v, want ok=true", body)
	}
}

func TestHealthChecker_Readiness(t *testing.T) {
	sc := NewServerContext(context.Background(), nil, nil)
	h := NewHealthChecker(sc, "test")

	tests := []struct {
		name       string
		setup      func()
		wantStatus int
	}{
		{"ready", func() {}, http.StatusOK},
		{"not ready", func() { h.SetReady(false) }, http.StatusServiceUnavailable},
		{"shutting down", func() { h.SetReady(true); _ = sc.Shutdown() }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	h := NewHealthChecker(nil, "1.2.3")
	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	var body DetailedHealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Version != "1.2.3" || body.Status != healthStatusOK {
		t.Errorf("body = %+v", body)
	}
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := NewServerContext(context.Background(), nil, nil)
	if sc.IsShutdown() {
		t.Fatal("new context reports shutdown")
	}
	if err := sc.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := sc.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if !sc.IsShutdown() {
		t.Error("expected shutdown")
	}
	select {
	case <-sc.Context().Done():
	default:
		t.Error("expected the context to be cancelled")
	}
}
