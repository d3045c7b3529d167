package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSHeaders(t *testing.T) {
	handler := CORS(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want * when no origin list is configured", got)
	}
	allowed := rr.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{"X-Request-Id", "X-Emulate-Fault"} {
		if !strings.Contains(allowed, h) {
			t.Errorf("Allow-Headers %q missing %q", allowed, h)
		}
	}
}

func TestCORSAllowedOrigins(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(okHandler())

	tests := []struct {
		name        string
		origin      string
		wantAllowed string
	}{
		{"listed origin echoed", "https://app.example.com", "https://app.example.com"},
		{"unlisted origin blocked", "https://evil.example.com", ""},
		{"no origin header", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllowed)
			}
			if tt.wantAllowed != "" && rr.Header().Get("Vary") != "Origin" {
				t.Error("restricted response missing Vary: Origin")
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	nextCalled := false
	handler := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rr.Code)
	}
	if nextCalled {
		t.Error("preflight request reached the next handler")
	}
}
