package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runSecurityHeaders(t *testing.T, cfg SecurityConfig, path string, handler echo.HandlerFunc) (http.Header, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), rec)
	err := SecurityHeaders(cfg)(handler)(c)
	return rec.Header(), err
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestSecurityHeaders_Baseline(t *testing.T) {
	h, err := runSecurityHeaders(t, SecurityConfig{NoStorePrefix: "/api"}, "/api/appointments", okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
	} {
		if got := h.Get(header); got != want {
			t.Errorf("header %s: got %q, want %q", header, got, want)
		}
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must be off unless enabled")
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	h, _ := runSecurityHeaders(t, SecurityConfig{HSTS: true}, "/api/doctors", okHandler)
	if h.Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS header")
	}
}

func TestSecurityHeaders_NoStoreOnlyUnderPrefix(t *testing.T) {
	h, _ := runSecurityHeaders(t, SecurityConfig{NoStorePrefix: "/api"}, "/health", okHandler)
	if h.Get("Cache-Control") != "" {
		t.Errorf("expected no Cache-Control on /health, got %q", h.Get("Cache-Control"))
	}
}

func TestSecurityHeaders_SetOnErrors(t *testing.T) {
	h, err := runSecurityHeaders(t, SecurityConfig{}, "/api/patients/x", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	})
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected the 404 to pass through, got %v", err)
	}
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected headers on error responses too")
	}
}
