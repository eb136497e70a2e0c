package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newTimeoutContext(path string) echo.Context {
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
}

func TestRequestTimeout_FastHandler(t *testing.T) {
	c := newTimeoutContext("/api/doctors")
	err := RequestTimeout(5*time.Second, nil)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("expected a deadline on the request context")
		}
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_SlowHandlerGets504(t *testing.T) {
	c := newTimeoutContext("/api/dashboard/stats")
	err := RequestTimeout(30*time.Millisecond, nil)(func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %v", err)
	}
}

func TestRequestTimeout_Skipped(t *testing.T) {
	c := newTimeoutContext("/health/db")
	skip := func(c echo.Context) bool { return strings.HasPrefix(c.Request().URL.Path, "/health") }
	err := RequestTimeout(time.Second, skip)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("skipped requests must not get a deadline")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_ZeroDisables(t *testing.T) {
	c := newTimeoutContext("/api/slots")
	err := RequestTimeout(0, nil)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("expected no deadline when timeout is zero")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_PassesHandlerErrors(t *testing.T) {
	c := newTimeoutContext("/api/patients/123")
	err := RequestTimeout(time.Second, nil)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	})(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestRequestTimeout_WrappedDeadlineGets504(t *testing.T) {
	c := newTimeoutContext("/api/appointments")
	err := RequestTimeout(10*time.Millisecond, nil)(func(c echo.Context) error {
		<-c.Request().Context().Done()
		return fmt.Errorf("list appointments: %w", c.Request().Context().Err())
	})(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %v", err)
	}
}

// A late handler must finish with its own context before echo recycles it
// for the next request. Run with -race.
func TestRequestTimeout_LateHandlerDoesNotLeakContext(t *testing.T) {
	e := echo.New()
	e.Use(RequestTimeout(5*time.Millisecond, nil))
	e.GET("/slow", func(c echo.Context) error {
		time.Sleep(20 * time.Millisecond)
		return c.JSON(http.StatusOK, map[string]string{"path": c.Path()})
	})
	e.GET("/fast", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"path": c.Path()})
	})

	slow := httptest.NewRecorder()
	e.ServeHTTP(slow, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if !strings.Contains(slow.Body.String(), `"/slow"`) {
		t.Errorf("slow handler body = %s", slow.Body.String())
	}

	for i := 0; i < 5; i++ {
		fast := httptest.NewRecorder()
		e.ServeHTTP(fast, httptest.NewRequest(http.MethodGet, "/fast", nil))
		if fast.Code != http.StatusOK || !strings.Contains(fast.Body.String(), `"/fast"`) {
			t.Fatalf("fast request %d: %d %s", i, fast.Code, fast.Body.String())
		}
	}
}

func TestRequestTimeout_ServedDeadlineReturns504(t *testing.T) {
	e := echo.New()
	e.Use(RequestTimeout(5*time.Millisecond, nil))
	e.GET("/stats", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
}
