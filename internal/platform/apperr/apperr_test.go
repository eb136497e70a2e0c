package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/platform/db"
)

func code(t *testing.T, err error) (int, interface{}) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(HTTP(err), &he) {
		t.Fatalf("expected HTTPError for %v", err)
	}
	return he.Code, he.Message
}

func TestHTTP_Classes(t *testing.T) {
	tests := []struct {
		err  error
		want int
		msg  string
	}{
		{Invalid("username is required"), http.StatusBadRequest, "username is required"},
		{NotFound("doctor not found"), http.StatusNotFound, "doctor not found"},
		{Conflict("email already registered"), http.StatusConflict, "email already registered"},
		{Forbidden("not your appointment"), http.StatusForbidden, "not your appointment"},
		{Unauthorized("invalid email or password"), http.StatusUnauthorized, "invalid email or password"},
		{Unavailable("payment gateway is not configured"), http.StatusServiceUnavailable, "payment gateway is not configured"},
		{fmt.Errorf("update: %w", NotFound("payment not found")), http.StatusNotFound, "payment not found"},
	}
	for _, tt := range tests {
		got, msg := code(t, tt.err)
		if got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, got)
		}
		if msg != tt.msg {
			t.Errorf("%v: expected message %q, got %v", tt.err, tt.msg, msg)
		}
	}
}

func TestHTTP_BuilderErrors(t *testing.T) {
	got, _ := code(t, fmt.Errorf("%w: password", db.ErrUnknownField))
	if got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}
}

func TestHTTP_UniqueViolation(t *testing.T) {
	got, _ := code(t, &pgconn.PgError{Code: "23505"})
	if got != http.StatusConflict {
		t.Errorf("expected 409, got %d", got)
	}
}

func TestHTTP_SchemaRejectedValues(t *testing.T) {
	for _, c := range []string{"23514", "22001", "22003"} {
		err := fmt.Errorf("update patient: %w", &pgconn.PgError{Code: c})
		got, msg := code(t, err)
		if got != http.StatusBadRequest {
			t.Errorf("pg code %s: expected 400, got %d", c, got)
		}
		if msg != "value out of range for field" {
			t.Errorf("pg code %s: unexpected message %v", c, msg)
		}
	}
}

func TestHTTP_Internal(t *testing.T) {
	got, msg := code(t, errors.New("connection reset by peer"))
	if got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
	if msg == "connection reset by peer" {
		t.Error("internal message must not be exposed")
	}
}

func TestHTTP_PassesThroughHTTPError(t *testing.T) {
	got, _ := code(t, echo.NewHTTPError(http.StatusTeapot, "tea"))
	if got != http.StatusTeapot {
		t.Errorf("expected 418, got %d", got)
	}
}

func TestHTTP_Nil(t *testing.T) {
	if HTTP(nil) != nil {
		t.Error("expected nil")
	}
}
