// Package apperr classifies service errors so handlers can map them to HTTP
// status codes without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/platform/db"
)

var (
	ErrInvalid      = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

// Error carries a client-facing message and the class it belongs to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...interface{}) error {
	return newError(ErrInvalid, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

func Unauthorized(format string, args ...interface{}) error {
	return newError(ErrUnauthorized, format, args...)
}

func Unavailable(format string, args ...interface{}) error {
	return newError(ErrUnavailable, format, args...)
}

// HTTP converts err into an *echo.HTTPError. Unclassified errors become 500
// with the cause kept as the internal error for logging.
func HTTP(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ae *Error
	msg := err.Error()
	if errors.As(err, &ae) {
		msg = ae.Msg
	}

	switch {
	case errors.Is(err, ErrInvalid),
		errors.Is(err, db.ErrUnknownField),
		errors.Is(err, db.ErrEmptyUpdate),
		errors.Is(err, db.ErrInvalidValue):
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msg)
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, msg)
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, msg)
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, msg)
	case errors.Is(err, ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, msg)
	case db.IsInvalidData(err):
		return echo.NewHTTPError(http.StatusBadRequest, "value out of range for field").SetInternal(err)
	case db.IsUniqueViolation(err):
		return echo.NewHTTPError(http.StatusConflict, "resource already exists").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
}
