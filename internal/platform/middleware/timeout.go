package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout bounds each request by timeout. Repositories see the
// deadline through the request context, so a slow query is cancelled by
// pgx and the handler returns a 504 rendered by the error handler. The
// handler always runs on the request goroutine. Requests matched by skip
// run without a deadline.
func RequestTimeout(timeout time.Duration, skip echomw.Skipper) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Skipper: skip,
		Timeout: timeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return timedOut()
			}
			return err
		},
	})
}

func timedOut() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusGatewayTimeout, "request took too long to process")
}
