package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityConfig selects the transport-dependent headers.
type SecurityConfig struct {
	// HSTS is only sent when the API is served over TLS in production.
	HSTS bool
	// NoStorePrefix marks the paths whose responses must never be cached.
	NoStorePrefix string
}

// SecurityHeaders sets the headers every JSON response carries. Responses
// under NoStorePrefix also get Cache-Control: no-store since they hold
// tokens, contact details and appointment data.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "DENY")
			h.Set(echo.HeaderContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
			h.Set(echo.HeaderReferrerPolicy, "no-referrer")
			if cfg.HSTS {
				h.Set(echo.HeaderStrictTransportSecurity, "max-age=31536000; includeSubDomains")
			}
			if cfg.NoStorePrefix == "" || strings.HasPrefix(c.Request().URL.Path, cfg.NoStorePrefix) {
				h.Set(echo.HeaderCacheControl, "no-store")
			}
			return next(c)
		}
	}
}
