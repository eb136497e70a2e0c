// Package response writes the {"success": true, ...} envelope shared by every
// endpoint. Failures are rendered by the HTTP error handler.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/pkg/pagination"
)

// Body is a success envelope under construction.
type Body map[string]interface{}

// JSON writes {"success": true, key: value}.
func JSON(c echo.Context, code int, key string, value interface{}) error {
	return c.JSON(code, Body{"success": true, key: value})
}

// OK is JSON with 200.
func OK(c echo.Context, key string, value interface{}) error {
	return JSON(c, http.StatusOK, key, value)
}

// Created is JSON with 201.
func Created(c echo.Context, key string, value interface{}) error {
	return JSON(c, http.StatusCreated, key, value)
}

// Message writes {"success": true, "message": msg}.
func Message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, Body{"success": true, "message": msg})
}

// Page writes a list under key together with its paging metadata.
func Page(c echo.Context, key string, items interface{}, total int, p pagination.Params) error {
	return c.JSON(http.StatusOK, Body{
		"success":    true,
		key:          items,
		"pagination": p.Meta(total),
	})
}
