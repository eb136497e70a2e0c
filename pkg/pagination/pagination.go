package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// Reserved reports whether a query parameter belongs to pagination rather
// than to an entity filter.
func Reserved(name string) bool {
	return name == "limit" || name == "offset"
}

// FromContext extracts pagination parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Filters returns the first value of every non-pagination query parameter.
// Which of them apply is decided by the entity's filter allow-list.
func Filters(c echo.Context) map[string]string {
	out := make(map[string]string)
	for k, v := range c.QueryParams() {
		if Reserved(k) || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Meta is the paging block attached to list responses.
type Meta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func (p Params) Meta(total int) Meta {
	return Meta{Total: total, Limit: p.Limit, Offset: p.Offset, HasMore: p.HasNext(total)}
}
