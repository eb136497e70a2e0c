package dashboard

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/auth"
	"github.com/docbook/docbook/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc) {
	api.GET("/dashboard/stats", h.Stats, authn, auth.RequireRole(auth.RoleAdmin))
	api.GET("/dashboard/doctor-payments", h.DoctorPayments, authn, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "stats", stats)
}

// DoctorPayments lets admins see every doctor (or one via ?doctor_id) and
// doctors only themselves.
func (h *Handler) DoctorPayments(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var doctorID *uuid.UUID
	if raw := c.QueryParam("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = &id
	}
	if !p.IsAdmin() {
		if doctorID != nil && *doctorID != p.UserID {
			return echo.NewHTTPError(http.StatusForbidden, "doctors can only view their own payments")
		}
		self := p.UserID
		doctorID = &self
	}

	items, err := h.svc.DoctorPayments(c.Request().Context(), doctorID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "payments", items)
}
