package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/domain/identity"
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
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout, authn)
	api.GET("/auth/me", h.Me, authn)
}

func sessionBody(s *Session) response.Body {
	return response.Body{
		"success":    true,
		"token":      s.Token,
		"expires_at": s.ExpiresAt,
		"user":       s.User,
	}
}

func (h *Handler) Register(c echo.Context) error {
	var in identity.PatientInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	s, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, sessionBody(s))
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	s, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sessionBody(s))
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context(), auth.ClaimsFromContext(c)); err != nil {
		return apperr.HTTP(err)
	}
	return response.Message(c, "logged out")
}

func (h *Handler) Me(c echo.Context) error {
	u, err := h.svc.Me(c.Request().Context(), auth.PrincipalFromContext(c.Request().Context()))
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "user", u)
}
