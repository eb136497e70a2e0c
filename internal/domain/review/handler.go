package review

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/auth"
	"github.com/docbook/docbook/pkg/pagination"
	"github.com/docbook/docbook/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc) {
	admin := auth.RequireRole(auth.RoleAdmin)

	api.GET("/doctors/:id/rating", h.DoctorRating)
	api.GET("/doctors/:id/reviews", h.DoctorReviews)

	api.GET("/reviews", h.List, authn)
	api.POST("/reviews", h.Create, authn)
	api.GET("/reviews/:id", h.Get, authn)
	api.PATCH("/reviews/:id", h.Patch, authn)
	api.PATCH("/reviews/:id/status", h.SetStatus, authn, admin)
	api.DELETE("/reviews/:id", h.Delete, authn)
}

func principal(c echo.Context) (*auth.Principal, error) {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// loadOwned fetches the review and checks p wrote it or is an admin.
func (h *Handler) loadOwned(c echo.Context, p *auth.Principal) (*Review, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	rv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, apperr.HTTP(err)
	}
	if !p.CanAccess(rv.PatientID) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not allowed to modify this review")
	}
	return rv, nil
}

func (h *Handler) DoctorRating(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.DoctorRating(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "rating", r)
}

// DoctorReviews is the public view: Approved reviews only.
func (h *Handler) DoctorReviews(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	filters := map[string]string{"doctor_id": id.String(), "status": StatusApproved}
	items, total, err := h.svc.List(c.Request().Context(), filters, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Review{}
	}
	return response.Page(c, "reviews", items, total, pg)
}

func (h *Handler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	filters := pagination.Filters(c)
	switch {
	case p.IsAdmin():
	case p.HasRole(auth.RoleDoctor):
		filters["doctor_id"] = p.UserID.String()
	default:
		filters["patient_id"] = p.UserID.String()
	}
	items, total, err := h.svc.List(c.Request().Context(), filters, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Review{}
	}
	return response.Page(c, "reviews", items, total, pg)
}

func (h *Handler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in ReviewInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	if !p.CanAccess(in.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "reviews can only be written as yourself")
	}
	rv, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.Created(c, "review", rv)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if !p.CanAccess(rv.PatientID) && p.UserID != rv.DoctorID && rv.Status != StatusApproved {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to view this review")
	}
	return response.OK(c, "review", rv)
}

func (h *Handler) Patch(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	rv, err := h.loadOwned(c, p)
	if err != nil {
		return err
	}
	var input map[string]interface{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := h.svc.Patch(c.Request().Context(), rv.ID, input, p.IsAdmin())
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "review", updated)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	rv, err := h.svc.SetStatus(c.Request().Context(), id, in.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "review", rv)
}

func (h *Handler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	rv, err := h.loadOwned(c, p)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), rv.ID); err != nil {
		return apperr.HTTP(err)
	}
	return response.Message(c, "review deleted")
}
