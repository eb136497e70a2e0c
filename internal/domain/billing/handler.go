package billing

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
	staff := auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin)

	api.GET("/payments", h.List, authn)
	api.POST("/payments", h.Create, authn)
	api.GET("/payments/stats/summary", h.Summary, authn, admin)
	api.POST("/payments/checkout", h.Checkout, authn)
	api.POST("/payments/verify", h.Verify, authn)
	api.GET("/payments/doctor/:doctorId", h.ListByDoctor, authn, staff)
	api.GET("/payments/:id", h.Get, authn)
	api.PUT("/payments/:id", h.Update, authn, admin)
	api.PATCH("/payments/:id", h.Patch, authn, admin)
	api.DELETE("/payments/:id", h.Delete, authn, admin)
}

func principal(c echo.Context) (*auth.Principal, error) {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// scopeFilters pins non-admin callers to their own payments.
func scopeFilters(p *auth.Principal, filters map[string]string) {
	switch {
	case p.IsAdmin():
	case p.HasRole(auth.RoleDoctor):
		filters["doctor_id"] = p.UserID.String()
	default:
		filters["patient_id"] = p.UserID.String()
	}
}

func canView(p *auth.Principal, pay *Payment) bool {
	return p.IsAdmin() || p.UserID == pay.PatientID || p.UserID == pay.DoctorID
}

func (h *Handler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	filters := pagination.Filters(c)
	scopeFilters(p, filters)
	items, total, err := h.svc.List(c.Request().Context(), filters, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Payment{}
	}
	return response.Page(c, "payments", items, total, pg)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	doctorID, err := parseID(c, "doctorId")
	if err != nil {
		return err
	}
	if !p.CanAccess(doctorID) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to view these payments")
	}
	pg := pagination.FromContext(c)
	filters := pagination.Filters(c)
	filters["doctor_id"] = doctorID.String()
	items, total, err := h.svc.List(c.Request().Context(), filters, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Payment{}
	}
	return response.Page(c, "payments", items, total, pg)
}

func (h *Handler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	if !p.CanAccess(in.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "payments can only be recorded for yourself")
	}
	pay, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.Created(c, "payment", pay)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	pay, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if !canView(p, pay) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to view this payment")
	}
	return response.OK(c, "payment", pay)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	pay, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "payment", pay)
}

func (h *Handler) Patch(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input map[string]interface{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	pay, err := h.svc.Patch(c.Request().Context(), id, input)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "payment", pay)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return response.Message(c, "payment deleted")
}

func (h *Handler) Summary(c echo.Context) error {
	s, err := h.svc.Summary(c.Request().Context(), pagination.Filters(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "summary", s)
}

func (h *Handler) Checkout(c echo.Context) error {
	var in CheckoutInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	order, err := h.svc.Checkout(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.Created(c, "order", order)
}

func (h *Handler) Verify(c echo.Context) error {
	var in VerifyInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	txID, err := h.svc.Verify(in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, response.Body{"success": true, "verified": true, "transaction_id": txID})
}
