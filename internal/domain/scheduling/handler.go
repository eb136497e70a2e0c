package scheduling

import (
	"net/http"
	"strconv"

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

	// Slots
	api.GET("/slots", h.GetSlots)
	api.POST("/slots", h.SaveSlots, authn, staff)
	api.DELETE("/slots/:id", h.DeleteSlot, authn, staff)

	// Appointments
	api.GET("/appointments", h.List, authn)
	api.POST("/appointments", h.Create, authn)
	api.POST("/appointments/book", h.Book, authn)
	api.GET("/appointments/:id", h.Get, authn)
	api.PUT("/appointments/:id", h.Update, authn)
	api.PATCH("/appointments/:id", h.Patch, authn)
	api.DELETE("/appointments/:id", h.Delete, authn, admin)
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

func canView(p *auth.Principal, a *Appointment) bool {
	return p.IsAdmin() || p.UserID == a.PatientID || p.UserID == a.DoctorID
}

// -- Slot Handlers --

func (h *Handler) SaveSlots(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in SlotBatchInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	if !p.CanAccess(in.DoctorID) {
		return echo.NewHTTPError(http.StatusForbidden, "doctors can only manage their own slots")
	}
	batch, rows, err := h.svc.SaveSlots(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, response.Body{
		"success":   true,
		"doctor_id": in.DoctorID,
		"slots":     batch,
		"rows":      nonNilSlots(rows),
	})
}

func (h *Handler) GetSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id query parameter is required")
	}
	onlyAvailable := false
	if v := c.QueryParam("available"); v != "" {
		if onlyAvailable, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "available must be a boolean")
		}
	}
	batch, rows, err := h.svc.GetSlots(c.Request().Context(), doctorID, onlyAvailable)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, response.Body{
		"success":   true,
		"doctor_id": doctorID,
		"slots":     batch,
		"rows":      nonNilSlots(rows),
	})
}

func nonNilSlots(rows []*Slot) []*Slot {
	if rows == nil {
		return []*Slot{}
	}
	return rows
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	slot, err := h.svc.GetSlot(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if !p.CanAccess(slot.DoctorID) {
		return echo.NewHTTPError(http.StatusForbidden, "doctors can only manage their own slots")
	}
	if err := h.svc.DeleteSlot(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return response.Message(c, "slot deleted")
}

// -- Appointment Handlers --

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
		items = []*Appointment{}
	}
	return response.Page(c, "appointments", items, total, pg)
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
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if !canView(p, a) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to view this appointment")
	}
	return response.OK(c, "appointment", a)
}

func (h *Handler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	if !p.CanAccess(in.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "appointments can only be booked for yourself")
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.Created(c, "appointment", a)
}

func (h *Handler) Book(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in BookingInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	if !p.CanAccess(in.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "appointments can only be booked for yourself")
	}
	b, err := h.svc.Book(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, response.Body{
		"success":     true,
		"appointment": b.Appointment,
		"payment":     b.Payment,
	})
}

func (h *Handler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in AppointmentUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	a, err := h.svc.Update(c.Request().Context(), id, in, p)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "appointment", a)
}

func (h *Handler) Patch(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var input map[string]interface{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Patch(c.Request().Context(), id, input, p)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "appointment", a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return response.Message(c, "appointment deleted")
}
