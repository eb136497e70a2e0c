package identity

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

	// Registration and doctor discovery are public.
	api.POST("/patients", h.CreatePatient)
	api.POST("/doctors", h.CreateDoctor)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	api.GET("/patients", h.ListPatients, authn, staff)
	api.GET("/patients/:id", h.GetPatient, authn)
	api.PUT("/patients/:id", h.UpdatePatient, authn)
	api.PATCH("/patients/:id", h.PatchPatient, authn)
	api.DELETE("/patients/:id", h.DeletePatient, authn, admin)

	api.PUT("/doctors/:id", h.UpdateDoctor, authn)
	api.PATCH("/doctors/:id", h.PatchDoctor, authn)
	api.PATCH("/doctors/:id/status", h.SetDoctorStatus, authn, admin)
	api.DELETE("/doctors/:id", h.DeleteDoctor, authn, admin)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// principalFor returns the caller if they may act on ownerID's record.
func principalFor(c echo.Context, ownerID uuid.UUID) (*auth.Principal, error) {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !p.CanAccess(ownerID) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not allowed to modify this account")
	}
	return p, nil
}

// bindPatch decodes only the body; c.Bind would merge path params into a map.
func bindPatch(c echo.Context) (map[string]interface{}, error) {
	var input map[string]interface{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &input); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(input) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}
	return input, nil
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	p, err := h.svc.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.Created(c, "patient", p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if p := auth.PrincipalFromContext(c.Request().Context()); p == nil || !(p.CanAccess(id) || p.HasRole(auth.RoleDoctor)) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to view this patient")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "patient", p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pagination.Filters(c), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return response.Page(c, "patients", items, total, pg)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := principalFor(c, id); err != nil {
		return err
	}
	var in PatientUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "patient", p)
}

func (h *Handler) PatchPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := principalFor(c, id); err != nil {
		return err
	}
	input, err := bindPatch(c)
	if err != nil {
		return err
	}
	p, err := h.svc.PatchPatient(c.Request().Context(), id, input)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "patient", p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return response.Message(c, "patient deleted")
}

// -- Doctor Handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var in DoctorInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	d, err := h.svc.RegisterDoctor(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.Created(c, "doctor", d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "doctor", d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pagination.Filters(c), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Doctor{}
	}
	return response.Page(c, "doctors", items, total, pg)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := principalFor(c, id); err != nil {
		return err
	}
	var in DoctorUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "doctor", d)
}

func (h *Handler) PatchDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := principalFor(c, id)
	if err != nil {
		return err
	}
	input, err := bindPatch(c)
	if err != nil {
		return err
	}
	d, err := h.svc.PatchDoctor(c.Request().Context(), id, input, p.IsAdmin())
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "doctor", d)
}

func (h *Handler) SetDoctorStatus(c echo.Context) error {
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
	d, err := h.svc.SetDoctorStatus(c.Request().Context(), id, in.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return response.OK(c, "doctor", d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return response.Message(c, "doctor deleted")
}
