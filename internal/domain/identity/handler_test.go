package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/platform/auth"
	"github.com/docbook/docbook/internal/platform/validation"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService()
	e := echo.New()
	e.Validator = validation.New()
	return NewHandler(svc), svc, e
}

func newRequest(e *echo.Echo, method, target, body string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError with %d, got %v", code, err)
	}
	if he.Code != code {
		t.Fatalf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func patientPrincipal(id uuid.UUID) *auth.Principal {
	return &auth.Principal{UserID: id, Role: auth.RolePatient, Roles: []string{auth.RolePatient}}
}

func adminPrincipal() *auth.Principal {
	return &auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin, Roles: []string{auth.RoleAdmin, auth.RolePatient}}
}

func TestHandler_CreatePatient(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := newRequest(e, http.MethodPost, "/api/patients",
		`{"username":"Asha","email":"asha@example.com","password":"secret1"}`, nil)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not expose the password hash")
	}

	var body struct {
		Success bool    `json:"success"`
		Patient Patient `json:"patient"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Success || body.Patient.Email != "asha@example.com" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_CreatePatient_Validation(t *testing.T) {
	h, _, e := newTestHandler()
	for _, body := range []string{
		`{"email":"a@x.com","password":"secret1"}`,
		`{"username":"a","email":"nope","password":"secret1"}`,
		`{"username":"a","email":"a@x.com","password":"123"}`,
		`{bad json`,
	} {
		c, _ := newRequest(e, http.MethodPost, "/api/patients", body, nil)
		expectStatus(t, h.CreatePatient(c), http.StatusBadRequest)
	}
}

func TestHandler_CreatePatient_Duplicate(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"username":"Asha","email":"asha@example.com","password":"secret1"}`
	c, _ := newRequest(e, http.MethodPost, "/api/patients", body, nil)
	if err := h.CreatePatient(c); err != nil {
		t.Fatal(err)
	}
	c, _ = newRequest(e, http.MethodPost, "/api/patients", body, nil)
	expectStatus(t, h.CreatePatient(c), http.StatusConflict)
}

func TestHandler_GetPatient_Access(t *testing.T) {
	h, svc, e := newTestHandler()
	p, _ := svc.RegisterPatient(ctxBG(), PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	c, rec := newRequest(e, http.MethodGet, "/", "", patientPrincipal(p.ID))
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.GetPatient(c); err != nil {
		t.Fatalf("owner should read own record: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, _ = newRequest(e, http.MethodGet, "/", "", patientPrincipal(uuid.New()))
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	expectStatus(t, h.GetPatient(c), http.StatusForbidden)
}

func TestHandler_GetPatient_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newRequest(e, http.MethodGet, "/", "", adminPrincipal())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectStatus(t, h.GetPatient(c), http.StatusBadRequest)
}

func TestHandler_PatchPatient(t *testing.T) {
	h, svc, e := newTestHandler()
	p, _ := svc.RegisterPatient(ctxBG(), PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	c, rec := newRequest(e, http.MethodPatch, "/", `{"username":"Asha K"}`, patientPrincipal(p.ID))
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.PatchPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || p.Username != "Asha K" {
		t.Errorf("expected patched username, got %d %q", rec.Code, p.Username)
	}

	c, _ = newRequest(e, http.MethodPatch, "/", `{"is_admin":true}`, patientPrincipal(p.ID))
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	expectStatus(t, h.PatchPatient(c), http.StatusBadRequest)

	c, _ = newRequest(e, http.MethodPatch, "/", ``, patientPrincipal(p.ID))
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	expectStatus(t, h.PatchPatient(c), http.StatusBadRequest)
}

func TestHandler_UpdatePatient_OtherUserForbidden(t *testing.T) {
	h, svc, e := newTestHandler()
	p, _ := svc.RegisterPatient(ctxBG(), PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	c, _ := newRequest(e, http.MethodPut, "/", `{"username":"x","email":"x@x.com"}`, patientPrincipal(uuid.New()))
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	expectStatus(t, h.UpdatePatient(c), http.StatusForbidden)
}

func TestHandler_ListDoctors(t *testing.T) {
	h, svc, e := newTestHandler()
	registerDoctor(t, svc, "a@x.com")
	registerDoctor(t, svc, "b@x.com")

	c, rec := newRequest(e, http.MethodGet, "/api/doctors?limit=1", "", nil)
	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Success    bool      `json:"success"`
		Doctors    []*Doctor `json:"doctors"`
		Pagination struct {
			Total   int  `json:"total"`
			Limit   int  `json:"limit"`
			HasMore bool `json:"has_more"`
		} `json:"pagination"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Doctors) != 1 || body.Pagination.Total != 2 || !body.Pagination.HasMore {
		t.Errorf("unexpected page: %s", rec.Body.String())
	}
}

func TestHandler_ListDoctors_Empty(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := newRequest(e, http.MethodGet, "/api/doctors", "", nil)
	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"doctors":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_PatchDoctor_StatusByDoctorForbidden(t *testing.T) {
	h, svc, e := newTestHandler()
	d := registerDoctor(t, svc, "d@x.com")
	self := &auth.Principal{UserID: d.ID, Role: auth.RoleDoctor, Roles: []string{auth.RoleDoctor}}

	c, _ := newRequest(e, http.MethodPatch, "/", `{"status":"Accept"}`, self)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())
	expectStatus(t, h.PatchDoctor(c), http.StatusForbidden)
}

func TestHandler_SetDoctorStatus(t *testing.T) {
	h, svc, e := newTestHandler()
	d := registerDoctor(t, svc, "d@x.com")

	c, rec := newRequest(e, http.MethodPatch, "/", `{"status":"Accept"}`, adminPrincipal())
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())
	if err := h.SetDoctorStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !d.IsVerified {
		t.Errorf("expected verified doctor, got %d %v", rec.Code, d.IsVerified)
	}
}

func TestHandler_DeleteDoctor_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newRequest(e, http.MethodDelete, "/", "", adminPrincipal())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	expectStatus(t, h.DeleteDoctor(c), http.StatusNotFound)
}
