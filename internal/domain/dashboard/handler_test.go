package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/platform/auth"
)

func newContext(e *echo.Echo, target string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_DoctorPayments_DoctorSeesSelf(t *testing.T) {
	self, other := uuid.New(), uuid.New()
	repo := &mockStatsRepo{payments: []mockPayment{
		{self, "Online", "Completed", 100},
		{other, "Online", "Completed", 999},
	}}
	h := NewHandler(NewService(repo))
	e := echo.New()
	doctor := &auth.Principal{UserID: self, Roles: []string{auth.RoleDoctor}}

	c, rec := newContext(e, "/api/dashboard/doctor-payments", doctor)
	if err := h.DoctorPayments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Payments []DoctorPayment `json:"payments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Payments) != 1 || body.Payments[0].DoctorID != self {
		t.Errorf("expected only own totals, got %+v", body.Payments)
	}

	c, _ = newContext(e, "/api/dashboard/doctor-payments?doctor_id="+other.String(), doctor)
	err := h.DoctorPayments(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another doctor, got %v", err)
	}
}

func TestHandler_Stats(t *testing.T) {
	repo := &mockStatsRepo{counts: Counts{Patients: 3, Doctors: 2}}
	h := NewHandler(NewService(repo))
	c, rec := newContext(echo.New(), "/api/dashboard/stats", &auth.Principal{Roles: []string{auth.RoleAdmin}})
	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Success bool  `json:"success"`
		Stats   Stats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Stats.Counts.Patients != 3 {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
