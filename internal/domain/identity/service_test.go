package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/auth"
)

// -- Mock Repositories --

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

func (m *mockPatientRepo) GetByEmail(_ context.Context, email string) (*Patient, error) {
	for _, p := range m.patients {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, apperr.NotFound("patient not found")
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return apperr.NotFound("patient not found")
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Patch(_ context.Context, id uuid.UUID, set map[string]interface{}) error {
	p, ok := m.patients[id]
	if !ok {
		return apperr.NotFound("patient not found")
	}
	for col, v := range set {
		switch col {
		case "username":
			p.Username = v.(string)
		case "email":
			p.Email = v.(string)
		case "age":
			if v == nil {
				p.Age = nil
			} else {
				age := int(v.(int64))
				p.Age = &age
			}
		}
	}
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return apperr.NotFound("patient not found")
	}
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, _ map[string]string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockPatientRepo) SetAdmin(_ context.Context, email string, admin bool) error {
	for _, p := range m.patients {
		if p.Email == email {
			p.IsAdmin = admin
			return nil
		}
	}
	return apperr.NotFound("patient not found")
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
	patches []map[string]interface{}
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor not found")
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByEmail(_ context.Context, email string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.Email == email {
			return d, nil
		}
	}
	return nil, apperr.NotFound("doctor not found")
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return apperr.NotFound("doctor not found")
	}
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) Patch(_ context.Context, id uuid.UUID, set map[string]interface{}) error {
	d, ok := m.doctors[id]
	if !ok {
		return apperr.NotFound("doctor not found")
	}
	m.patches = append(m.patches, set)
	for col, v := range set {
		switch col {
		case "username":
			d.Username = v.(string)
		case "email":
			d.Email = v.(string)
		case "city":
			city := v.(string)
			d.City = &city
		case "consultation_fee":
			d.ConsultationFee = v.(float64)
		case "status":
			d.Status = v.(string)
		case "is_verified":
			d.IsVerified = v.(bool)
		}
	}
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.doctors[id]; !ok {
		return apperr.NotFound("doctor not found")
	}
	delete(m.doctors, id)
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, filters map[string]string, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.doctors {
		if city, ok := filters["city"]; ok && (d.City == nil || *d.City != city) {
			continue
		}
		result = append(result, d)
	}
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func newTestService() (*Service, *mockPatientRepo, *mockDoctorRepo) {
	patients, doctors := newMockPatientRepo(), newMockDoctorRepo()
	return NewService(patients, doctors), patients, doctors
}

func registerDoctor(t *testing.T, svc *Service, email string) *Doctor {
	t.Helper()
	d, err := svc.RegisterDoctor(context.Background(), DoctorInput{
		Username: "Dr. Rao", Email: email, Password: "secret1",
		Specialization: "Cardiology", ConsultationFee: 500,
	})
	if err != nil {
		t.Fatalf("RegisterDoctor: %v", err)
	}
	return d
}

// -- Patient Tests --

func TestService_RegisterPatient(t *testing.T) {
	svc, _, _ := newTestService()
	p, err := svc.RegisterPatient(context.Background(), PatientInput{
		Username: " Asha ", Email: "Asha@Example.com", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if p.Email != "asha@example.com" || p.Username != "Asha" {
		t.Errorf("expected normalized identity, got %q %q", p.Username, p.Email)
	}
	if p.PasswordHash == "" || p.PasswordHash == "secret1" {
		t.Error("expected password to be hashed")
	}
	if !auth.CheckPassword(p.PasswordHash, "secret1") {
		t.Error("expected hash to verify")
	}
}

func TestService_RegisterPatient_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.RegisterPatient(ctx, PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.RegisterPatient(ctx, PatientInput{Username: "b", Email: "A@X.COM", Password: "secret1"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestService_RegisterPatient_EmailUsedByDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	registerDoctor(t, svc, "doc@x.com")
	_, err := svc.RegisterPatient(context.Background(), PatientInput{Username: "p", Email: "doc@x.com", Password: "secret1"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestService_RegisterPatient_ShortPassword(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.RegisterPatient(context.Background(), PatientInput{Username: "a", Email: "a@x.com", Password: "123"})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestService_RegisterPatient_LongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.RegisterPatient(context.Background(), PatientInput{Username: "a", Email: "a@x.com", Password: strings.Repeat("a", 73)})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if got := apperr.HTTP(err).(*echo.HTTPError).Code; got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}

	// multibyte characters count by byte
	_, err = svc.RegisterDoctor(context.Background(), DoctorInput{
		Username: "Dr. Rao", Email: "rao@x.com", Password: strings.Repeat("é", 37),
		Specialization: "Cardiology",
	})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid for doctor, got %v", err)
	}
}

func TestService_PatchPatient_OutOfRange(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.RegisterPatient(ctx, PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	for _, input := range []map[string]interface{}{
		{"age": float64(200)},
		{"age": float64(-3)},
		{"username": strings.Repeat("x", 101)},
		{"phone": strings.Repeat("9", 33)},
	} {
		_, err := svc.PatchPatient(ctx, p.ID, input)
		if got := apperr.HTTP(err).(*echo.HTTPError).Code; got != http.StatusBadRequest {
			t.Errorf("%v: expected 400, got %d (%v)", input, got, err)
		}
	}
}

func TestService_UpdatePatient(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.RegisterPatient(ctx, PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	age := 30
	updated, err := svc.UpdatePatient(ctx, p.ID, PatientUpdate{Username: "Asha", Email: "a@x.com", Age: &age})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Username != "Asha" || updated.Age == nil || *updated.Age != 30 {
		t.Errorf("unexpected patient: %+v", updated)
	}
}

func TestService_UpdatePatient_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.UpdatePatient(context.Background(), uuid.New(), PatientUpdate{Username: "a", Email: "a@x.com"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_PatchPatient(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.RegisterPatient(ctx, PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	got, err := svc.PatchPatient(ctx, p.ID, map[string]interface{}{"email": "NEW@x.com", "age": float64(41)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "new@x.com" {
		t.Errorf("expected lowercased email, got %s", got.Email)
	}
	if got.Age == nil || *got.Age != 41 {
		t.Errorf("expected age 41, got %v", got.Age)
	}
}

func TestService_PatchPatient_RejectsProtectedFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.RegisterPatient(ctx, PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	for _, input := range []map[string]interface{}{
		{"is_admin": true},
		{"password_hash": "x"},
		{"id": uuid.NewString()},
		{},
		{"username": ""},
		{"email": "not-an-email"},
	} {
		if _, err := svc.PatchPatient(ctx, p.ID, input); err == nil {
			t.Errorf("expected error for %v", input)
		}
	}
	if p.IsAdmin {
		t.Error("patient must not become admin through PATCH")
	}
}

func TestService_GrantAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.RegisterPatient(ctx, PatientInput{Username: "a", Email: "a@x.com", Password: "secret1"})

	if err := svc.GrantAdmin(ctx, " A@x.com", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsAdmin {
		t.Error("expected patient to be admin")
	}
	if err := svc.GrantAdmin(ctx, "missing@x.com", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// -- Doctor Tests --

func TestService_RegisterDoctor_StartsPending(t *testing.T) {
	svc, _, _ := newTestService()
	d := registerDoctor(t, svc, "Doc@X.com")
	if d.Status != StatusPending || d.IsVerified {
		t.Errorf("expected pending unverified doctor, got %s %v", d.Status, d.IsVerified)
	}
	if d.Email != "doc@x.com" {
		t.Errorf("expected normalized email, got %s", d.Email)
	}
}

func TestService_RegisterDoctor_NegativeFee(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.RegisterDoctor(context.Background(), DoctorInput{
		Username: "d", Email: "d@x.com", Password: "secret1", Specialization: "ENT", ConsultationFee: -1,
	})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestService_PatchDoctor_StatusRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	d := registerDoctor(t, svc, "d@x.com")

	_, err := svc.PatchDoctor(context.Background(), d.ID, map[string]interface{}{"status": "Accept"}, false)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if d.Status != StatusPending {
		t.Errorf("status must be unchanged, got %s", d.Status)
	}
}

func TestService_PatchDoctor_ProfileFields(t *testing.T) {
	svc, _, _ := newTestService()
	d := registerDoctor(t, svc, "d@x.com")

	got, err := svc.PatchDoctor(context.Background(), d.ID, map[string]interface{}{"city": "Pune", "consultation_fee": 750.0}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.City == nil || *got.City != "Pune" || got.ConsultationFee != 750 {
		t.Errorf("unexpected doctor: %+v", got)
	}
	if _, err := svc.PatchDoctor(context.Background(), d.ID, map[string]interface{}{"is_verified": true}, true); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("is_verified must not be directly writable, got %v", err)
	}
}

func TestService_PatchDoctor_OutOfRange(t *testing.T) {
	svc, _, _ := newTestService()
	d := registerDoctor(t, svc, "d@x.com")

	for _, input := range []map[string]interface{}{
		{"experience": float64(-1)},
		{"consultation_fee": float64(1e8)},
		{"consultation_fee": -5.0},
		{"specialization": strings.Repeat("s", 121)},
	} {
		_, err := svc.PatchDoctor(context.Background(), d.ID, input, true)
		if got := apperr.HTTP(err).(*echo.HTTPError).Code; got != http.StatusBadRequest {
			t.Errorf("%v: expected 400, got %d (%v)", input, got, err)
		}
	}
	if d.Experience != nil {
		t.Errorf("experience must be unchanged, got %v", *d.Experience)
	}
}

func TestService_SetDoctorStatus(t *testing.T) {
	svc, _, repo := newTestService()
	ctx := context.Background()
	d := registerDoctor(t, svc, "d@x.com")

	got, err := svc.SetDoctorStatus(ctx, d.ID, StatusAccept)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusAccept || !got.IsVerified {
		t.Errorf("expected accepted verified doctor, got %s %v", got.Status, got.IsVerified)
	}

	got, err = svc.SetDoctorStatus(ctx, d.ID, StatusReject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusReject {
		t.Errorf("expected Reject, got %s", got.Status)
	}
	last := repo.patches[len(repo.patches)-1]
	if _, touched := last["is_verified"]; touched {
		t.Error("Reject must not touch is_verified")
	}

	if _, err := svc.SetDoctorStatus(ctx, d.ID, "Approved"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid status error, got %v", err)
	}
}

func TestService_ListDoctors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	d := registerDoctor(t, svc, "a@x.com")
	registerDoctor(t, svc, "b@x.com")
	if _, err := svc.PatchDoctor(ctx, d.ID, map[string]interface{}{"city": "Pune"}, false); err != nil {
		t.Fatal(err)
	}

	items, total, err := svc.ListDoctors(ctx, map[string]string{"city": "Pune"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != d.ID {
		t.Errorf("expected only the Pune doctor, got %d", total)
	}

	if _, _, err := svc.ListDoctors(ctx, map[string]string{"status": "bogus"}, 20, 0); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid status filter, got %v", err)
	}
}

func TestService_DeleteDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	d := registerDoctor(t, svc, "d@x.com")
	if err := svc.DeleteDoctor(ctx, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetDoctor(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func ctxBG() context.Context { return context.Background() }
