package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/auth"
	"github.com/docbook/docbook/internal/platform/db"
)

var errEmailTaken = apperr.Conflict("email already registered")

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{patients: patients, doctors: doctors}
}

// checkEmailFree fails with a conflict when email belongs to any account
// other than self. Patients and doctors share one email namespace because
// login looks in both tables.
func (s *Service) checkEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	p, err := s.patients.GetByEmail(ctx, email)
	switch {
	case err == nil && p.ID != self:
		return errEmailTaken
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return err
	}

	d, err := s.doctors.GetByEmail(ctx, email)
	switch {
	case err == nil && d.ID != self:
		return errEmailTaken
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return err
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return "", apperr.Invalid("%v", err)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "", apperr.Invalid("password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return hash, err
}

// requireText rejects blank values for the given columns when present.
func requireText(set map[string]interface{}, cols ...string) error {
	for _, col := range cols {
		if v, ok := set[col].(string); ok && v == "" {
			return apperr.Invalid("%s must not be empty", col)
		}
	}
	return nil
}

func conflictOnDuplicate(err error) error {
	if db.IsUniqueViolation(err) {
		return errEmailTaken
	}
	return err
}

// -- Patient --

func (s *Service) RegisterPatient(ctx context.Context, in PatientInput) (*Patient, error) {
	p := in.Patient()
	if p.Username == "" {
		return nil, apperr.Invalid("username is required")
	}
	if p.Email == "" {
		return nil, apperr.Invalid("email is required")
	}
	if err := s.checkEmailFree(ctx, p.Email, uuid.Nil); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	p.PasswordHash = hash
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, conflictOnDuplicate(err)
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) FindPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	return s.patients.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *Service) ListPatients(ctx context.Context, filters map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, filters, limit, offset)
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in PatientUpdate) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Username = strings.TrimSpace(in.Username)
	p.Email = NormalizeEmail(in.Email)
	p.Phone, p.Gender, p.Age = in.Phone, in.Gender, in.Age
	if p.Username == "" {
		return nil, apperr.Invalid("username is required")
	}
	if err := s.checkEmailFree(ctx, p.Email, id); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, conflictOnDuplicate(err)
	}
	return p, nil
}

// PatchPatient applies an allow-listed subset of profile fields.
func (s *Service) PatchPatient(ctx context.Context, id uuid.UUID, input map[string]interface{}) (*Patient, error) {
	set, err := patientColumns.Resolve(input)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if err := requireText(set, "username", "email"); err != nil {
		return nil, err
	}
	if err := s.normalizeEmailField(ctx, set, id); err != nil {
		return nil, err
	}
	if err := s.patients.Patch(ctx, id, set); err != nil {
		return nil, conflictOnDuplicate(err)
	}
	return s.patients.GetByID(ctx, id)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

// GrantAdmin flips is_admin on the patient with email.
func (s *Service) GrantAdmin(ctx context.Context, email string, admin bool) error {
	return s.patients.SetAdmin(ctx, NormalizeEmail(email), admin)
}

func (s *Service) normalizeEmailField(ctx context.Context, set map[string]interface{}, self uuid.UUID) error {
	raw, ok := set["email"]
	if !ok {
		return nil
	}
	email := NormalizeEmail(raw.(string))
	if !strings.Contains(email, "@") {
		return apperr.Invalid("email must be a valid email address")
	}
	set["email"] = email
	return s.checkEmailFree(ctx, email, self)
}

// -- Doctor --

// RegisterDoctor creates an unverified doctor awaiting admin review.
func (s *Service) RegisterDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	d := in.Doctor()
	if d.Username == "" {
		return nil, apperr.Invalid("username is required")
	}
	if d.Email == "" {
		return nil, apperr.Invalid("email is required")
	}
	if d.Specialization == "" {
		return nil, apperr.Invalid("specialization is required")
	}
	if d.ConsultationFee < 0 {
		return nil, apperr.Invalid("consultation_fee must not be negative")
	}
	if err := s.checkEmailFree(ctx, d.Email, uuid.Nil); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	d.PasswordHash = hash
	d.Status = StatusPending
	d.IsVerified = false
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, conflictOnDuplicate(err)
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) FindDoctorByEmail(ctx context.Context, email string) (*Doctor, error) {
	return s.doctors.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *Service) ListDoctors(ctx context.Context, filters map[string]string, limit, offset int) ([]*Doctor, int, error) {
	if st, ok := filters["status"]; ok && st != "" && !validDoctorStatuses[st] {
		return nil, 0, apperr.Invalid("invalid doctor status: %s", st)
	}
	return s.doctors.List(ctx, filters, limit, offset)
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, in DoctorUpdate) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Username = strings.TrimSpace(in.Username)
	d.Email = NormalizeEmail(in.Email)
	d.Phone, d.Gender = in.Phone, in.Gender
	d.Specialization = strings.TrimSpace(in.Specialization)
	d.Qualification, d.Experience = in.Qualification, in.Experience
	d.ClinicName, d.ClinicAddress, d.City = in.ClinicName, in.ClinicAddress, in.City
	d.ConsultationFee = in.ConsultationFee
	d.AvailableDays, d.AvailableTime = in.AvailableDays, in.AvailableTime
	d.ProfileImage, d.About = in.ProfileImage, in.About

	if d.Username == "" || d.Specialization == "" {
		return nil, apperr.Invalid("username and specialization are required")
	}
	if d.ConsultationFee < 0 {
		return nil, apperr.Invalid("consultation_fee must not be negative")
	}
	if err := s.checkEmailFree(ctx, d.Email, id); err != nil {
		return nil, err
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, conflictOnDuplicate(err)
	}
	return d, nil
}

// PatchDoctor applies an allow-listed subset of fields. Only callers with
// canVerify may change status; moving to Accept also marks the doctor
// verified, while Reject leaves is_verified as it was.
func (s *Service) PatchDoctor(ctx context.Context, id uuid.UUID, input map[string]interface{}, canVerify bool) (*Doctor, error) {
	set, err := doctorColumns.Resolve(input)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if err := requireText(set, "username", "email", "specialization"); err != nil {
		return nil, err
	}
	if raw, ok := set["status"]; ok {
		if !canVerify {
			return nil, apperr.Forbidden("only an administrator can change doctor status")
		}
		status, _ := raw.(string)
		if !validDoctorStatuses[status] {
			return nil, apperr.Invalid("invalid doctor status: %s", status)
		}
		if status == StatusAccept {
			set["is_verified"] = true
		}
	}
	if fee, ok := set["consultation_fee"].(float64); ok && fee < 0 {
		return nil, apperr.Invalid("consultation_fee must not be negative")
	}
	if err := s.normalizeEmailField(ctx, set, id); err != nil {
		return nil, err
	}
	if err := s.doctors.Patch(ctx, id, set); err != nil {
		return nil, conflictOnDuplicate(err)
	}
	return s.doctors.GetByID(ctx, id)
}

// SetDoctorStatus is the admin verification decision.
func (s *Service) SetDoctorStatus(ctx context.Context, id uuid.UUID, status string) (*Doctor, error) {
	return s.PatchDoctor(ctx, id, map[string]interface{}{"status": status}, true)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}
