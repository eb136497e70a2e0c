package account

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docbook/docbook/internal/domain/identity"
	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/auth"
)

var errBadCredentials = apperr.Unauthorized("invalid email or password")

// Directory is the part of the identity service accounts depend on.
type Directory interface {
	RegisterPatient(ctx context.Context, in identity.PatientInput) (*identity.Patient, error)
	FindPatientByEmail(ctx context.Context, email string) (*identity.Patient, error)
	FindDoctorByEmail(ctx context.Context, email string) (*identity.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

type Service struct {
	dir         Directory
	tokens      *auth.TokenIssuer
	revocations auth.RevocationStore
	logger      zerolog.Logger
}

func NewService(dir Directory, tokens *auth.TokenIssuer, revocations auth.RevocationStore, logger zerolog.Logger) *Service {
	return &Service{dir: dir, tokens: tokens, revocations: revocations, logger: logger}
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnPassword spends one bcrypt comparison so unknown emails take as long
// as wrong passwords.
func burnPassword(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("docbook-unknown-account")
	})
	auth.CheckPassword(dummyHash, password)
}

func (s *Service) issue(u *User) (*Session, error) {
	token, claims, err := s.tokens.Issue(u.ID, u.Email, u.roles())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Register creates a patient account and signs it in.
func (s *Service) Register(ctx context.Context, in identity.PatientInput) (*Session, error) {
	p, err := s.dir.RegisterPatient(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(patientUser(p))
}

// Login checks patients first and doctors second. A patient row whose
// password does not match falls through to the doctors table. Every failure
// yields the same error so callers cannot probe which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	checked := false
	p, err := s.dir.FindPatientByEmail(ctx, email)
	switch {
	case err == nil:
		if auth.CheckPassword(p.PasswordHash, password) {
			return s.issue(patientUser(p))
		}
		checked = true
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	d, err := s.dir.FindDoctorByEmail(ctx, email)
	switch {
	case err == nil:
		if !auth.CheckPassword(d.PasswordHash, password) {
			return nil, errBadCredentials
		}
		return s.issue(doctorUser(d))
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	if !checked {
		burnPassword(password)
	}
	return nil, errBadCredentials
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperr.Unauthorized("authentication required")
	}
	expires := time.Now()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.Subject, expires); err != nil {
		return apperr.Unavailable("session store unavailable: %v", err)
	}
	s.logger.Info().Str("user_id", claims.Subject).Str("jti", claims.ID).Msg("session revoked")
	return nil
}

// Me loads the current account profile.
func (s *Service) Me(ctx context.Context, p *auth.Principal) (*User, error) {
	if p == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	if p.HasRole(auth.RoleDoctor) {
		d, err := s.dir.GetDoctor(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		return doctorUser(d), nil
	}
	pt, err := s.dir.GetPatient(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return patientUser(pt), nil
}
