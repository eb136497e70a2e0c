package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/domain/identity"
	"github.com/docbook/docbook/internal/platform/auth"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User is the account summary returned by login and /auth/me.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsAdmin  bool      `json:"isAdmin"`
	IsDoctor bool      `json:"isDoctor"`
	Status   string    `json:"status,omitempty"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

func patientUser(p *identity.Patient) *User {
	roles := auth.RolesFor(false, p.IsAdmin)
	return &User{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Role:     roles[0],
		IsAdmin:  p.IsAdmin,
	}
}

func doctorUser(d *identity.Doctor) *User {
	return &User{
		ID:       d.ID,
		Username: d.Username,
		Email:    d.Email,
		Role:     auth.RoleDoctor,
		IsDoctor: true,
		Status:   d.Status,
	}
}

// roles returns the token roles for u.
func (u *User) roles() []string {
	return auth.RolesFor(u.IsDoctor, u.IsAdmin)
}
