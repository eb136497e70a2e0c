package auth

import (
	"context"

	"github.com/google/uuid"
)

// Roles carried in the token.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  uuid.UUID
	Email   string
	Role    string
	Roles   []string
	TokenID string
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool { return p.HasRole(RoleAdmin) }

// CanAccess reports whether the caller may act on data owned by ownerID.
// Admins can act on everything.
func (p *Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.IsAdmin() || p.UserID == ownerID
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns nil for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// RolesFor lists the token roles of an account. The first entry is the
// primary role.
func RolesFor(isDoctor, isAdmin bool) []string {
	switch {
	case isDoctor:
		return []string{RoleDoctor}
	case isAdmin:
		return []string{RoleAdmin, RolePatient}
	default:
		return []string{RolePatient}
	}
}
