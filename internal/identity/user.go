// Package identity provides the user port the authorization core
// resolves principals against. User lifecycle beyond provisioning lives
// in the platform backend; this core only needs lookup and scope
// derivation.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/netview-platform/authcore/internal/roles"
	"github.com/netview-platform/authcore/internal/scope"
)

// User is a persistent human identity with a role and tenant membership.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Role      string     `json:"role"`
	TenantID  string     `json:"tenant_id"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`

	// CustomScopes, when non-empty, replace the role-derived defaults
	// and are frozen against later role changes.
	CustomScopes []string `json:"custom_scopes,omitempty"`
}

// IsPlatform reports whether the user's role carries platform privileges.
func (u *User) IsPlatform() bool {
	return roles.IsPlatform(u.Role)
}

// EffectiveScopes returns the scopes the user currently holds: the
// custom set if one was granted, otherwise the role template defaults
// (which track role changes implicitly).
func (u *User) EffectiveScopes() ([]scope.Scope, error) {
	if len(u.CustomScopes) > 0 {
		return scope.ParseSet(u.CustomScopes)
	}
	return roles.ScopesForRole(u.Role), nil
}

// Provision creates a new user account. The role template supplies the
// default scope set implicitly; only explicitly customized grants are
// stored per user.
func Provision(ctx context.Context, store Store, u *User) error {
	if !roles.IsValid(u.Role) {
		return fmt.Errorf("unknown role %q", u.Role)
	}
	if len(u.CustomScopes) > 0 {
		if _, err := scope.ParseSet(u.CustomScopes); err != nil {
			return err
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.IsActive = true
	return store.Create(ctx, u)
}
