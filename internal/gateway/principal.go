// Package gateway authenticates incoming requests and enforces scope
// and role requirements on routes.
package gateway

import (
	"context"

	"github.com/netview-platform/authcore/internal/apikey"
	"github.com/netview-platform/authcore/internal/identity"
	"github.com/netview-platform/authcore/internal/scope"
)

// PrincipalKind distinguishes how a request authenticated.
type PrincipalKind string

const (
	// PrincipalSession is an interactive user with a verified session
	// token; its permissions come from the user's role.
	PrincipalSession PrincipalKind = "session"

	// PrincipalCredential is an API key; its permissions are the scopes
	// frozen into the key at issuance.
	PrincipalCredential PrincipalKind = "credential"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	Kind PrincipalKind
	User *identity.User

	// Key is set only for credential principals.
	Key *apikey.APIKey
}

// Scopes returns the scope set governing this principal: the key's
// frozen scopes for credentials, the user's effective scopes for
// sessions.
func (p *Principal) Scopes() ([]scope.Scope, error) {
	if p.Kind == PrincipalCredential && p.Key != nil {
		return scope.ParseSet(p.Key.Scopes)
	}
	return p.User.EffectiveScopes()
}

// Role returns the principal's user role.
func (p *Principal) Role() string {
	if p.User == nil {
		return ""
	}
	return p.User.Role
}

type contextKey struct{}

// WithPrincipal attaches a principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom extracts the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}
