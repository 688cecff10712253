package gateway

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/audit"
	"github.com/netview-platform/authcore/internal/auth"
	"github.com/netview-platform/authcore/internal/scope"
)

// Denial is the structured payload returned on an authorization
// failure. UserScopes is only populated when the caller owns the
// denied credential.
type Denial struct {
	Error          string   `json:"error"`
	RequiredScopes []string `json:"required_scopes,omitempty"`
	RequiredRoles  []string `json:"required_roles,omitempty"`
	UserScopes     []string `json:"user_scopes,omitempty"`
}

// RequireScopes enforces that credential principals satisfy every
// listed scope. Session principals pass through untouched: their
// permissions are their full role, checked by role-aware routes.
// Scope literals are static route declarations, so a malformed one
// panics at wiring time.
func (g *Gateway) RequireScopes(required ...string) func(http.Handler) http.Handler {
	requiredScopes := mustParseAll(required)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				g.deny(w, http.StatusUnauthorized, auth.ErrAuthenticationRequired.Error())
				return
			}

			if principal.Kind == PrincipalSession {
				g.observeDecision("allow", principal)
				next.ServeHTTP(w, r)
				return
			}

			held, err := principal.Scopes()
			if err != nil {
				g.logger.Error("failed to resolve principal scopes", zap.Error(err))
				g.deny(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !scope.SatisfiesAll(held, requiredScopes) {
				g.denyAuthorization(w, principal, requiredScopes, nil, held)
				return
			}

			g.observeDecision("allow", principal)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoleOrScopes grants access when a session principal's role is
// one of roles, or when a credential principal's scopes satisfy scopes.
func (g *Gateway) RequireRoleOrScopes(roles []string, scopes []string) func(http.Handler) http.Handler {
	requiredScopes := mustParseAll(scopes)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				g.deny(w, http.StatusUnauthorized, auth.ErrAuthenticationRequired.Error())
				return
			}

			// Credentials never inherit their owner's role; only the
			// scope path below applies to them.
			if principal.Kind == PrincipalSession {
				for _, role := range roles {
					if principal.Role() == role {
						g.observeDecision("allow", principal)
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			if principal.Kind == PrincipalCredential && len(requiredScopes) > 0 {
				held, err := principal.Scopes()
				if err != nil {
					g.logger.Error("failed to resolve principal scopes", zap.Error(err))
					g.deny(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if scope.SatisfiesAll(held, requiredScopes) {
					g.observeDecision("allow", principal)
					next.ServeHTTP(w, r)
					return
				}
				g.denyAuthorization(w, principal, requiredScopes, roles, held)
				return
			}

			g.denyAuthorization(w, principal, requiredScopes, roles, nil)
		})
	}
}

func (g *Gateway) denyAuthorization(w http.ResponseWriter, principal *Principal, requiredScopes []scope.Scope, requiredRoles []string, held []scope.Scope) {
	denial := Denial{
		Error:          auth.ErrInsufficientPermissions.Error(),
		RequiredScopes: scope.Strings(requiredScopes),
		RequiredRoles:  requiredRoles,
	}
	// Held scopes are the credential owner's own grant list; sessions
	// and third parties never see them.
	if principal.Kind == PrincipalCredential {
		denial.UserScopes = scope.Strings(held)
	}

	g.observeDecision("deny", principal)
	event := audit.Event{
		EventType: audit.EventTypeAuthzDecision,
		Decision:  audit.DecisionDeny,
		Reason:    denial.Error,
		UserID:    principal.User.ID,
		TenantID:  principal.User.TenantID,
		Scopes:    denial.RequiredScopes,
	}
	if principal.Key != nil {
		event.KeyID = principal.Key.ID
		event.KeyPrefix = principal.Key.KeyPrefix
	}
	g.audit.Record(event)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(denial)
}

func (g *Gateway) observeDecision(outcome string, principal *Principal) {
	if g.metrics != nil {
		g.metrics.ObserveDecision(outcome, string(principal.Kind))
	}
}

func mustParseAll(literals []string) []scope.Scope {
	scopes := make([]scope.Scope, 0, len(literals))
	for _, lit := range literals {
		scopes = append(scopes, scope.MustParse(lit))
	}
	return scopes
}
