package rest

import (
	"net/http"

	"github.com/netview-platform/authcore/internal/gateway"
	"github.com/netview-platform/authcore/internal/roles"
	"github.com/netview-platform/authcore/internal/scope"
)

// listScopes returns the static catalog of grantable scopes. This is
// the single source of truth for key-creation UIs.
func (s *Server) listScopes(w http.ResponseWriter, r *http.Request) {
	catalog := scope.Catalog()

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"scopes": catalog,
		"count":  len(catalog),
	})
}

// listRoles returns the role templates, least to most privileged.
func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"roles": roles.GetRoleTemplates(),
	})
}

// whoami describes the authenticated principal: who it is, how it
// authenticated, and which scopes govern it.
func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principalOr401(w, r)
	if !ok {
		return
	}

	held, err := principal.Scopes()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"internal server error", "")
		return
	}

	data := map[string]interface{}{
		"principal": string(principal.Kind),
		"user_id":   principal.User.ID,
		"email":     principal.User.Email,
		"role":      principal.User.Role,
		"tenant_id": principal.User.TenantID,
		"scopes":    scope.Strings(held),
	}
	if principal.Kind == gateway.PrincipalCredential && principal.Key != nil {
		data["key_id"] = principal.Key.ID
		data["key_prefix"] = principal.Key.KeyPrefix
	}

	s.respondJSON(w, http.StatusOK, data)
}
