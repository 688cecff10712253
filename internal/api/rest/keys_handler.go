package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/apikey"
	"github.com/netview-platform/authcore/internal/audit"
	"github.com/netview-platform/authcore/internal/auth"
)

// createKey issues a new API key. The response is the only place the
// full secret ever appears.
func (s *Server) createKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principalOr401(w, r)
	if !ok {
		return
	}

	var req apikey.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid JSON payload", err.Error())
		return
	}

	resp, err := s.keys.Create(r.Context(), principal.User, &req)
	if err != nil {
		if errors.Is(err, auth.ErrEscalationDenied) {
			s.respondError(w, http.StatusForbidden, "ESCALATION_DENIED",
				auth.ErrEscalationDenied.Error(), err.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, "CREATE_FAILED",
			"failed to create API key", err.Error())
		return
	}

	s.observeKeyOperation("create")
	s.audit.Record(audit.Event{
		EventType: audit.EventTypeKeyLifecycle,
		UserID:    principal.User.ID,
		TenantID:  principal.User.TenantID,
		KeyID:     resp.ID,
		KeyPrefix: resp.KeyPrefix,
		Scopes:    resp.Scopes,
		Data:      map[string]interface{}{"operation": "create"},
	})

	s.respondJSON(w, http.StatusCreated, resp)
}

// listKeys lists the caller's keys; admins may pass ?all=true to list
// every key in their tenant.
func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principalOr401(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("all") == "true" {
		if !isAdminRole(principal.User.Role) {
			s.respondError(w, http.StatusForbidden, "FORBIDDEN",
				"tenant-wide listing requires an admin role", "")
			return
		}
		keys, err := s.keys.ListForTenant(r.Context(), principal.User.TenantID)
		if err != nil {
			s.internalError(w, "list tenant keys", err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"keys":  keys,
			"count": len(keys),
		})
		return
	}

	keys, err := s.keys.ListForUser(r.Context(), principal.User.ID)
	if err != nil {
		s.internalError(w, "list user keys", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

// getKey returns a single key's metadata.
func (s *Server) getKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principalOr401(w, r)
	if !ok {
		return
	}

	key, err := s.keys.Get(r.Context(), principal.User, mux.Vars(r)["id"])
	if err != nil {
		s.keyError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, key)
}

// updateKey applies a partial update to a key.
func (s *Server) updateKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principalOr401(w, r)
	if !ok {
		return
	}

	var req apikey.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid JSON payload", err.Error())
		return
	}

	key, err := s.keys.Update(r.Context(), principal.User, mux.Vars(r)["id"], &req)
	if err != nil {
		if errors.Is(err, auth.ErrEscalationDenied) {
			s.respondError(w, http.StatusForbidden, "ESCALATION_DENIED",
				auth.ErrEscalationDenied.Error(), err.Error())
			return
		}
		s.keyError(w, err)
		return
	}

	s.observeKeyOperation("update")
	s.respondJSON(w, http.StatusOK, key)
}

// deactivateKey soft-disables a key; reversible via activate.
func (s *Server) deactivateKey(w http.ResponseWriter, r *http.Request) {
	s.setKeyActive(w, r, false)
}

// activateKey re-enables a deactivated key.
func (s *Server) activateKey(w http.ResponseWriter, r *http.Request) {
	s.setKeyActive(w, r, true)
}

func (s *Server) setKeyActive(w http.ResponseWriter, r *http.Request, active bool) {
	principal, ok := s.principalOr401(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	var err error
	operation := "deactivate"
	if active {
		operation = "activate"
		err = s.keys.Reactivate(r.Context(), principal.User, id)
	} else {
		err = s.keys.Deactivate(r.Context(), principal.User, id)
	}
	if err != nil {
		s.keyError(w, err)
		return
	}

	s.observeKeyOperation(operation)
	s.audit.Record(audit.Event{
		EventType: audit.EventTypeKeyLifecycle,
		UserID:    principal.User.ID,
		TenantID:  principal.User.TenantID,
		KeyID:     id,
		Data:      map[string]interface{}{"operation": operation},
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":        id,
		"is_active": active,
	})
}

// deleteKey permanently removes a key.
func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principalOr401(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.keys.Delete(r.Context(), principal.User, id); err != nil {
		s.keyError(w, err)
		return
	}

	s.observeKeyOperation("delete")
	s.audit.Record(audit.Event{
		EventType: audit.EventTypeKeyLifecycle,
		UserID:    principal.User.ID,
		TenantID:  principal.User.TenantID,
		KeyID:     id,
		Data:      map[string]interface{}{"operation": "delete"},
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

// keyError maps service errors onto HTTP statuses without leaking
// store internals.
func (s *Server) keyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apikey.ErrKeyNotFound):
		s.respondError(w, http.StatusNotFound, "KEY_NOT_FOUND",
			apikey.ErrKeyNotFound.Error(), "")
	case errors.Is(err, auth.ErrInsufficientPermissions):
		s.respondError(w, http.StatusForbidden, "FORBIDDEN",
			auth.ErrInsufficientPermissions.Error(), "")
	default:
		s.respondError(w, http.StatusBadRequest, "REQUEST_FAILED",
			"request failed", err.Error())
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"internal server error", "")
}

func (s *Server) observeKeyOperation(operation string) {
	if s.metrics != nil {
		s.metrics.ObserveKeyOperation(operation)
	}
}
