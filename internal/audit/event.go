// Package audit emits structured authentication and authorization
// events to a configurable sink, off the request path.
package audit

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// EventType identifies the kind of audit event.
type EventType string

const (
	EventTypeKeyValidation  EventType = "key_validation"
	EventTypeAuthzDecision  EventType = "authz_decision"
	EventTypeKeyLifecycle   EventType = "key_lifecycle"
	EventTypeSystemStartup  EventType = "system_startup"
	EventTypeSystemShutdown EventType = "system_shutdown"
)

// Decision is the outcome of an authorization check.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Event is a single audit record. KeyPrefix is the only credential
// material that ever appears here; full secrets and hashes never do.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	EventID   string                 `json:"event_id"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	TenantID  string                 `json:"tenant_id,omitempty"`
	KeyID     string                 `json:"key_id,omitempty"`
	KeyPrefix string                 `json:"key_prefix,omitempty"`
	Decision  Decision               `json:"decision,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Scopes    []string               `json:"scopes,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func generateEventID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "evt-" + hex.EncodeToString(b)
}
