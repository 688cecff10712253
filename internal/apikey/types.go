// Package apikey implements the lifecycle of long-lived API keys:
// issuance, hashing, validation, expiration, usage accounting, and the
// no-escalation check at issuance time.
package apikey

import (
	"time"
)

// APIKey is the persisted API key record. The plaintext secret is never
// stored; KeyHash holds its SHA-256 digest and KeyPrefix a short
// non-secret leading substring kept for display and audit.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	TenantID   string     `json:"tenant_id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	KeyHash    string     `json:"-"` // never expose the hash
	Scopes     []string   `json:"scopes"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsExpired checks the expiration against the wall clock. Expiry is
// evaluated at validation time only; there is no background sweep.
func (k *APIKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*k.ExpiresAt)
}

// Sanitized returns a copy safe for any read path after creation: the
// hash is stripped, only prefix and metadata remain.
func (k *APIKey) Sanitized() *APIKey {
	cp := *k
	cp.KeyHash = ""
	return &cp
}

// CreateRequest is an issuance request.
type CreateRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateRequest is a partial update; nil fields are left unchanged.
// Setting ExpiresAt to the zero time clears the expiration.
type UpdateRequest struct {
	Name      *string    `json:"name,omitempty"`
	Scopes    []string   `json:"scopes,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateResponse carries the full secret exactly once, at creation.
// Every later read exposes only the sanitized record.
type CreateResponse struct {
	Key       string     `json:"key"`
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"key_prefix"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
