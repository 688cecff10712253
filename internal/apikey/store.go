package apikey

import (
	"context"
	"errors"
)

// Internal error reasons. The gateway collapses all of these to a
// generic invalid-credential response; the differentiated form exists
// for server-side logs and audit only.
var (
	ErrKeyNotFound    = errors.New("API key not found")
	ErrKeyMalformed   = errors.New("invalid API key format")
	ErrKeyDeactivated = errors.New("API key is deactivated")
	ErrKeyExpired     = errors.New("API key has expired")
	ErrOwnerInactive  = errors.New("user account is inactive")
	ErrKeyDuplicate   = errors.New("API key already exists")
)

// Store is the persistence port for API key records. Implementations
// need only single-record atomic read-modify-write; no cross-key
// locking is required.
type Store interface {
	// Create persists a new key record
	Create(ctx context.Context, key *APIKey) error

	// GetByHash retrieves a key by its secret's SHA-256 digest
	GetByHash(ctx context.Context, keyHash string) (*APIKey, error)

	// GetByID retrieves a key by its id
	GetByID(ctx context.Context, id string) (*APIKey, error)

	// ListByUser retrieves all keys owned by a user
	ListByUser(ctx context.Context, userID string) ([]*APIKey, error)

	// ListByTenant retrieves all keys within a tenant
	ListByTenant(ctx context.Context, tenantID string) ([]*APIKey, error)

	// Update persists changes to an existing record
	Update(ctx context.Context, key *APIKey) error

	// RecordUsage increments the usage counter and stamps last-used
	RecordUsage(ctx context.Context, id string) error

	// Delete permanently removes a key record
	Delete(ctx context.Context, id string) error
}
