package apikey

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore provides in-memory API key storage for tests and local
// development. Thread-safe using sync.RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*APIKey
	byHash map[string]string // hash -> id
}

// NewMemoryStore creates a new in-memory API key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*APIKey),
		byHash: make(map[string]string),
	}
}

// Create persists a new key record.
func (s *MemoryStore) Create(ctx context.Context, key *APIKey) error {
	if key == nil {
		return errors.New("api key is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[key.ID]; exists {
		return ErrKeyDuplicate
	}
	if _, exists := s.byHash[key.KeyHash]; exists {
		return ErrKeyDuplicate
	}

	cp := copyKey(key)
	s.byID[key.ID] = cp
	s.byHash[key.KeyHash] = key.ID
	return nil
}

// GetByHash retrieves a key by its secret's SHA-256 digest.
func (s *MemoryStore) GetByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[keyHash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(s.byID[id]), nil
}

// GetByID retrieves a key by its id.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byID[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(key), nil
}

// ListByUser retrieves all keys owned by a user.
func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []*APIKey
	for _, k := range s.byID {
		if k.UserID == userID {
			keys = append(keys, copyKey(k))
		}
	}
	return keys, nil
}

// ListByTenant retrieves all keys within a tenant.
func (s *MemoryStore) ListByTenant(ctx context.Context, tenantID string) ([]*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []*APIKey
	for _, k := range s.byID {
		if k.TenantID == tenantID {
			keys = append(keys, copyKey(k))
		}
	}
	return keys, nil
}

// Update persists changes to an existing record.
func (s *MemoryStore) Update(ctx context.Context, key *APIKey) error {
	if key == nil {
		return errors.New("api key is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[key.ID]
	if !ok {
		return ErrKeyNotFound
	}

	cp := copyKey(key)
	cp.KeyHash = existing.KeyHash // hash is immutable after creation
	cp.UpdatedAt = time.Now()
	s.byID[key.ID] = cp
	return nil
}

// RecordUsage increments the usage counter and stamps last-used.
func (s *MemoryStore) RecordUsage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok {
		return ErrKeyNotFound
	}

	now := time.Now()
	key.UsageCount++
	key.LastUsedAt = &now
	return nil
}

// Delete permanently removes a key record.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok {
		return ErrKeyNotFound
	}

	delete(s.byHash, key.KeyHash)
	delete(s.byID, id)
	return nil
}

func copyKey(k *APIKey) *APIKey {
	cp := *k
	if k.Scopes != nil {
		cp.Scopes = append([]string(nil), k.Scopes...)
	}
	return &cp
}
