package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore provides in-memory user storage for tests and local
// development. Thread-safe using sync.RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User // user ID -> user
}

// NewMemoryStore creates a new in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
	}
}

// GetByID retrieves a user by id.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by email.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// Create persists a new user.
func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("user is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return ErrDuplicateUser
	}

	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = cp.CreatedAt
	s.users[u.ID] = &cp
	return nil
}

// Update persists changes to an existing user.
func (s *MemoryStore) Update(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("user is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; !exists {
		return ErrUserNotFound
	}

	cp := *u
	cp.UpdatedAt = time.Now()
	s.users[u.ID] = &cp
	return nil
}
