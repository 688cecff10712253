package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/auth"
	"github.com/netview-platform/authcore/internal/identity"
	"github.com/netview-platform/authcore/internal/scope"
)

const (
	// Bounds on the display name of a key
	nameMinLength = 1
	nameMaxLength = 100
)

// Service handles API key management: issuance, update, listing, and
// the deactivate/delete state machine.
type Service struct {
	store     Store
	generator *Generator
	logger    *zap.Logger
}

// NewService creates a new API key service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		generator: NewGenerator(),
		logger:    logger,
	}
}

// Create issues a new API key owned by the issuer. The full secret is
// generated once and returned only in this response. Non-platform
// issuers may only grant scopes their own effective scopes already
// grant; the check reads the issuer's scopes at this instant and the
// granted set is frozen into the record from then on.
func (s *Service) Create(ctx context.Context, issuer *identity.User, req *CreateRequest) (*CreateResponse, error) {
	if issuer == nil {
		return nil, fmt.Errorf("issuer is required")
	}
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateExpiry(req.ExpiresAt); err != nil {
		return nil, err
	}

	requested, err := scope.ParseSet(req.Scopes)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("at least one scope is required")
	}
	if err := s.checkEscalation(issuer, requested); err != nil {
		return nil, err
	}

	plainKey, prefix, keyHash, err := s.generator.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	key := &APIKey{
		ID:        uuid.New().String(),
		UserID:    issuer.ID,
		TenantID:  issuer.TenantID,
		Name:      req.Name,
		KeyPrefix: prefix,
		KeyHash:   keyHash,
		Scopes:    scope.Strings(requested),
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: time.Now(),
	}

	if err := s.store.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	s.logger.Info("api key created",
		zap.String("key_id", key.ID),
		zap.String("key_prefix", key.KeyPrefix),
		zap.String("user_id", issuer.ID),
		zap.String("tenant_id", issuer.TenantID),
	)

	return &CreateResponse{
		Key:       plainKey,
		ID:        key.ID,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}, nil
}

// Update applies a partial update to an existing key. Only the owner or
// a platform role may update; changed fields carry the same validations
// as creation, including the no-escalation check on scope changes.
func (s *Service) Update(ctx context.Context, actor *identity.User, id string, req *UpdateRequest) (*APIKey, error) {
	key, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrPlatform(actor, key); err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return nil, err
		}
		key.Name = *req.Name
	}
	if req.ExpiresAt != nil {
		if req.ExpiresAt.IsZero() {
			key.ExpiresAt = nil
		} else {
			if err := validateExpiry(req.ExpiresAt); err != nil {
				return nil, err
			}
			key.ExpiresAt = req.ExpiresAt
		}
	}
	if req.Scopes != nil {
		requested, err := scope.ParseSet(req.Scopes)
		if err != nil {
			return nil, err
		}
		if len(requested) == 0 {
			return nil, fmt.Errorf("at least one scope is required")
		}
		if err := s.checkEscalation(actor, requested); err != nil {
			return nil, err
		}
		key.Scopes = scope.Strings(requested)
	}
	if req.IsActive != nil {
		key.IsActive = *req.IsActive
	}

	if err := s.store.Update(ctx, key); err != nil {
		return nil, err
	}
	return key.Sanitized(), nil
}

// ListForUser returns all keys owned by a user, hashes stripped.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*APIKey, error) {
	keys, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return sanitizeAll(keys), nil
}

// ListForTenant returns all keys within a tenant, hashes stripped.
func (s *Service) ListForTenant(ctx context.Context, tenantID string) ([]*APIKey, error) {
	keys, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return sanitizeAll(keys), nil
}

// Get returns a single key, hash stripped, for its owner or a platform
// role.
func (s *Service) Get(ctx context.Context, actor *identity.User, id string) (*APIKey, error) {
	key, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrPlatform(actor, key); err != nil {
		return nil, err
	}
	return key.Sanitized(), nil
}

// Deactivate soft-disables a key; the action is reversible.
func (s *Service) Deactivate(ctx context.Context, actor *identity.User, id string) error {
	return s.setActive(ctx, actor, id, false)
}

// Reactivate re-enables a deactivated key.
func (s *Service) Reactivate(ctx context.Context, actor *identity.User, id string) error {
	return s.setActive(ctx, actor, id, true)
}

// Delete permanently removes a key. Terminal: a deleted key cannot be
// revived.
func (s *Service) Delete(ctx context.Context, actor *identity.User, id string) error {
	key, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwnerOrPlatform(actor, key); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("api key deleted",
		zap.String("key_id", id),
		zap.String("key_prefix", key.KeyPrefix),
		zap.String("actor_id", actor.ID),
	)
	return nil
}

func (s *Service) setActive(ctx context.Context, actor *identity.User, id string, active bool) error {
	key, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwnerOrPlatform(actor, key); err != nil {
		return err
	}

	key.IsActive = active
	if err := s.store.Update(ctx, key); err != nil {
		return err
	}

	s.logger.Info("api key state changed",
		zap.String("key_id", id),
		zap.Bool("is_active", active),
		zap.String("actor_id", actor.ID),
	)
	return nil
}

// checkEscalation enforces that non-platform issuers cannot grant a
// scope their own effective scopes do not already grant.
func (s *Service) checkEscalation(issuer *identity.User, requested []scope.Scope) error {
	if issuer.IsPlatform() {
		return nil
	}

	held, err := issuer.EffectiveScopes()
	if err != nil {
		return fmt.Errorf("resolve issuer scopes: %w", err)
	}

	for _, r := range requested {
		if !scope.HasPermission(held, r) {
			return fmt.Errorf("%w: %s", auth.ErrEscalationDenied, r)
		}
	}
	return nil
}

func requireOwnerOrPlatform(actor *identity.User, key *APIKey) error {
	if actor == nil {
		return auth.ErrInsufficientPermissions
	}
	if actor.ID == key.UserID || actor.IsPlatform() {
		return nil
	}
	return auth.ErrInsufficientPermissions
}

func validateName(name string) error {
	if len(name) < nameMinLength || len(name) > nameMaxLength {
		return fmt.Errorf("name must be between %d and %d characters", nameMinLength, nameMaxLength)
	}
	return nil
}

func validateExpiry(expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return fmt.Errorf("expires_at must be in the future")
	}
	return nil
}

func sanitizeAll(keys []*APIKey) []*APIKey {
	out := make([]*APIKey, len(keys))
	for i, k := range keys {
		out[i] = k.Sanitized()
	}
	return out
}
