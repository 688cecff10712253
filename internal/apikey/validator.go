package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/identity"
)

const usageRecordTimeout = 5 * time.Second

// ValidationResult is the outcome of validating a presented secret.
// Err carries the differentiated reason for logging and auditing; the
// transport layer collapses it to a generic failure before it leaves
// the process.
type ValidationResult struct {
	Valid bool
	User  *identity.User
	Key   *APIKey
	Err   error
}

// IsRejection reports whether err is one of the fail-closed credential
// rejection reasons. Anything else coming out of validation is an
// infrastructure failure and must not be presented as a bad credential.
func IsRejection(err error) bool {
	return errors.Is(err, ErrKeyMalformed) ||
		errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrKeyDeactivated) ||
		errors.Is(err, ErrKeyExpired) ||
		errors.Is(err, ErrOwnerInactive)
}

// Validator authenticates presented API key secrets against the store.
type Validator struct {
	store     Store
	users     identity.Store
	generator *Generator
	logger    *zap.Logger
}

// NewValidator creates a new validator.
func NewValidator(store Store, users identity.Store, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		store:     store,
		users:     users,
		generator: NewGenerator(),
		logger:    logger,
	}
}

// Validate checks a presented secret end to end: format, lookup by
// hash, key state, expiry, and owner state. Usage accounting happens
// off the request path and never delays or fails validation.
func (v *Validator) Validate(ctx context.Context, secret string) *ValidationResult {
	if err := v.generator.ValidateFormat(secret); err != nil {
		return &ValidationResult{Err: err}
	}

	keyHash := v.generator.Hash(secret)
	key, err := v.store.GetByHash(ctx, keyHash)
	if err != nil {
		return &ValidationResult{Err: err}
	}

	if !key.IsActive {
		return &ValidationResult{Key: key, Err: ErrKeyDeactivated}
	}
	if key.IsExpired() {
		return &ValidationResult{Key: key, Err: ErrKeyExpired}
	}

	user, err := v.users.GetByID(ctx, key.UserID)
	if err != nil {
		// A missing owner fails closed like an inactive one; any other
		// store error is an infrastructure failure and must surface as
		// such, not as a credential rejection.
		if errors.Is(err, identity.ErrUserNotFound) {
			return &ValidationResult{Key: key, Err: ErrOwnerInactive}
		}
		return &ValidationResult{Key: key, Err: fmt.Errorf("look up key owner: %w", err)}
	}
	if !user.IsActive {
		return &ValidationResult{Key: key, Err: ErrOwnerInactive}
	}

	go v.recordUsage(key.ID)

	return &ValidationResult{
		Valid: true,
		User:  user,
		Key:   key,
	}
}

// recordUsage is best effort: a lost increment is acceptable, a slow
// store must not hold up request handling.
func (v *Validator) recordUsage(keyID string) {
	ctx, cancel := context.WithTimeout(context.Background(), usageRecordTimeout)
	defer cancel()

	if err := v.store.RecordUsage(ctx, keyID); err != nil {
		v.logger.Warn("failed to record api key usage",
			zap.String("key_id", keyID),
			zap.Error(err),
		)
	}
}
