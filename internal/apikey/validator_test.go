package apikey

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netview-platform/authcore/internal/identity"
	"github.com/netview-platform/authcore/internal/roles"
)

type validatorFixture struct {
	validator *Validator
	service   *Service
	keys      *MemoryStore
	users     *identity.MemoryStore
	owner     *identity.User
}

func newValidatorFixture(t *testing.T) *validatorFixture {
	t.Helper()

	keys := NewMemoryStore()
	users := identity.NewMemoryStore()

	owner := &identity.User{
		ID:       "user-owner",
		Email:    "owner@acme.example",
		Role:     roles.RoleEditor,
		TenantID: "acme",
		IsActive: true,
	}
	require.NoError(t, users.Create(context.Background(), owner))

	return &validatorFixture{
		validator: NewValidator(keys, users, zap.NewNop()),
		service:   NewService(keys, zap.NewNop()),
		keys:      keys,
		users:     users,
		owner:     owner,
	}
}

func (f *validatorFixture) issueKey(t *testing.T, expiresAt *time.Time) (string, string) {
	t.Helper()
	resp, err := f.service.Create(context.Background(), f.owner, &CreateRequest{
		Name:      "probe-runner",
		Scopes:    []string{"*:*:probes:read", "*:*:probes:execute"},
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	return resp.Key, resp.ID
}

func TestValidateSuccess(t *testing.T) {
	f := newValidatorFixture(t)
	secret, keyID := f.issueKey(t, nil)

	result := f.validator.Validate(context.Background(), secret)
	require.NoError(t, result.Err)
	assert.True(t, result.Valid)
	assert.Equal(t, f.owner.ID, result.User.ID)
	assert.Equal(t, keyID, result.Key.ID)
}

func TestValidateMalformedSkipsLookup(t *testing.T) {
	f := newValidatorFixture(t)

	result := f.validator.Validate(context.Background(), "not-an-api-key")
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err, ErrKeyMalformed)
	assert.Nil(t, result.Key)
}

func TestValidateUnknownKey(t *testing.T) {
	f := newValidatorFixture(t)

	unknown, _, _, err := NewGenerator().Generate()
	require.NoError(t, err)

	result := f.validator.Validate(context.Background(), unknown)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err, ErrKeyNotFound)
}

func TestValidateDeactivatedKey(t *testing.T) {
	f := newValidatorFixture(t)
	secret, keyID := f.issueKey(t, nil)

	require.NoError(t, f.service.Deactivate(context.Background(), f.owner, keyID))

	result := f.validator.Validate(context.Background(), secret)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err, ErrKeyDeactivated)
	assert.EqualError(t, result.Err, "API key is deactivated")
}

func TestValidateReactivatedKeyWorksAgain(t *testing.T) {
	f := newValidatorFixture(t)
	secret, keyID := f.issueKey(t, nil)
	ctx := context.Background()

	require.NoError(t, f.service.Deactivate(ctx, f.owner, keyID))
	require.NoError(t, f.service.Reactivate(ctx, f.owner, keyID))

	result := f.validator.Validate(ctx, secret)
	assert.True(t, result.Valid)
}

func TestValidateExpiredKey(t *testing.T) {
	f := newValidatorFixture(t)
	future := time.Now().Add(50 * time.Millisecond)
	secret, _ := f.issueKey(t, &future)

	time.Sleep(100 * time.Millisecond)

	result := f.validator.Validate(context.Background(), secret)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err, ErrKeyExpired)
}

func TestValidateInactiveOwner(t *testing.T) {
	f := newValidatorFixture(t)
	secret, _ := f.issueKey(t, nil)
	ctx := context.Background()

	f.owner.IsActive = false
	require.NoError(t, f.users.Update(ctx, f.owner))

	result := f.validator.Validate(ctx, secret)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err, ErrOwnerInactive)
}

func TestValidateRecordsUsageAsynchronously(t *testing.T) {
	f := newValidatorFixture(t)
	secret, keyID := f.issueKey(t, nil)
	ctx := context.Background()

	result := f.validator.Validate(ctx, secret)
	require.True(t, result.Valid)

	assert.Eventually(t, func() bool {
		key, err := f.keys.GetByID(ctx, keyID)
		return err == nil && key.UsageCount == 1 && key.LastUsedAt != nil
	}, time.Second, 10*time.Millisecond)

	result = f.validator.Validate(ctx, secret)
	require.True(t, result.Valid)

	assert.Eventually(t, func() bool {
		key, err := f.keys.GetByID(ctx, keyID)
		return err == nil && key.UsageCount == 2
	}, time.Second, 10*time.Millisecond)
}

type failingKeyStore struct {
	*MemoryStore
}

func (s *failingKeyStore) GetByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	return nil, errors.New("connection refused")
}

type failingUserStore struct {
	*identity.MemoryStore
}

func (s *failingUserStore) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return nil, errors.New("connection refused")
}

func TestValidateStoreFailureIsNotARejection(t *testing.T) {
	f := newValidatorFixture(t)
	secret, _ := f.issueKey(t, nil)

	broken := NewValidator(&failingKeyStore{f.keys}, f.users, zap.NewNop())

	result := broken.Validate(context.Background(), secret)
	require.False(t, result.Valid)
	require.Error(t, result.Err)
	assert.False(t, IsRejection(result.Err))
	assert.NotErrorIs(t, result.Err, ErrKeyNotFound)
}

func TestValidateOwnerLookupFailureIsNotOwnerInactive(t *testing.T) {
	f := newValidatorFixture(t)
	secret, _ := f.issueKey(t, nil)

	broken := NewValidator(f.keys, &failingUserStore{f.users}, zap.NewNop())

	result := broken.Validate(context.Background(), secret)
	require.False(t, result.Valid)
	require.Error(t, result.Err)
	assert.NotErrorIs(t, result.Err, ErrOwnerInactive)
	assert.False(t, IsRejection(result.Err))
}

func TestIsRejection(t *testing.T) {
	for _, err := range []error{
		ErrKeyMalformed,
		ErrKeyNotFound,
		ErrKeyDeactivated,
		ErrKeyExpired,
		ErrOwnerInactive,
	} {
		assert.True(t, IsRejection(err), err.Error())
	}

	assert.True(t, IsRejection(fmt.Errorf("wrapped: %w", ErrKeyExpired)))
	assert.False(t, IsRejection(errors.New("connection refused")))
	assert.False(t, IsRejection(nil))
}

func TestValidateFailureDoesNotRecordUsage(t *testing.T) {
	f := newValidatorFixture(t)
	secret, keyID := f.issueKey(t, nil)
	ctx := context.Background()

	require.NoError(t, f.service.Deactivate(ctx, f.owner, keyID))

	result := f.validator.Validate(ctx, secret)
	require.False(t, result.Valid)

	time.Sleep(50 * time.Millisecond)
	key, err := f.keys.GetByID(ctx, keyID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), key.UsageCount)
}
