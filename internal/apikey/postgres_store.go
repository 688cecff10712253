package apikey

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed API key store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}
	return &PostgresStore{db: db}, nil
}

const keyColumns = `id, user_id, tenant_id, name, key_prefix, key_hash, scopes,
       is_active, expires_at, usage_count, last_used_at, created_at, updated_at`

// Create persists a new key record. key.KeyHash must already contain
// the SHA-256 digest; plaintext never reaches the store.
func (s *PostgresStore) Create(ctx context.Context, key *APIKey) error {
	if key == nil {
		return errors.New("api key is nil")
	}
	if len(key.KeyHash) != 64 {
		return errors.New("key_hash must be a 64-character SHA-256 hex digest")
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	key.UpdatedAt = key.CreatedAt

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return fmt.Errorf("marshal scopes: %w", err)
	}

	query := `
		INSERT INTO api_keys (
			id, user_id, tenant_id, name, key_prefix, key_hash, scopes,
			is_active, expires_at, usage_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		key.ID, key.UserID, key.TenantID, key.Name, key.KeyPrefix, key.KeyHash,
		scopesJSON, key.IsActive, key.ExpiresAt, key.UsageCount,
		key.CreatedAt, key.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrKeyDuplicate
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByHash retrieves a key by its secret's SHA-256 digest.
func (s *PostgresStore) GetByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE key_hash = $1`
	return s.scanKey(s.db.QueryRowContext(ctx, query, keyHash))
}

// GetByID retrieves a key by its id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE id = $1`
	return s.scanKey(s.db.QueryRowContext(ctx, query, id))
}

// ListByUser retrieves all keys owned by a user, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`
	return s.queryKeys(ctx, query, userID)
}

// ListByTenant retrieves all keys within a tenant, newest first.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID string) ([]*APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC`
	return s.queryKeys(ctx, query, tenantID)
}

// Update persists changes to an existing record. The hash is immutable
// after creation and deliberately absent from the update list.
func (s *PostgresStore) Update(ctx context.Context, key *APIKey) error {
	if key == nil {
		return errors.New("api key is nil")
	}
	key.UpdatedAt = time.Now()

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return fmt.Errorf("marshal scopes: %w", err)
	}

	query := `
		UPDATE api_keys
		SET name = $2, scopes = $3, is_active = $4, expires_at = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		key.ID, key.Name, scopesJSON, key.IsActive, key.ExpiresAt, key.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// RecordUsage increments the usage counter and stamps last-used in a
// single statement; callers dispatch it off the request path.
func (s *PostgresStore) RecordUsage(ctx context.Context, id string) error {
	query := `
		UPDATE api_keys
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Delete permanently removes a key record.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *PostgresStore) scanKey(row *sql.Row) (*APIKey, error) {
	key := &APIKey{}
	var scopesJSON []byte

	err := row.Scan(
		&key.ID, &key.UserID, &key.TenantID, &key.Name, &key.KeyPrefix,
		&key.KeyHash, &scopesJSON, &key.IsActive, &key.ExpiresAt,
		&key.UsageCount, &key.LastUsedAt, &key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("query api key: %w", err)
	}

	if len(scopesJSON) > 0 {
		if err := json.Unmarshal(scopesJSON, &key.Scopes); err != nil {
			return nil, fmt.Errorf("unmarshal scopes: %w", err)
		}
	}
	return key, nil
}

func (s *PostgresStore) queryKeys(ctx context.Context, query string, arg interface{}) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		key := &APIKey{}
		var scopesJSON []byte

		err := rows.Scan(
			&key.ID, &key.UserID, &key.TenantID, &key.Name, &key.KeyPrefix,
			&key.KeyHash, &scopesJSON, &key.IsActive, &key.ExpiresAt,
			&key.UsageCount, &key.LastUsedAt, &key.CreatedAt, &key.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		if len(scopesJSON) > 0 {
			if err := json.Unmarshal(scopesJSON, &key.Scopes); err != nil {
				return nil, fmt.Errorf("unmarshal scopes: %w", err)
			}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return keys, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
