package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}
	return &PostgresStore{db: db}, nil
}

const userColumns = `id, email, name, role, tenant_id, is_active, custom_scopes, created_at, updated_at, last_login`

func (s *PostgresStore) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var scopesJSON []byte

	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.TenantID, &u.IsActive,
		&scopesJSON, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if len(scopesJSON) > 0 {
		if err := json.Unmarshal(scopesJSON, &u.CustomScopes); err != nil {
			return nil, fmt.Errorf("unmarshal custom scopes: %w", err)
		}
	}

	return u, nil
}

// GetByID retrieves a user by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// Create persists a new user.
func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.UpdatedAt = u.CreatedAt

	scopesJSON, err := marshalScopes(u.CustomScopes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, email, name, role, tenant_id, is_active, custom_scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Name, u.Role, u.TenantID, u.IsActive,
		scopesJSON, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update persists changes to an existing user.
func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	u.UpdatedAt = time.Now()

	scopesJSON, err := marshalScopes(u.CustomScopes)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET email = $2, name = $3, role = $4, tenant_id = $5, is_active = $6,
		    custom_scopes = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Name, u.Role, u.TenantID, u.IsActive,
		scopesJSON, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func marshalScopes(scopes []string) ([]byte, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(scopes)
	if err != nil {
		return nil, fmt.Errorf("marshal custom scopes: %w", err)
	}
	return b, nil
}
