package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore implements Store against a PostgreSQL account table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool to the account database and
// verifies connectivity before returning.
func NewPostgresStore(url string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the account table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_login (
			tenant         TEXT NOT NULL,
			user_login_id  TEXT NOT NULL,
			enabled        TEXT,
			has_logged_out BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (tenant, user_login_id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create user_login table: %w", err)
	}
	return nil
}

// Lookup implements Store
func (s *PostgresStore) Lookup(ctx context.Context, tenant, id string) (*Principal, error) {
	var enabled sql.NullString
	var loggedOut bool
	err := s.db.QueryRowContext(ctx,
		"SELECT enabled, has_logged_out FROM user_login WHERE tenant = $1 AND user_login_id = $2",
		tenant, id,
	).Scan(&enabled, &loggedOut)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account %s/%s: %w", tenant, id, err)
	}

	return &Principal{
		ID:           id,
		Tenant:       tenant,
		Enabled:      enabled.String,
		HasLoggedOut: loggedOut,
	}, nil
}

// SetLoggedOut implements Store
func (s *PostgresStore) SetLoggedOut(ctx context.Context, tenant, id string, loggedOut bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE user_login SET has_logged_out = $3 WHERE tenant = $1 AND user_login_id = $2",
		tenant, id, loggedOut,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %s/%s: %w", tenant, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping verifies database connectivity; used by the readiness probe
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
