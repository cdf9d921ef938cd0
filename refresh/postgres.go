package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"tokengate/refresh/migrations"
)

// PostgresStore keeps refresh-token records in a table keyed by user id.
// The primary-key upsert in Put gives the same atomic-replace guarantee the
// Redis store gets from its Lua script.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pgx-backed connection for the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection pool.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunMigrations applies the embedded goose migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Put atomically replaces the user's record via upsert.
func (s *PostgresStore) Put(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if time.Until(expiresAt) <= 0 {
		return errors.New("refresh record expiry is in the past")
	}

	query := `INSERT INTO refresh_tokens (user_id, token, expires_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id)
	          DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at`

	if _, err := s.db.ExecContext(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FindByUser returns the user's live record or ErrNotFound.
func (s *PostgresStore) FindByUser(ctx context.Context, userID string) (*Record, error) {
	query := `SELECT user_id, token, expires_at FROM refresh_tokens
	          WHERE user_id = $1`

	return s.scanRecord(s.db.QueryRowContext(ctx, query, userID))
}

// FindByToken returns the record matching the literal token string or
// ErrNotFound.
func (s *PostgresStore) FindByToken(ctx context.Context, tokenStr string) (*Record, error) {
	query := `SELECT user_id, token, expires_at FROM refresh_tokens
	          WHERE token = $1`

	return s.scanRecord(s.db.QueryRowContext(ctx, query, tokenStr))
}

func (s *PostgresStore) scanRecord(row *sql.Row) (*Record, error) {
	var (
		record    Record
		expiresAt time.Time
	)
	if err := row.Scan(&record.UserID, &record.Token, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	record.ExpiresAt = expiresAt.Unix()
	if record.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &record, nil
}

// DeleteByUser removes the user's record. Idempotent.
func (s *PostgresStore) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteByToken removes the record carrying this token. Idempotent.
func (s *PostgresStore) DeleteByToken(ctx context.Context, tokenStr string) error {
	query := `DELETE FROM refresh_tokens WHERE token = $1`

	if _, err := s.db.ExecContext(ctx, query, tokenStr); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
