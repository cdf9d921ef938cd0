package refresh

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresStoreFromDB(db), mock, db
}

func TestPostgresPutUpserts(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	expires := time.Now().Add(24 * time.Hour)
	q := `(?s)^INSERT\s+INTO\s+refresh_tokens.*ON\s+CONFLICT\s+\(user_id\).*DO\s+UPDATE\s+SET\s+token\s*=\s*EXCLUDED\.token`

	mock.ExpectExec(q).
		WithArgs("u1", "tok-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Put(context.Background(), "u1", "tok-1", expires); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresPutRejectsPastExpiry(t *testing.T) {
	store, _, db := newPostgresWithMock(t)
	defer db.Close()

	if err := store.Put(context.Background(), "u1", "tok-1", time.Now().Add(-time.Minute)); err == nil {
		t.Fatal("expected error for past expiry")
	}
}

func TestPostgresFindByTokenNotFound(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+user_id,\s*token,\s*expires_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1`
	mock.ExpectQuery(q).WithArgs("tok-x").WillReturnError(sql.ErrNoRows)

	if _, err := store.FindByToken(context.Background(), "tok-x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresFindByUserExpiredRecord(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+user_id,\s*token,\s*expires_at\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1`
	rows := sqlmock.NewRows([]string{"user_id", "token", "expires_at"}).
		AddRow("u1", "tok-1", time.Now().Add(-time.Minute))
	mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(rows)

	if _, err := store.FindByUser(context.Background(), "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record not masked: %v", err)
	}
}

func TestPostgresFindByUserSuccess(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	q := `(?s)^SELECT\s+user_id,\s*token,\s*expires_at\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1`
	rows := sqlmock.NewRows([]string{"user_id", "token", "expires_at"}).
		AddRow("u1", "tok-1", expires)
	mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(rows)

	record, err := store.FindByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindByUser failed: %v", err)
	}
	if record.Token != "tok-1" || record.UserID != "u1" || record.ExpiresAt != expires.Unix() {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestPostgresDeletesAreIdempotent(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1`).
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteByUser(context.Background(), "u1"); err != nil {
		t.Fatalf("DeleteByUser on empty table errored: %v", err)
	}
	if err := store.DeleteByToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("DeleteByToken on empty table errored: %v", err)
	}
}

func TestPostgresStorageErrorWraps(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id`).
		WithArgs("u1").
		WillReturnError(errors.New("connection refused"))

	if err := store.DeleteByUser(context.Background(), "u1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
