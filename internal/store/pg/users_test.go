package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"bookvault.org/internal/auth"
)

func TestUserStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("select id, username, email, password_hash, is_staff, password_last_change, created_at, updated_at.*from users where id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_staff", "password_last_change", "created_at", "updated_at"}).
			AddRow("u1", "alice", "a@example.com", "hash", false, nil, now, now))
	mock.ExpectQuery("select codename from user_permissions").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"codename"}).AddRow("add_book").AddRow("view_book"))

	store := NewWithDB(db)
	user, err := store.Users(context.Background()).Find(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("unexpected username: %s", user.Username)
	}
	if len(user.Permissions) != 2 {
		t.Fatalf("expected 2 permissions, got %v", user.Permissions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserStoreFindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, username, email").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewWithDB(db)
	if _, err := store.Users(context.Background()).Find(context.Background(), "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WithArgs("u1", "alice", "a@example.com", "hash", false, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_permissions").
		WithArgs("u1", "view_book").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewWithDB(db)
	err = store.Users(context.Background()).Create(context.Background(), &auth.User{
		ID: "u1", Username: "alice", Email: "a@example.com", PasswordHash: "hash",
		Permissions: []string{"view_book"}, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRefreshTokenStoreBlacklistIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Now().UTC()
	// First call flips the row.
	mock.ExpectExec("update outstanding_tokens").
		WithArgs("jti-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second call touches nothing but the row still exists.
	mock.ExpectExec("update outstanding_tokens").
		WithArgs("jti-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewWithDB(db)
	tokens := store.RefreshTokens(context.Background())
	if err := tokens.MarkBlacklisted(context.Background(), "jti-1", at); err != nil {
		t.Fatalf("first MarkBlacklisted: %v", err)
	}
	if err := tokens.MarkBlacklisted(context.Background(), "jti-1", at); err != nil {
		t.Fatalf("second MarkBlacklisted: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRefreshTokenStoreBlacklistMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Now().UTC()
	mock.ExpectExec("update outstanding_tokens").
		WithArgs("nope", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	store := NewWithDB(db)
	if err := store.RefreshTokens(context.Background()).MarkBlacklisted(context.Background(), "nope", at); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
