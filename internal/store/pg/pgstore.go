// Package pg implements the persistence contracts on PostgreSQL through
// database/sql and the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"bookvault.org/internal/auth"
	"bookvault.org/internal/books"
	"bookvault.org/internal/throttle"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

var _ auth.Store = (*Store)(nil)

// Open connects to PostgreSQL with pool defaults tuned for short
// request/response cycles.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection; used by tests and cmd/migrate.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users(ctx context.Context) auth.UserStore {
	return &userStore{db: s.db}
}

func (s *Store) Permissions(ctx context.Context) auth.PermissionStore {
	return &permissionStore{db: s.db}
}

func (s *Store) RefreshTokens(ctx context.Context) auth.RefreshTokenStore {
	return &refreshTokenStore{db: s.db}
}

// Books returns the book store view.
func (s *Store) Books() books.Store {
	return &bookStore{db: s.db}
}

// Throttle returns a database-backed throttle gate for the given rates.
func (s *Store) Throttle(rates map[string]throttle.Rate) throttle.Gate {
	if rates == nil {
		rates = throttle.DefaultRates()
	}
	return &throttleGate{db: s.db, rates: rates}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
