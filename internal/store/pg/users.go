package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookvault.org/internal/auth"
)

type userStore struct {
	db *sql.DB
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into users (id, username, email, password_hash, is_staff, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.IsStaff, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	for _, code := range u.Permissions {
		if _, err := tx.ExecContext(ctx, `
			insert into user_permissions (user_id, codename)
			values ($1, $2)
			on conflict do nothing
		`, u.ID, code); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return s.findBy(ctx, `where id = $1`, id)
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.findBy(ctx, `where username = $1`, username)
}

func (s *userStore) findBy(ctx context.Context, where string, arg any) (*auth.User, error) {
	var (
		u          auth.User
		lastChange sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, username, email, password_hash, is_staff, password_last_change, created_at, updated_at
		from users `+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &lastChange, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastChange.Valid {
		at := lastChange.Time
		u.PasswordLastChange = &at
	}
	perms, err := s.permissionsFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Permissions = perms
	return &u, nil
}

func (s *userStore) permissionsFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select codename from user_permissions where user_id = $1 order by codename
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *userStore) List(ctx context.Context, offset, limit int) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, username, email, password_hash, is_staff, password_last_change, created_at, updated_at
		from users
		order by id
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.User
	for rows.Next() {
		var (
			u          auth.User
			lastChange sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &lastChange, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if lastChange.Valid {
			at := lastChange.Time
			u.PasswordLastChange = &at
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		perms, err := s.permissionsFor(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Permissions = perms
	}
	return result, nil
}

func (s *userStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *userStore) GrantPermissions(ctx context.Context, userID string, codenames []string) error {
	for _, code := range codenames {
		_, err := s.db.ExecContext(ctx, `
			insert into user_permissions (user_id, codename)
			values ($1, $2)
			on conflict do nothing
		`, userID, code)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return auth.ErrNotFound
			}
			return err
		}
	}
	return nil
}

func (s *userStore) UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set password_hash = $2, password_last_change = $3, updated_at = $3
		where id = $1
	`, userID, passwordHash, changedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

type permissionStore struct {
	db *sql.DB
}

func (s *permissionStore) Ensure(ctx context.Context, perms []auth.Permission) error {
	for _, p := range perms {
		if _, err := s.db.ExecContext(ctx, `
			insert into permissions (codename, name)
			values ($1, $2)
			on conflict (codename) do nothing
		`, p.Codename, p.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *permissionStore) List(ctx context.Context) ([]auth.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select codename, name from permissions order by codename
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Permission
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.Codename, &p.Name); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type refreshTokenStore struct {
	db *sql.DB
}

func (s *refreshTokenStore) Create(ctx context.Context, tok *auth.OutstandingToken) error {
	_, err := s.db.ExecContext(ctx, `
		insert into outstanding_tokens (id, user_id, expires_at, created_at, blacklisted)
		values ($1, $2, $3, $4, false)
	`, tok.ID, tok.UserID, tok.ExpiresAt, tok.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *refreshTokenStore) Find(ctx context.Context, id string) (*auth.OutstandingToken, error) {
	var (
		tok           auth.OutstandingToken
		blacklistedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, expires_at, created_at, blacklisted, blacklisted_at
		from outstanding_tokens
		where id = $1
	`, id).Scan(&tok.ID, &tok.UserID, &tok.ExpiresAt, &tok.CreatedAt, &tok.Blacklisted, &blacklistedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if blacklistedAt.Valid {
		at := blacklistedAt.Time
		tok.BlacklistedAt = &at
	}
	return &tok, nil
}

func (s *refreshTokenStore) MarkBlacklisted(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update outstanding_tokens
		set blacklisted = true, blacklisted_at = $2
		where id = $1 and not blacklisted
	`, id, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	// Either already blacklisted (idempotent success) or missing.
	var exists bool
	err = s.db.QueryRowContext(ctx, `
		select exists (select 1 from outstanding_tokens where id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return auth.ErrNotFound
	}
	return nil
}
