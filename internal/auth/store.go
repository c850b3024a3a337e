package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Permissions(ctx context.Context) PermissionStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages user accounts and their granted capabilities.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
	Count(ctx context.Context) (int, error)
	GrantPermissions(ctx context.Context, userID string, codenames []string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error
}

// PermissionStore manages the permission catalog.
type PermissionStore interface {
	Ensure(ctx context.Context, perms []Permission) error
	List(ctx context.Context) ([]Permission, error)
}

// RefreshTokenStore manages the outstanding-token registry. Records are keyed
// by the refresh token's jti.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *OutstandingToken) error
	Find(ctx context.Context, id string) (*OutstandingToken, error)
	MarkBlacklisted(ctx context.Context, id string, at time.Time) error
}
