package auth

import "errors"

var (
	ErrNotFound         = errors.New("auth: not found")
	ErrConflict         = errors.New("auth: already exists")
	ErrInvalidInput     = errors.New("auth: invalid input")
	ErrUnauthorized     = errors.New("auth: unauthorized")
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrTokenBlacklisted = errors.New("auth: token is blacklisted")
	ErrPermissionDenied = errors.New("auth: permission denied")
)

// Client-facing detail strings. The wording is part of the API contract and
// must not drift.
const (
	PermissionDeniedDetail   = "You do not have permission to perform this action."
	TokenBlacklistedDetail   = "Token is blacklisted"
	AuthenticationRequired   = "Authentication credentials were not provided."
	CannotGrantAdministrator = "error_cannot_create_a_user_with_administrator_permission."
)

// FieldError is a validation failure keyed to a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return "auth: validation failed on " + e.Field + ": " + e.Message
}
