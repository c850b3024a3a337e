package auth

import "time"

// User is an account able to authenticate and own books.
type User struct {
	ID                 string
	Username           string
	Email              string
	PasswordHash       string
	IsStaff            bool
	Permissions        []string
	PasswordLastChange *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Permission is a named grantable capability. The catalog is reference data;
// rows are never mutated at runtime.
type Permission struct {
	Codename string
	Name     string
}

// OutstandingToken is the registry record created when a refresh token is
// issued. It is keyed by the token's jti; custom claims are not stored here,
// so blacklist lookups must go through the ID.
type OutstandingToken struct {
	ID            string
	UserID        string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	Blacklisted   bool
	BlacklistedAt *time.Time
}
