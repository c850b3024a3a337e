package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookvault.org/internal/ids"
)

// Service provides account operations: registration, login, listing and the
// privileged administrator-grant pathway.
type Service struct {
	store  Store
	tokens *TokenService
	now    func() time.Time
}

// NewService constructs the account service.
func NewService(store Store, tokens *TokenService) *Service {
	return &Service{store: store, tokens: tokens, now: time.Now}
}

// EnsureBuiltins seeds the permission catalog.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.Permissions(ctx).Ensure(ctx, BuiltinPermissions)
}

// CreateUserInput carries the self-registration payload.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	IsStaff     bool
	Permissions []string
}

// CreateUser validates and persists a new account. Requesting the
// administrator capability fails validation no matter who asks; that grant
// only happens through GrantAdministrator.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, &FieldError{Field: "username", Message: "username is required"}
	}
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &FieldError{Field: "email", Message: "valid email is required"}
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, &FieldError{Field: "password", Message: "password is required"}
	}

	perms := make([]string, 0, len(input.Permissions))
	for _, code := range input.Permissions {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if code == CapAdministrator {
			return nil, &FieldError{Field: "user_permissions", Message: CannotGrantAdministrator}
		}
		if !KnownCapability(code) {
			return nil, &FieldError{Field: "user_permissions", Message: "unknown permission " + code}
		}
		perms = append(perms, code)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      input.IsStaff,
		Permissions:  perms,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, *User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, nil, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).FindByUsername(ctx, username)
	if err != nil {
		return TokenPair{}, nil, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, nil, ErrUnauthorized
	}
	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// ListUsers returns one page of accounts plus the total count.
func (s *Service) ListUsers(ctx context.Context, offset, limit int) ([]User, int, error) {
	users := s.store.Users(ctx)
	total, err := users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := users.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.Permissions(ctx).List(ctx)
}

// GrantAdministrator is the privileged pathway for handing out the
// administrator capability. The grantor must already hold it.
func (s *Service) GrantAdministrator(ctx context.Context, grantor Principal, userID string) error {
	if !grantor.HasPermission(CapAdministrator) {
		return ErrPermissionDenied
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidInput
	}
	return s.store.Users(ctx).GrantPermissions(ctx, userID, []string{CapAdministrator})
}

// UpdatePassword verifies the old password, stores the new hash and stamps
// the password-change time.
func (s *Service) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, oldPassword); err != nil {
		return ErrUnauthorized
	}
	if strings.TrimSpace(newPassword) == "" {
		return &FieldError{Field: "password", Message: "password is required"}
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.Users(ctx).UpdatePassword(ctx, userID, hash, s.now().UTC())
}
