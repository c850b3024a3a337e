package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) (*Service, Store) {
	t.Helper()
	store := NewInMemory()
	tokens := newTestTokenService(t, store)
	svc := NewService(store, tokens)
	if err := svc.EnsureBuiltins(context.Background()); err != nil {
		t.Fatalf("EnsureBuiltins: %v", err)
	}
	return svc, store
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username:    "alice",
		Email:       "Alice@Example.com",
		Password:    "secret",
		Permissions: []string{CapAddBook, CapViewBook},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.PasswordHash == "secret" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestCreateUserRejectsAdministratorGrant(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username:    "mallory",
		Email:       "mallory@example.com",
		Password:    "secret",
		Permissions: []string{CapViewBook, CapAdministrator},
	})
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fe.Field != "user_permissions" {
		t.Fatalf("unexpected field: %s", fe.Field)
	}
	if fe.Message != CannotGrantAdministrator {
		t.Fatalf("unexpected message: %s", fe.Message)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)

	input := CreateUserInput{Username: "alice", Email: "a@example.com", Password: "secret"}
	if _, err := svc.CreateUser(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), input); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "alice", Email: "a@example.com", Password: "secret",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	pair, user, err := svc.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.Access == "" {
		t.Fatal("expected access token")
	}
	if user.Username != "alice" {
		t.Fatalf("unexpected user: %s", user.Username)
	}

	if _, _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody", "secret"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", err)
	}
}

func TestGrantAdministrator(t *testing.T) {
	svc, store := newTestService(t)
	target, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "bob", Email: "b@example.com", Password: "secret",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	admin := principalWith(CapAdministrator)
	if err := svc.GrantAdministrator(context.Background(), admin, target.ID); err != nil {
		t.Fatalf("GrantAdministrator: %v", err)
	}
	got, err := store.Users(context.Background()).Find(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !NewPrincipal(got).HasPermission(CapAdministrator) {
		t.Fatal("administrator capability not granted")
	}

	// A grantor without the capability must be refused.
	if err := svc.GrantAdministrator(context.Background(), principalWith(CapViewBook), target.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestUpdatePasswordStampsChangeTime(t *testing.T) {
	svc, store := newTestService(t)
	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "alice", Email: "a@example.com", Password: "secret",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := svc.UpdatePassword(context.Background(), user.ID, "wrong", "next"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.UpdatePassword(context.Background(), user.ID, "secret", "next"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	got, err := store.Users(context.Background()).Find(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.PasswordLastChange == nil {
		t.Fatal("PasswordLastChange not stamped")
	}
	if err := VerifyPassword(got.PasswordHash, "next"); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}
}

func TestListUsers(t *testing.T) {
	svc, _ := newTestService(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := svc.CreateUser(context.Background(), CreateUserInput{
			Username: name, Email: name + "@example.com", Password: "secret",
		}); err != nil {
			t.Fatalf("CreateUser %s: %v", name, err)
		}
	}

	items, total, err := svc.ListUsers(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("expected page of 2, got %d", len(items))
	}
}
