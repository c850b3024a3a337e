package auth

import (
	"context"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, store Store, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService(store, "test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, store Store, username string, perms ...string) *User {
	t.Helper()
	hash, err := HashPassword("password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &User{
		ID:           "user-" + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Permissions:  perms,
	}
	if err := store.Users(context.Background()).Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestIssueAndDecodeRoundTrip(t *testing.T) {
	store := NewInMemory()
	svc := newTestTokenService(t, store, WithIssuer("bookvault"))
	user := seedUser(t, store, "alice", CapViewBook)

	pair, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("expected both tokens")
	}

	for _, token := range []string{pair.Access, pair.Refresh} {
		claims, err := svc.Decode(token)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if claims.Subject != user.ID {
			t.Fatalf("unexpected subject: %s", claims.Subject)
		}
		if claims.Username != "alice" {
			t.Fatalf("username claim not embedded: %q", claims.Username)
		}
	}
}

func TestIssueRecordsOutstandingToken(t *testing.T) {
	store := NewInMemory()
	svc := newTestTokenService(t, store)
	user := seedUser(t, store, "alice")

	pair, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := svc.Decode(pair.Refresh)
	if err != nil {
		t.Fatalf("Decode refresh: %v", err)
	}
	rec, err := store.RefreshTokens(context.Background()).Find(context.Background(), claims.ID)
	if err != nil {
		t.Fatalf("outstanding record missing: %v", err)
	}
	if rec.UserID != user.ID {
		t.Fatalf("unexpected user on record: %s", rec.UserID)
	}
	if rec.Blacklisted {
		t.Fatal("fresh record must not be blacklisted")
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	store := NewInMemory()
	svc := newTestTokenService(t, store)
	user := seedUser(t, store, "alice")

	pair, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rotated, err := svc.Refresh(context.Background(), pair.Refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.Access == pair.Access {
		t.Fatal("expected a fresh access token")
	}
	if rotated.Refresh == pair.Refresh {
		t.Fatal("expected a rotated refresh token")
	}

	// Rotation does not blacklist the old token by itself.
	old, _ := svc.Decode(pair.Refresh)
	rec, err := store.RefreshTokens(context.Background()).Find(context.Background(), old.ID)
	if err != nil {
		t.Fatalf("old record lookup: %v", err)
	}
	if rec.Blacklisted {
		t.Fatal("rotation must not blacklist the previous token")
	}
}

func TestRefreshFailsAfterBlacklist(t *testing.T) {
	store := NewInMemory()
	svc := newTestTokenService(t, store)
	user := seedUser(t, store, "alice")

	pair, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := svc.Decode(pair.Refresh)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := svc.Blacklist(context.Background(), claims.ID); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}
	// Idempotent.
	if err := svc.Blacklist(context.Background(), claims.ID); err != nil {
		t.Fatalf("second Blacklist: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), pair.Refresh); err != ErrTokenBlacklisted {
		t.Fatalf("expected ErrTokenBlacklisted, got %v", err)
	}

	// The access token issued alongside remains independently verifiable.
	if _, err := svc.Authenticate(context.Background(), pair.Access); err != nil {
		t.Fatalf("access token should still verify: %v", err)
	}
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	store := NewInMemory()
	current := time.Now()
	svc := newTestTokenService(t, store, WithClock(func() time.Time { return current }))
	user := seedUser(t, store, "alice")

	pair, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	current = current.Add(defaultAccessTTL + time.Minute)
	if _, err := svc.Decode(pair.Access); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	store := NewInMemory()
	svc := newTestTokenService(t, store)
	user := seedUser(t, store, "alice")

	pair, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.Access); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	store := NewInMemory()
	svc := newTestTokenService(t, store)
	user := seedUser(t, store, "alice")

	pair, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), pair.Refresh); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t, NewInMemory())
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Decode(token); err != ErrInvalidToken {
			t.Fatalf("Decode(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}
