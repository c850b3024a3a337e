package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bookvault.org/internal/obs"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are the JWT claims carried by both access and refresh tokens. The
// username is embedded at issuance; the outstanding-token registry does not
// store it.
type Claims struct {
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh credential pair.
type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenService issues, refreshes and blacklists HS256 token pairs.
type TokenService struct {
	store      Store
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithIssuer sets the iss claim on minted tokens.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		s.issuer = strings.TrimSpace(issuer)
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService signing with the given secret.
func NewTokenService(store Store, secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	svc := &TokenService{
		store:      store,
		secret:     []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue mints a token pair for the user. The refresh token's jti is recorded
// as an outstanding registry row so it can later be blacklisted.
func (s *TokenService) Issue(ctx context.Context, user *User) (TokenPair, error) {
	if user == nil || user.ID == "" {
		return TokenPair{}, ErrInvalidInput
	}
	now := s.now().UTC()

	accessExp := now.Add(s.accessTTL)
	access, err := s.sign(user, tokenTypeAccess, uuid.NewString(), now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}

	refreshExp := now.Add(s.refreshTTL)
	refreshID := uuid.NewString()
	refresh, err := s.sign(user, tokenTypeRefresh, refreshID, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	rec := &OutstandingToken{
		ID:        refreshID,
		UserID:    user.ID,
		ExpiresAt: refreshExp,
		CreatedAt: now,
	}
	if err := s.store.RefreshTokens(ctx).Create(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	obs.TokenIssued()
	return TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh rotates a refresh token into a new pair. The old outstanding row is
// left as-is: only an explicit Blacklist call invalidates it.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.Decode(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeRefresh {
		return TokenPair{}, ErrInvalidToken
	}

	// The registry does not hold custom claims, so the lookup keys on the
	// token's jti rather than anything reconstructed from the payload.
	rec, err := s.store.RefreshTokens(ctx).Find(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if rec.Blacklisted {
		return TokenPair{}, ErrTokenBlacklisted
	}
	if s.now().UTC().After(rec.ExpiresAt) {
		return TokenPair{}, ErrInvalidToken
	}

	user, err := s.store.Users(ctx).Find(ctx, rec.UserID)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	return s.Issue(ctx, user)
}

// Blacklist marks an outstanding refresh token as blacklisted. Idempotent.
func (s *TokenService) Blacklist(ctx context.Context, tokenID string) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return ErrInvalidInput
	}
	if err := s.store.RefreshTokens(ctx).MarkBlacklisted(ctx, tokenID, s.now().UTC()); err != nil {
		return err
	}
	obs.TokenBlacklisted()
	return nil
}

// Decode verifies signature and expiry and returns the claims.
func (s *TokenService) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate validates an access token and resolves its principal.
func (s *TokenService) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.Decode(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeAccess {
		return Principal{}, ErrInvalidToken
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	return NewPrincipal(user), nil
}

func (s *TokenService) sign(user *User, tokenType, jti string, now, exp time.Time) (string, error) {
	claims := Claims{
		Username:  user.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
