// Package throttle implements scoped request throttling: each endpoint
// category owns a named scope with a fixed-window request budget tracked per
// actor.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Well-known scope names.
const (
	ScopeBooks           = "books"
	ScopeUsersList       = "users_list"
	ScopePermissionsList = "permissions_list"
	ScopeLoginList       = "login_list"
)

var ErrUnknownScope = errors.New("throttle: unknown scope")

// Gate admits or rejects a request for a scope and actor. Implementations
// must count atomically so concurrent requests are not under-counted.
type Gate interface {
	Admit(ctx context.Context, scope, actorKey string) (bool, error)
}

// Rate is a parsed "<n>/<period>" budget.
type Rate struct {
	Max    int
	Window time.Duration
}

// ParseRate parses rate strings such as "5/minute". The period may be
// abbreviated down to its first letter (s, m, h, d).
func ParseRate(raw string) (Rate, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "/", 2)
	if len(parts) != 2 {
		return Rate{}, fmt.Errorf("throttle: malformed rate %q", raw)
	}
	max, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || max <= 0 {
		return Rate{}, fmt.Errorf("throttle: malformed rate %q", raw)
	}
	period := strings.TrimSpace(strings.ToLower(parts[1]))
	if period == "" {
		return Rate{}, fmt.Errorf("throttle: malformed rate %q", raw)
	}
	var window time.Duration
	switch period[0] {
	case 's':
		window = time.Second
	case 'm':
		window = time.Minute
	case 'h':
		window = time.Hour
	case 'd':
		window = 24 * time.Hour
	default:
		return Rate{}, fmt.Errorf("throttle: unknown period in rate %q", raw)
	}
	return Rate{Max: max, Window: window}, nil
}

// DefaultRates is the scope configuration used when no override is set.
func DefaultRates() map[string]Rate {
	return map[string]Rate{
		ScopeBooks:           {Max: 60, Window: time.Minute},
		ScopeUsersList:       {Max: 50, Window: time.Minute},
		ScopePermissionsList: {Max: 30, Window: time.Minute},
		ScopeLoginList:       {Max: 20, Window: time.Minute},
	}
}
