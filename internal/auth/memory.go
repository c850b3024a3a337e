package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory is a Store backed by maps. It serves tests and DSN-less local
// runs; production deployments use the Postgres store.
type InMemory struct {
	mu     sync.RWMutex
	users  map[string]*User
	perms  []Permission
	tokens map[string]*OutstandingToken
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:  make(map[string]*User),
		tokens: make(map[string]*OutstandingToken),
	}
}

func (m *InMemory) Users(ctx context.Context) UserStore             { return (*memUsers)(m) }
func (m *InMemory) Permissions(ctx context.Context) PermissionStore { return (*memPerms)(m) }
func (m *InMemory) RefreshTokens(ctx context.Context) RefreshTokenStore {
	return (*memTokens)(m)
}

type memUsers InMemory

func (m *memUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrConflict
		}
	}
	cp := cloneUser(u)
	m.users[u.ID] = cp
	return nil
}

func (m *memUsers) Find(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *memUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) List(ctx context.Context, offset, limit int) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memUsers) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *memUsers) GrantPermissions(ctx context.Context, userID string, codenames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	for _, code := range codenames {
		found := false
		for _, have := range u.Permissions {
			if have == code {
				found = true
				break
			}
		}
		if !found {
			u.Permissions = append(u.Permissions, code)
		}
	}
	return nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	at := changedAt
	u.PasswordLastChange = &at
	u.UpdatedAt = changedAt
	return nil
}

type memPerms InMemory

func (m *memPerms) Ensure(ctx context.Context, perms []Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range perms {
		exists := false
		for _, have := range m.perms {
			if have.Codename == p.Codename {
				exists = true
				break
			}
		}
		if !exists {
			m.perms = append(m.perms, p)
		}
	}
	return nil
}

func (m *memPerms) List(ctx context.Context) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Permission, len(m.perms))
	copy(out, m.perms)
	return out, nil
}

type memTokens InMemory

func (m *memTokens) Create(ctx context.Context, tok *OutstandingToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tok.ID]; ok {
		return ErrConflict
	}
	cp := *tok
	m.tokens[tok.ID] = &cp
	return nil
}

func (m *memTokens) Find(ctx context.Context, id string) (*OutstandingToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (m *memTokens) MarkBlacklisted(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok {
		return ErrNotFound
	}
	if tok.Blacklisted {
		return nil
	}
	tok.Blacklisted = true
	stamp := at
	tok.BlacklistedAt = &stamp
	return nil
}

func cloneUser(u *User) *User {
	cp := *u
	cp.Permissions = append([]string(nil), u.Permissions...)
	if u.PasswordLastChange != nil {
		at := *u.PasswordLastChange
		cp.PasswordLastChange = &at
	}
	return &cp
}
