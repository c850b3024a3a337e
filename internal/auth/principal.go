package auth

// Principal is an authenticated user with a resolved capability set.
type Principal struct {
	User        *User
	Permissions map[string]struct{}
}

// NewPrincipal resolves the user's granted capability codes into a set.
func NewPrincipal(user *User) Principal {
	set := make(map[string]struct{}, len(user.Permissions))
	for _, code := range user.Permissions {
		set[code] = struct{}{}
	}
	return Principal{User: user, Permissions: set}
}

// HasPermission reports whether the principal holds the capability.
func (p Principal) HasPermission(codename string) bool {
	_, ok := p.Permissions[codename]
	return ok
}
