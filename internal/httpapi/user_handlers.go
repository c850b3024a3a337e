package httpapi

import (
	"net/http"
	"strings"

	"bookvault.org/internal/auth"
	"bookvault.org/internal/throttle"
)

type createUserRequest struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	IsStaff         bool     `json:"is_staff"`
	UserPermissions []string `json:"user_permissions"`
}

type userResponse struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	UserPermissions []string `json:"user_permissions"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/users/" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.principal(w, r); !ok {
		return
	}
	if !a.admit(w, r, throttle.ScopeUsersList) {
		return
	}
	number, size, err := pageParams(r.URL.Query())
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	users, total, err := a.accounts.ListUsers(r.Context(), (number-1)*size, size)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	results := make([]userResponse, 0, len(users))
	for i := range users {
		results = append(results, serializeUser(&users[i]))
	}
	writeJSON(w, http.StatusOK, envelope(r, number, size, total, results))
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.accounts.CreateUser(r.Context(), auth.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		IsStaff:     req.IsStaff,
		Permissions: req.UserPermissions,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.user.create", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	// The create endpoint intentionally returns an empty array, not the
	// record: clients fetch accounts through the list endpoint.
	writeJSON(w, http.StatusCreated, []any{})
}

func (a *API) handlePermissionsList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/user/permissions/" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.principal(w, r); !ok {
		return
	}
	if !a.admit(w, r, throttle.ScopePermissionsList) {
		return
	}
	perms, err := a.accounts.ListPermissions(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	writeJSON(w, http.StatusOK, names)
}

type updatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// handlePasswordUpdate changes the caller's own password.
func (a *API) handlePasswordUpdate(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/user/password/" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.UpdatePassword(r.Context(), principal.User.ID, req.OldPassword, req.NewPassword); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.user.password_change", nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminUsers routes POST /admin/users/{id}/permissions/, the only
// pathway that can hand out the administrator capability.
func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "permissions" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	userID := parts[0]
	if err := a.accounts.GrantAdministrator(r.Context(), principal, userID); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.user.grant_administrator", map[string]any{
		"target_user_id": userID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func serializeUser(u *auth.User) userResponse {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return userResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		UserPermissions: perms,
	}
}
