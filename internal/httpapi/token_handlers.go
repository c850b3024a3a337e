package httpapi

import (
	"net/http"

	"bookvault.org/internal/throttle"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (a *API) handleTokenObtain(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/token/" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, user, err := a.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.token.issued", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	writeJSON(w, http.StatusOK, tokenPairResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

func (a *API) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/token/refresh/" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.tokens.Refresh(r.Context(), req.Refresh)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.token.refreshed", nil)
	writeJSON(w, http.StatusOK, tokenPairResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

// handleTokenBlacklist voids a refresh token. The token itself is the
// credential, so no bearer header is required.
func (a *API) handleTokenBlacklist(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/token/blacklist/" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	claims, err := a.tokens.Decode(req.Refresh)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if claims.TokenType != "refresh" {
		writeDetail(w, r, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	if err := a.tokens.Blacklist(r.Context(), claims.ID); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.token.blacklisted", map[string]any{
		"user_id": claims.Subject,
	})
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/login/" {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.admit(w, r, throttle.ScopeLoginList) {
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, user, err := a.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.login", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": pair.Access,
	})
}
