package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bookvault.org/internal/auth"
	"bookvault.org/internal/books"
	"bookvault.org/internal/obs"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// writeDetail emits the {"detail": msg} error envelope.
func writeDetail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"detail": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeFieldError emits a field-keyed validation object, DRF style.
func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{field: message})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeDetail(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *auth.FieldError
	switch {
	case errors.As(err, &fe):
		writeFieldError(w, fe.Field, fe.Message)
	case errors.Is(err, auth.ErrPermissionDenied):
		writeDetail(w, r, http.StatusForbidden, auth.PermissionDeniedDetail)
	case errors.Is(err, auth.ErrTokenBlacklisted):
		writeDetail(w, r, http.StatusUnauthorized, auth.TokenBlacklistedDetail)
	case errors.Is(err, auth.ErrInvalidToken):
		writeDetail(w, r, http.StatusUnauthorized, "Token is invalid or expired")
	case errors.Is(err, auth.ErrUnauthorized):
		writeDetail(w, r, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, auth.ErrNotFound):
		writeDetail(w, r, http.StatusNotFound, "Not found.")
	case errors.Is(err, auth.ErrConflict):
		writeDetail(w, r, http.StatusConflict, "A user with that username already exists.")
	case errors.Is(err, auth.ErrInvalidInput):
		writeDetail(w, r, http.StatusBadRequest, "invalid input")
	default:
		writeDetail(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleBookError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, books.ErrInvalidInput):
		writeDetail(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, books.ErrNotFound):
		writeDetail(w, r, http.StatusNotFound, "Not found.")
	default:
		writeDetail(w, r, http.StatusInternalServerError, "internal error")
	}
}

// admit runs the scoped throttle check. A rejection answers the request, so
// callers must return immediately on false.
func (a *API) admit(w http.ResponseWriter, r *http.Request, scope string) bool {
	ok, err := a.gate.Admit(r.Context(), scope, a.throttleKey(r))
	if err != nil {
		writeDetail(w, r, http.StatusInternalServerError, "internal error")
		return false
	}
	if !ok {
		obs.ThrottleRejected(scope)
		retry := int(math.Ceil(a.throttleWindow(scope).Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeDetail(w, r, http.StatusTooManyRequests, "Request was throttled.")
		return false
	}
	return true
}

// throttleKey identifies the actor: authenticated user id, else client IP.
func (a *API) throttleKey(r *http.Request) string {
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok && principal.User != nil {
		return principal.User.ID
	}
	ip := clientIP(r)
	if ip == "" {
		ip = "unknown"
	}
	return ip
}

// paginated is the list envelope shared by users and books.
type paginated struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// pageParams reads page_number and items_per_page with bounds applied.
func pageParams(q url.Values) (number, size int, err error) {
	number, size = 1, defaultPageSize
	if raw := strings.TrimSpace(q.Get("page_number")); raw != "" {
		number, err = strconv.Atoi(raw)
		if err != nil || number < 1 {
			return 0, 0, errors.New("page_number must be a positive integer")
		}
	}
	if raw := strings.TrimSpace(q.Get("items_per_page")); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return 0, 0, errors.New("items_per_page must be between 1 and 100")
		}
	}
	return number, size, nil
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// envelope assembles the pagination envelope, deriving next/previous links
// from the request URL.
func envelope(r *http.Request, number, size, count int, results any) paginated {
	p := paginated{Count: count, Results: results}
	if number*size < count {
		p.Next = pageLink(r, number+1)
	}
	if number > 1 {
		p.Previous = pageLink(r, number-1)
	}
	return p
}

func pageLink(r *http.Request, number int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page_number", strconv.Itoa(number))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
