// Package httpapi is the HTTP surface: routing, authentication, throttling
// and serialization for the book catalog and account endpoints.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"bookvault.org/api/spec"
	"bookvault.org/internal/audit"
	"bookvault.org/internal/auth"
	"bookvault.org/internal/books"
	"bookvault.org/internal/obs"
	"bookvault.org/internal/throttle"
)

// ReadyProbe — readiness check, pings the DB when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API — HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	accounts *auth.Service
	tokens   *auth.TokenService
	books    *books.Service
	gate     throttle.Gate
	rates    map[string]throttle.Rate

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, accounts *auth.Service, tokens *auth.TokenService, bookSvc *books.Service, gate throttle.Gate, rates map[string]throttle.Rate) *API {
	if rates == nil {
		rates = throttle.DefaultRates()
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		accounts:   accounts,
		tokens:     tokens,
		books:      bookSvc,
		gate:       gate,
		rates:      rates,
		rateBurst:  50,
		ratePerSec: 25,
	}

	// token lifecycle
	a.mux.HandleFunc("/api/token/", a.handleTokenObtain)
	a.mux.HandleFunc("/api/token/refresh/", a.handleTokenRefresh)
	a.mux.HandleFunc("/api/token/blacklist/", a.handleTokenBlacklist)
	a.mux.HandleFunc("/login/", a.handleLogin)

	// accounts
	a.mux.HandleFunc("/users/", a.handleUsersCollection)
	a.mux.HandleFunc("/api/user/permissions/", a.handlePermissionsList)
	a.mux.HandleFunc("/api/user/password/", a.handlePasswordUpdate)
	a.mux.HandleFunc("/admin/users/", a.handleAdminUsers)

	// book catalog
	a.mux.HandleFunc("/books/", a.handleBooks)

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "bookvault-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

// throttleWindow returns the configured window for a scope, used for the
// Retry-After hint on rejections.
func (a *API) throttleWindow(scope string) time.Duration {
	if rate, ok := a.rates[scope]; ok {
		return rate.Window
	}
	return time.Minute
}
