package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookvault.org/internal/auth"
	"bookvault.org/internal/books"
	"bookvault.org/internal/httpapi"
	"bookvault.org/internal/obs"
	"bookvault.org/internal/store/pg"
	"bookvault.org/internal/throttle"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("BOOKVAULT_COMMIT"))

	secret := os.Getenv("BOOKVAULT_AUTH_SECRET")
	if secret == "" {
		log.Fatal("BOOKVAULT_AUTH_SECRET is required")
	}

	rates := throttleRates()

	// Postgres when a DSN is set; in-memory stores otherwise so the service
	// still runs locally without infrastructure.
	var (
		authStore auth.Store
		bookStore books.Store
		gate      throttle.Gate
		probe     httpapi.ReadyProbe
		closeFn   func()
	)
	if dsn := os.Getenv("BOOKVAULT_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		authStore = store
		bookStore = store.Books()
		gate = store.Throttle(rates)
		probe = httpapi.ReadyProbe{DB: store.DB()}
		closeFn = func() { _ = store.Close() }
	} else {
		authStore = auth.NewInMemory()
		bookStore = books.NewInMemory()
		gate = throttle.NewMemoryGate(rates)
	}

	tokens, err := auth.NewTokenService(authStore, secret, auth.WithIssuer("bookvault"))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	accounts := auth.NewService(authStore, tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := accounts.EnsureBuiltins(ctx); err != nil {
		cancel()
		log.Fatalf("seed permissions: %v", err)
	}
	cancel()

	api := httpapi.New(probe, version, accounts, tokens, books.NewService(bookStore), gate, rates)

	addr := os.Getenv("BOOKVAULT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting bookvault-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if closeFn != nil {
		closeFn()
	}
	log.Println("Stopped")
}

// throttleRates reads BOOKVAULT_THROTTLE_<SCOPE> overrides, e.g.
// BOOKVAULT_THROTTLE_BOOKS=120/minute.
func throttleRates() map[string]throttle.Rate {
	rates := throttle.DefaultRates()
	for scope := range rates {
		env := "BOOKVAULT_THROTTLE_" + strings.ToUpper(scope)
		raw := os.Getenv(env)
		if raw == "" {
			continue
		}
		rate, err := throttle.ParseRate(raw)
		if err != nil {
			log.Fatalf("%s: %v", env, err)
		}
		rates[scope] = rate
	}
	return rates
}
