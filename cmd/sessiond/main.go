// Package main starts a small HTTP service demonstrating the session store:
// each visit bumps a per-session counter persisted through the SQLite
// adapter.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/louisbranch/recordstore/internal/platform/config"
	"github.com/louisbranch/recordstore/internal/platform/otel"
	"github.com/louisbranch/recordstore/session"
	"github.com/louisbranch/recordstore/storage/sqlite"
)

const sessionCookie = "sessiond_id"

type appConfig struct {
	Addr       string        `env:"SESSIOND_ADDR" envDefault:":8080"`
	DBPath     string        `env:"SESSIOND_DB_PATH" envDefault:"sessions.db"`
	Table      string        `env:"SESSIOND_TABLE" envDefault:"web_sessions"`
	Workers    int           `env:"SESSIOND_WORKERS" envDefault:"4"`
	SessionTTL time.Duration `env:"SESSIOND_SESSION_TTL" envDefault:"24h"`
}

func main() {
	var cfg appConfig
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("parse config: %v", err)
	}
	log.SetPrefix("[SESSIOND] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := otel.Setup(ctx, "sessiond")
	if err != nil {
		config.Exitf("setup telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Printf("shutdown telemetry: %v", err)
		}
	}()

	if err := run(ctx, cfg); err != nil {
		config.Exitf("serve: %v", err)
	}
}

func run(ctx context.Context, cfg appConfig) error {
	sqlDB, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlDB.Close()
	}()

	backend := sqlite.New[string, session.Session](sqlDB, cfg.Table, session.Spec{}, sqlite.WithLogf(log.Printf))
	if err := backend.Initialize(ctx); err != nil {
		return err
	}

	sessions, err := session.NewStore(backend, cfg.Workers)
	if err != nil {
		return err
	}
	defer sessions.Close()

	mux := http.NewServeMux()
	mux.Handle("/", countHandler(sessions, cfg.SessionTTL))

	server := &http.Server{Addr: cfg.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func countHandler(sessions *session.Store, ttl time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var current session.Session
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			if loaded, found, err := sessions.LoadSession(r.Context(), cookie.Value); err == nil && found {
				current = loaded
			}
		}

		count, _ := strconv.Atoi(current.Values["count"])
		count++
		if current.Values == nil {
			current.Values = map[string]string{}
		}
		current.Values["count"] = strconv.Itoa(count)
		current.ExpiresAt = time.Now().Add(ttl)

		id, err := sessions.StoreSession(r.Context(), current)
		if err != nil {
			log.Printf("store session: %v", err)
			http.Error(w, "session store failed", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Expires:  current.ExpiresAt,
		})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("visits: " + strconv.Itoa(count) + "\n"))
	})
}
