// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/samber/oops"
	"golang.org/x/term"

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/auth/memory"
	"github.com/sysboard/sysboard/internal/auth/postgres"
	"github.com/sysboard/sysboard/internal/config"
	"github.com/sysboard/sysboard/internal/observability"
	"github.com/sysboard/sysboard/internal/store"
)

// Deps contains injectable dependencies for the CLI commands.
// Nil fields use their default implementations.
type Deps struct {
	// Backend opens the user and session stores.
	// Default: PostgreSQL via DATABASE_URL.
	Backend func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// Migrator opens a schema migrator.
	// Default: store.NewMigrator
	Migrator func(databaseURL string) (Migrator, error)

	// Listen creates the HTTP listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)

	// ReadPassword prompts for a password without echo.
	// Default: reads from the terminal on stdin.
	ReadPassword func(prompt string) (string, error)
}

// Migrator is the subset of store.Migrator used by the migrate command.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// Backend bundles the stores the commands run against.
type Backend struct {
	Users    auth.UserRepository
	Sessions auth.SessionStore
	// Ready reports whether the backing database is reachable.
	Ready observability.ReadinessChecker
	// SweepSessions is true when expired sessions must be deleted by a
	// periodic sweep rather than by the store itself.
	SweepSessions bool

	closers []func()
}

// Close releases the backend's resources in reverse order of acquisition.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.Backend == nil {
		out.Backend = openPostgresBackend
	}
	if out.Migrator == nil {
		out.Migrator = func(url string) (Migrator, error) {
			return store.NewMigrator(url) //nolint:wrapcheck // already coded
		}
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	if out.ReadPassword == nil {
		out.ReadPassword = readTerminalPassword
	}
	return out
}

// openPostgresBackend connects to PostgreSQL, applies migrations when
// configured, and builds the repositories.
func openPostgresBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL, cfg.Database.ConnectTimeout)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded
	}

	b := &Backend{
		Users: postgres.NewUserRepository(pool),
		Ready: func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		},
		closers: []func(){pool.Close},
	}

	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		sessions := memory.NewSessionStore(cfg.Session.CleanupInterval)
		b.Sessions = sessions
		b.closers = append(b.closers, func() { _ = sessions.Close() })
	default:
		b.Sessions = postgres.NewSessionStore(pool)
		b.SweepSessions = true
	}

	logger.InfoContext(ctx, "database ready", "session_store", cfg.Session.Store)
	return b, nil
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr.Error())
		}
	}()

	if err := m.Up(); err != nil {
		return err //nolint:wrapcheck // already coded
	}
	st, err := m.Status()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	logger.Info("database schema up to date", "version", st.Version, "name", st.Name)
	return nil
}

func readTerminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", oops.Code("PASSWORD_PROMPT_FAILED").Errorf("stdin is not a terminal; use --password-stdin")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", oops.Code("PASSWORD_PROMPT_FAILED").Wrap(err)
	}
	return string(pw), nil
}
