// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/config"
	"github.com/sysboard/sysboard/internal/observability"
	"github.com/sysboard/sysboard/internal/sysinfo"
	"github.com/sysboard/sysboard/internal/web"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the sysboard HTTP API. The database schema is migrated and the
initial administrator is created before the server accepts requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting sysboard",
		"version", version,
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"session_store", cfg.Session.Store,
	)

	backend, err := deps.Backend(ctx, cfg, logger)
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "open backend").Wrap(err)
	}
	defer backend.Close()

	hasher := newHasher(cfg)
	if _, err := seedAdmin(ctx, cmd, backend.Users, hasher, cfg, logger); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svcOpts := []auth.Option{auth.WithLogger(logger)}
	var observer web.RequestObserver
	if cfg.Metrics.Addr != "" {
		obsServer := observability.NewServer(cfg.Metrics.Addr, backend.Ready)
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(startErr)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr.Error())
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)

		svcOpts = append(svcOpts, auth.WithMetrics(obsServer.Metrics()))
		observer = obsServer.Metrics()
	}

	svc, err := auth.NewAuthService(backend.Users, hasher, svcOpts...)
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	sessions, err := web.NewSessionManager(backend.Sessions, web.CookieConfig{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	})
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	collector := sysinfo.NewCollector()
	router, err := web.NewRouter(web.RouterConfig{
		ServiceName: serviceName,
		Auth:        svc,
		Sessions:    sessions,
		Snapshot:    collector.Snapshot,
		Logger:      logger,
		Observer:    observer,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	if backend.SweepSessions {
		sweepDone := make(chan struct{})
		go func() {
			defer close(sweepDone)
			auth.SweepExpiredSessions(ctx, backend.Sessions, cfg.Session.CleanupInterval, logger)
		}()
		defer func() {
			cancel()
			<-sweepDone
		}()
	}

	listener, err := deps.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("SERVE_FAILED").
			With("operation", "listen").
			With("addr", cfg.HTTP.Addr).
			Wrap(err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	logger.InfoContext(ctx, "http server listening", "addr", listener.Addr().String())

	var runErr error
	select {
	case serveErr := <-errCh:
		if serveErr != nil {
			runErr = oops.Code("SERVE_FAILED").With("operation", "serve http").Wrap(serveErr)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err.Error())
	}

	return runErr
}

// newHasher builds the argon2id hasher with the configured work factor.
func newHasher(cfg *config.Config) *auth.Argon2idHasher {
	return auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Memory:  cfg.Hasher.Memory,
		Time:    cfg.Hasher.Time,
		Threads: cfg.Hasher.Threads,
	})
}

// seedAdmin creates the initial administrator on an empty user store and
// reports whether this call created it.
func seedAdmin(ctx context.Context, cmd *cobra.Command, users auth.UserRepository, hasher auth.PasswordHasher, cfg *config.Config, logger *slog.Logger) (bool, error) {
	created, err := auth.EnsureAdmin(ctx, users, hasher, auth.AdminSeed{
		Username: cfg.Bootstrap.Username,
		Password: cfg.Bootstrap.Password,
	})
	if err != nil {
		return false, err //nolint:wrapcheck // already coded
	}
	if created {
		logger.WarnContext(ctx, "created initial administrator; the password must be changed on first login",
			"username", cfg.Bootstrap.Username)
		cmd.PrintErrf("Created administrator %q. Change its password after the first login.\n", cfg.Bootstrap.Username)
	}
	return created, nil
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err.Error())
			cancel()
		}
	case <-ctx.Done():
	}
}
