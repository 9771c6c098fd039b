// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

// Package web exposes the authentication service and system telemetry over
// HTTP using gin.
package web

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	ServiceName string
	Auth        AuthService
	Sessions    *SessionManager
	Snapshot    SnapshotFunc
	Logger      *slog.Logger
	Observer    RequestObserver // optional
	CORSOrigins []string        // empty disables CORS
}

// NewRouter builds the gin engine serving the sysboard API.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Auth == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service is required")
	}
	if cfg.Sessions == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("session manager is required")
	}
	if cfg.Snapshot == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("snapshot func is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sysboard"
	}

	r := gin.New()
	r.Use(
		otelgin.Middleware(cfg.ServiceName),
		RequestID(),
		AccessLog(cfg.Logger, cfg.Observer),
		Recovery(cfg.Logger),
	)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	h := NewHandler(cfg.Auth, cfg.Sessions, cfg.Snapshot, cfg.Logger)

	r.GET("/health", h.Health)
	r.GET("/system-info", h.SystemInfo)

	authGroup := r.Group("/auth", Sessions(cfg.Sessions, cfg.Logger))
	h.RegisterRoutes(authGroup)

	return r, nil
}
