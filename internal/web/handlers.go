// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/sysinfo"
)

// AuthService is the subset of auth.Service the handlers use.
type AuthService interface {
	Register(ctx context.Context, creds auth.Credentials) (*auth.UserView, error)
	Login(ctx context.Context, creds auth.Credentials, sess *auth.Session) (*auth.UserView, error)
	Logout(ctx context.Context, sess *auth.Session) error
	ChangePassword(ctx context.Context, in auth.ChangePasswordInput, sess *auth.Session) (*auth.UserView, error)
	CurrentUser(ctx context.Context, sess *auth.Session) (*auth.UserView, error)
}

// SnapshotFunc produces host telemetry.
type SnapshotFunc func(ctx context.Context) (*sysinfo.Snapshot, error)

// Handler groups the HTTP handlers. Dependencies are injected via the
// constructor.
type Handler struct {
	auth     AuthService
	sessions *SessionManager
	snapshot SnapshotFunc
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc AuthService, sessions *SessionManager, snapshot SnapshotFunc, logger *slog.Logger) *Handler {
	return &Handler{auth: svc, sessions: sessions, snapshot: snapshot, logger: logger}
}

// RegisterRoutes registers the auth routes on rg. They require the Sessions
// middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.POST("/change-password", h.ChangePassword)
	rg.GET("/me", h.Me)
	rg.GET("/password-requirements", h.PasswordRequirements)
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var creds auth.Credentials
	if !h.bind(c, &creds) {
		return
	}

	view, err := h.auth.Register(c.Request.Context(), creds)
	if err != nil {
		writeError(c, h.logger, "register", err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var creds auth.Credentials
	if !h.bind(c, &creds) {
		return
	}

	sess := CurrentSession(c)
	view, err := h.auth.Login(c.Request.Context(), creds, sess)
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}
	if !h.commit(c, sess) {
		return
	}
	c.JSON(http.StatusOK, view)
}

// Logout handles POST /auth/logout. It succeeds for anonymous sessions too.
func (h *Handler) Logout(c *gin.Context) {
	sess := CurrentSession(c)
	if err := h.auth.Logout(c.Request.Context(), sess); err != nil {
		writeError(c, h.logger, "logout", err)
		return
	}
	if !h.commit(c, sess) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePassword handles POST /auth/change-password. A wrong current
// password is a bad request here, not an authentication failure, so clients
// do not treat it as a lost session.
func (h *Handler) ChangePassword(c *gin.Context) {
	var in auth.ChangePasswordInput
	if !h.bind(c, &in) {
		return
	}

	view, err := h.auth.ChangePassword(c.Request.Context(), in, CurrentSession(c))
	if err != nil {
		if auth.HasCode(err, auth.CodeInvalidCredentials) {
			c.JSON(http.StatusBadRequest, ErrorBody{
				Error:   ErrCodeInvalidCurrentPassword,
				Message: "current password is incorrect",
			})
			return
		}
		writeError(c, h.logger, "change password", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	view, err := h.auth.CurrentUser(c.Request.Context(), CurrentSession(c))
	if err != nil {
		writeError(c, h.logger, "current user", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PasswordRequirements handles GET /auth/password-requirements.
func (h *Handler) PasswordRequirements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"requirements": auth.PasswordRequirements()})
}

// SystemInfo handles GET /system-info.
func (h *Handler) SystemInfo(c *gin.Context) {
	snap, err := h.snapshot(c.Request.Context())
	if err != nil {
		logError(c, h.logger, "system info failed", err)
		c.JSON(http.StatusInternalServerError, internalErrorBody())
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bind decodes a JSON body into dst. An empty body decodes to the zero
// value so that the service reports the missing fields.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorBody{
			Error:   ErrCodeInvalidRequest,
			Message: "request body must be a JSON object",
		})
		return false
	}
	return true
}

func (h *Handler) commit(c *gin.Context, sess *auth.Session) bool {
	if err := h.sessions.Commit(c, sess); err != nil {
		logError(c, h.logger, "session commit failed", err)
		c.JSON(http.StatusInternalServerError, internalErrorBody())
		return false
	}
	return true
}
