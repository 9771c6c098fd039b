// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/sysboard/sysboard/internal/auth"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "sysboard_session"

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SessionManager binds auth.Sessions to request cookies.
type SessionManager struct {
	store  auth.SessionStore
	cookie CookieConfig
}

// NewSessionManager creates a SessionManager. Zero cookie fields use defaults.
func NewSessionManager(store auth.SessionStore, cookie CookieConfig) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("session store is required")
	}
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	if cookie.TTL <= 0 {
		cookie.TTL = auth.DefaultSessionTTL
	}
	return &SessionManager{store: store, cookie: cookie}, nil
}

// Load resolves the session named by token. A missing, unknown or expired
// token yields a fresh, unsaved session.
func (m *SessionManager) Load(ctx context.Context, token string) (*auth.Session, error) {
	if token != "" {
		sess, err := m.store.Get(ctx, auth.HashSessionToken(token))
		switch {
		case err == nil:
			return sess, nil
		case !errors.Is(err, auth.ErrNotFound):
			return nil, oops.Code("SESSION_LOAD_FAILED").Wrap(err)
		}
	}

	sess, err := auth.NewSession(m.cookie.TTL)
	if err != nil {
		return nil, oops.Code("SESSION_LOAD_FAILED").Wrap(err)
	}
	return sess, nil
}

// Commit persists the outcome of a request on sess and updates the cookie.
// It must run before the response body is written.
//
//   - cleared sessions are deleted and the cookie expired
//   - modified sessions are renewed if required, saved and re-issued
//   - untouched sessions are left alone, so anonymous requests store nothing
func (m *SessionManager) Commit(c *gin.Context, sess *auth.Session) error {
	ctx := c.Request.Context()

	switch {
	case sess.Cleared():
		if !sess.IsNew() {
			if err := m.store.Delete(ctx, sess.ID); err != nil {
				return oops.Code("SESSION_COMMIT_FAILED").With("operation", "delete").Wrap(err)
			}
		}
		m.expireCookie(c)

	case sess.Modified():
		if sess.NeedsRenewal() {
			if err := sess.Renew(m.cookie.TTL); err != nil {
				return oops.Code("SESSION_COMMIT_FAILED").With("operation", "renew").Wrap(err)
			}
		}
		if err := m.store.Save(ctx, sess); err != nil {
			return oops.Code("SESSION_COMMIT_FAILED").With("operation", "save").Wrap(err)
		}
		if token := sess.Token(); token != "" {
			m.setCookie(c, token, int(time.Until(sess.ExpiresAt).Seconds()))
		}
	}
	return nil
}

func (m *SessionManager) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) expireCookie(c *gin.Context) {
	m.setCookie(c, "", -1)
}

// token returns the session token carried by the request, if any.
func (m *SessionManager) token(c *gin.Context) string {
	value, err := c.Cookie(m.cookie.Name)
	if err != nil {
		return ""
	}
	return value
}
