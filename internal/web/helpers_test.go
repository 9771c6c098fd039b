// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/auth/memory"
	"github.com/sysboard/sysboard/internal/sysinfo"
)

const (
	testCookieName = "test_session"
	strongPassword = "Str0ng!Pass"
)

var fastParams = auth.Argon2Params{Memory: 1024, Time: 1, Threads: 1}

type testEnv struct {
	router   *gin.Engine
	users    *memory.UserRepository
	sessions *memory.SessionStore
	hasher   *auth.Argon2idHasher
	logs     *bytes.Buffer
}

func staticSnapshot(context.Context) (*sysinfo.Snapshot, error) {
	return &sysinfo.Snapshot{Status: "ok", CPU: sysinfo.CPUInfo{Cores: 4}}, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    memory.NewUserRepository(),
		sessions: memory.NewSessionStore(0),
		hasher:   auth.NewArgon2idHasherWithParams(fastParams),
		logs:     &bytes.Buffer{},
	}
	t.Cleanup(func() { _ = env.sessions.Close() })

	logger := slogTo(env.logs)
	svc, err := auth.NewAuthService(env.users, env.hasher, auth.WithLogger(logger))
	require.NoError(t, err)

	sm, err := NewSessionManager(env.sessions, CookieConfig{Name: testCookieName, TTL: time.Hour})
	require.NoError(t, err)

	env.router, err = NewRouter(RouterConfig{
		Auth:        svc,
		Sessions:    sm,
		Snapshot:    staticSnapshot,
		Logger:      logger,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	require.NoError(t, err)
	return env
}

func slogTo(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, nil))
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, username, password string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", auth.Credentials{Username: username, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", auth.Credentials{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie, "login must set the session cookie")
	return cookie
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
