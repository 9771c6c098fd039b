// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package web

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const sessionKey = "sysboard.session"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestObserver records served requests.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// RequestID propagates a well-formed incoming X-Request-ID or generates a
// new one, echoes it on the response and attaches it to the request context
// for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// AccessLog logs one line per request and feeds the request observer.
func AccessLog(logger *slog.Logger, observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", c.ClientIP(),
		)

		if observer != nil {
			observer.ObserveRequest(c.Request.Method, c.FullPath(), status, elapsed)
		}
	}
}

// Recovery turns panics into logged 500 responses.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic serving request",
			"path", c.Request.URL.Path,
			"panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, internalErrorBody())
	})
}

// CORS allows credentialed cross-origin requests from the given origins.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// Sessions loads the request's session and stores it on the gin context.
func Sessions(m *SessionManager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.Load(c.Request.Context(), m.token(c))
		if err != nil {
			logError(c, logger, "session load failed", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, internalErrorBody())
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session loaded by Sessions.
func CurrentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}
