// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/pkg/errutil"
)

// Wire error codes.
const (
	ErrCodeUsernameTaken          = "username_taken"
	ErrCodeWeakPassword           = "weak_password"
	ErrCodeInvalidCredentials     = "invalid_credentials"
	ErrCodeInvalidCurrentPassword = "invalid_current_password"
	ErrCodeNotAuthenticated       = "not_authenticated"
	ErrCodeUserNotFound           = "user_not_found"
	ErrCodeMissingInput           = "missing_input"
	ErrCodeInvalidUsername        = "invalid_username"
	ErrCodeInvalidRequest         = "invalid_request"
	ErrCodeInternal               = "internal_error"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

type errorMapping struct {
	status int
	code   string
}

var authErrors = map[string]errorMapping{
	auth.CodeUsernameTaken:      {http.StatusConflict, ErrCodeUsernameTaken},
	auth.CodeWeakPassword:       {http.StatusUnprocessableEntity, ErrCodeWeakPassword},
	auth.CodeInvalidCredentials: {http.StatusUnauthorized, ErrCodeInvalidCredentials},
	auth.CodeNotAuthenticated:   {http.StatusUnauthorized, ErrCodeNotAuthenticated},
	auth.CodeUserNotFound:       {http.StatusNotFound, ErrCodeUserNotFound},
	auth.CodeMissingInput:       {http.StatusBadRequest, ErrCodeMissingInput},
	auth.CodeInvalidUsername:    {http.StatusBadRequest, ErrCodeInvalidUsername},
}

func internalErrorBody() ErrorBody {
	return ErrorBody{Error: ErrCodeInternal, Message: "internal server error"}
}

// mapError translates a service error into a status and body. Errors
// without a caller-facing code are infrastructure failures.
func mapError(err error) (int, ErrorBody, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return http.StatusInternalServerError, internalErrorBody(), false
	}
	code, _ := oopsErr.Code().(string)
	m, ok := authErrors[code]
	if !ok {
		return http.StatusInternalServerError, internalErrorBody(), false
	}
	body := ErrorBody{Error: m.code, Message: oopsErr.Error()}
	if code == auth.CodeWeakPassword {
		body.Violations = auth.Violations(err)
	}
	return m.status, body, true
}

// writeError writes the response for err, logging infrastructure failures.
func writeError(c *gin.Context, logger *slog.Logger, operation string, err error) {
	status, body, known := mapError(err)
	if !known {
		logError(c, logger, operation+" failed", err)
	}
	c.JSON(status, body)
}

func logError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	errutil.LogError(c.Request.Context(), logger, msg, err,
		"path", c.Request.URL.Path)
}
