// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by repositories when an insert violates a
// uniqueness constraint.
var ErrDuplicate = errors.New("duplicate")

// Error codes reported by Service operations. Callers distinguish outcomes by
// code, never by message.
const (
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeWeakPassword       = "AUTH_WEAK_PASSWORD"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeNotAuthenticated   = "AUTH_NOT_AUTHENTICATED"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeMissingInput       = "AUTH_MISSING_INPUT"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
)

// violationsKey is the oops context key carrying password policy violations.
const violationsKey = "violations"

// HasCode reports whether err is an oops error carrying the given code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}

// Violations returns the password policy violations attached to a
// weak-password error, or nil if err carries none.
func Violations(err error) []string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	v, _ := oopsErr.Context()[violationsKey].([]string)
	return v
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
}

func errNotAuthenticated() error {
	return oops.Code(CodeNotAuthenticated).Errorf("not logged in")
}

func errWeakPassword(violations []string) error {
	return oops.Code(CodeWeakPassword).
		With(violationsKey, violations).
		Errorf("password does not meet requirements")
}
