// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is the subset of testing.TB the assertions need. GinkgoT()
// satisfies it too.
type TestingT interface {
	require.TestingT
	Helper()
}

// AssertErrorCode asserts that err is an oops error whose deepest code is
// code. The failure message carries the full error text.
func AssertErrorCode(t TestingT, err error, code string) {
	t.Helper()
	oopsErr := requireOops(t, err)
	assert.Equal(t, code, oopsErr.Code(), "error: %v", err)
}

// AssertErrorContext asserts that err is an oops error with the given
// context key/value.
func AssertErrorContext(t TestingT, err error, key string, value any) {
	t.Helper()
	errCtx := requireOops(t, err).Context()
	if assert.Contains(t, errCtx, key) {
		assert.Equal(t, value, errCtx[key])
	}
}

// AssertErrorContextStrings asserts that the context value under key is a
// string list equal to want, order included. Password policy violations are
// carried this way.
func AssertErrorContextStrings(t TestingT, err error, key string, want ...string) {
	t.Helper()
	errCtx := requireOops(t, err).Context()
	got, ok := errCtx[key].([]string)
	if !assert.True(t, ok, "context %q is %T, want []string", key, errCtx[key]) {
		return
	}
	assert.Equal(t, want, got)
}

func requireOops(t TestingT, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}
