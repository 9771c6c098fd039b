// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysboard/sysboard/internal/config"
	"github.com/sysboard/sysboard/internal/store"
	"github.com/sysboard/sysboard/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true, wantErrCode: "INVALID_VERSION"},
		{name: "float parses as integer", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative parses", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true, wantErrCode: "INVALID_VERSION"},
		{name: "whitespace only returns error", input: "   ", wantErr: true, wantErrCode: "INVALID_VERSION"},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				assert.Equal(t, 0, version)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantVersion, version)
			}
		})
	}
}

type fakeMigrator struct {
	calls    []string
	steps    int
	forced   int
	status   store.Status
	upErr    error
	closed   bool
	closeErr error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return nil
}

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	f.forced = version
	return nil
}

func (f *fakeMigrator) Status() (*store.Status, error) {
	st := f.status
	return &st, nil
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return f.closeErr
}

func migrateDeps(m *fakeMigrator, gotURL *string) *Deps {
	return &Deps{Migrator: func(url string) (Migrator, error) {
		if gotURL != nil {
			*gotURL = url
		}
		return m, nil
	}}
}

func runMigrate(t *testing.T, m *fakeMigrator, args ...string) result {
	t.Helper()
	t.Setenv(config.DatabaseURLEnv, "postgres://sysboard@localhost/sysboard")
	return executeWithEnv(context.Background(), t, migrateDeps(m, nil), nil, append([]string{"migrate"}, args...)...)
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{status: store.Status{
		Version: 2,
		Name:    "sessions",
		Applied: []uint{1, 2},
	}}

	res := runMigrate(t, m, "up")

	require.NoError(t, res.err)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.True(t, m.closed)
	assert.Contains(t, res.stdout, "Version: 2 (sessions)")
	assert.Contains(t, res.stdout, "Applied: 1, 2")
	assert.Contains(t, res.stdout, "Pending: none")
}

func TestMigrateUp_PassesDatabaseURL(t *testing.T) {
	t.Setenv(config.DatabaseURLEnv, "postgres://db.example/sysboard")
	var gotURL string

	res := executeWithEnv(context.Background(), t, migrateDeps(&fakeMigrator{}, &gotURL), nil, "migrate", "up")

	require.NoError(t, res.err)
	assert.Equal(t, "postgres://db.example/sysboard", gotURL)
}

func TestMigrateUp_Failure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("dirty database")}

	res := runMigrate(t, m, "up")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, "MIGRATION_FAILED")
	assert.True(t, m.closed)
}

func TestMigrateDown(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCalls []string
		wantSteps int
	}{
		{name: "defaults to one step", args: []string{"down"}, wantCalls: []string{"steps"}, wantSteps: -1},
		{name: "custom steps", args: []string{"down", "--steps=2"}, wantCalls: []string{"steps"}, wantSteps: -2},
		{name: "all", args: []string{"down", "--all"}, wantCalls: []string{"down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{}

			res := runMigrate(t, m, tt.args...)

			require.NoError(t, res.err)
			assert.Equal(t, tt.wantCalls, m.calls)
			assert.Equal(t, tt.wantSteps, m.steps)
		})
	}
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	m := &fakeMigrator{}

	res := runMigrate(t, m, "down", "--steps=0")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, "INVALID_STEPS")
	assert.Empty(t, m.calls)
}

func TestMigrateStatus(t *testing.T) {
	m := &fakeMigrator{status: store.Status{
		Version: 1,
		Name:    "users",
		Dirty:   true,
		Applied: []uint{1},
		Pending: []uint{2},
	}}

	res := runMigrate(t, m, "status")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Version: 1 (users)")
	assert.Contains(t, res.stdout, "Dirty:   true")
	assert.Contains(t, res.stdout, "Pending: 2")
}

func TestMigrateStatus_FreshDatabase(t *testing.T) {
	m := &fakeMigrator{status: store.Status{Pending: []uint{1, 2}}}

	res := runMigrate(t, m, "status")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Version: 0 (-)")
	assert.Contains(t, res.stdout, "Applied: none")
}

func TestMigrateForce(t *testing.T) {
	m := &fakeMigrator{}

	res := runMigrate(t, m, "force", "2")

	require.NoError(t, res.err)
	assert.Equal(t, 2, m.forced)
	assert.Contains(t, res.stdout, "Forced schema version to 2")
}

func TestMigrateForce_InvalidVersion(t *testing.T) {
	m := &fakeMigrator{}

	res := runMigrate(t, m, "force", "abc")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, "INVALID_VERSION")
	assert.Empty(t, m.calls)
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	m := &fakeMigrator{}

	res := execute(context.Background(), t, migrateDeps(m, nil), nil, "migrate", "up")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, "CONFIG_INVALID")
	assert.Empty(t, m.calls)
}

func TestMigrate_CloseErrorIsReported(t *testing.T) {
	m := &fakeMigrator{closeErr: errors.New("connection reset")}

	res := runMigrate(t, m, "status")

	require.Error(t, res.err)
	errutil.AssertErrorCode(t, res.err, "MIGRATION_FAILED")
}
