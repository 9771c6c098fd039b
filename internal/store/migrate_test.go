// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package store

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysboard/sysboard/pkg/errutil"
)

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	forced         int
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func (m *mockMigrate) Force(v int) error {
	m.forced = v
	return m.forceErr
}

func newTestMigrator(mm *mockMigrate) *Migrator {
	return &Migrator{m: mm, versions: []uint{1, 2}}
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@host:5432/db", "pgx5://u:p@host:5432/db"},
		{"postgresql://u:p@host/db?sslmode=disable", "pgx5://u:p@host/db?sslmode=disable"},
		{"pgx5://host/db", "pgx5://host/db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrator_UpDownSteps(t *testing.T) {
	tests := []struct {
		name    string
		mm      *mockMigrate
		run     func(*Migrator) error
		errCode string
	}{
		{"up success", &mockMigrate{}, (*Migrator).Up, ""},
		{"up no change", &mockMigrate{upErr: migrate.ErrNoChange}, (*Migrator).Up, ""},
		{"up error", &mockMigrate{upErr: errors.New("database locked")}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down no change", &mockMigrate{downErr: migrate.ErrNoChange}, (*Migrator).Down, ""},
		{"down error", &mockMigrate{downErr: errors.New("constraint violation")}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
		{"steps no change", &mockMigrate{stepsErr: migrate.ErrNoChange}, func(m *Migrator) error { return m.Steps(0) }, ""},
		{"steps error", &mockMigrate{stepsErr: errors.New("invalid step")}, func(m *Migrator) error { return m.Steps(-1) }, "MIGRATION_STEPS_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(newTestMigrator(tt.mm))
			if tt.errCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.errCode)
		})
	}
}

func TestMigrator_Version(t *testing.T) {
	t.Run("dirty", func(t *testing.T) {
		version, dirty, err := newTestMigrator(&mockMigrate{versionVal: 2, dirty: true}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.True(t, dirty)
	})

	t.Run("nil version is zero", func(t *testing.T) {
		version, dirty, err := newTestMigrator(&mockMigrate{versionErr: migrate.ErrNilVersion}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
		assert.False(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		_, _, err := newTestMigrator(&mockMigrate{versionErr: errors.New("connection lost")}).Version()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Force(t *testing.T) {
	t.Run("forwards version", func(t *testing.T) {
		mm := &mockMigrate{}
		require.NoError(t, newTestMigrator(mm).Force(1))
		assert.Equal(t, 1, mm.forced)
	})

	t.Run("negative version rejected", func(t *testing.T) {
		err := newTestMigrator(&mockMigrate{}).Force(-1)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	})

	t.Run("error", func(t *testing.T) {
		err := newTestMigrator(&mockMigrate{forceErr: errors.New("no such version")}).Force(9)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_FORCE_FAILED")
		errutil.AssertErrorContext(t, err, "version", 9)
	})
}

func TestMigrator_Status(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		st, err := newTestMigrator(&mockMigrate{versionErr: migrate.ErrNilVersion}).Status()
		require.NoError(t, err)
		assert.Equal(t, uint(0), st.Version)
		assert.Empty(t, st.Name)
		assert.Empty(t, st.Applied)
		assert.Equal(t, []uint{1, 2}, st.Pending)
	})

	t.Run("partially migrated", func(t *testing.T) {
		st, err := newTestMigrator(&mockMigrate{versionVal: 1}).Status()
		require.NoError(t, err)
		assert.Equal(t, "000001_users", st.Name)
		assert.Equal(t, []uint{1}, st.Applied)
		assert.Equal(t, []uint{2}, st.Pending)
	})

	t.Run("latest", func(t *testing.T) {
		st, err := newTestMigrator(&mockMigrate{versionVal: 2}).Status()
		require.NoError(t, err)
		assert.Equal(t, "000002_sessions", st.Name)
		assert.Equal(t, []uint{1, 2}, st.Applied)
		assert.Empty(t, st.Pending)
	})

	t.Run("version error", func(t *testing.T) {
		_, err := newTestMigrator(&mockMigrate{versionErr: errors.New("connection lost")}).Status()
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "operation", "get migration status")
	})
}

func TestMigrator_Close(t *testing.T) {
	tests := []struct {
		name      string
		mm        *mockMigrate
		component string
	}{
		{"success", &mockMigrate{}, ""},
		{"source error", &mockMigrate{closeSourceErr: errors.New("source close failed")}, "source"},
		{"database error", &mockMigrate{closeDbErr: errors.New("db close failed")}, "database"},
		{"both errors", &mockMigrate{closeSourceErr: errors.New("source close failed"), closeDbErr: errors.New("db close failed")}, "both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestMigrator(tt.mm).Close()
			if tt.component == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.component)
		})
	}
}

func TestMigrationVersions(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		versions, err := migrationVersions(migrationsFS)
		require.NoError(t, err)
		assert.Equal(t, []uint{1, 2}, versions)
	})

	t.Run("sorted and ignores down files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/000010_later.up.sql":   {},
			"migrations/000002_early.up.sql":   {},
			"migrations/000002_early.down.sql": {},
		}
		versions, err := migrationVersions(fsys)
		require.NoError(t, err)
		assert.Equal(t, []uint{2, 10}, versions)
	})

	t.Run("malformed name", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/bad.up.sql": {}}
		_, err := migrationVersions(fsys)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_LIST_FAILED")
	})
}

func TestMigrationName(t *testing.T) {
	name, err := MigrationName(2)
	require.NoError(t, err)
	assert.Equal(t, "000002_sessions", name)

	name, err = MigrationName(99)
	require.NoError(t, err)
	assert.Empty(t, name)
}
