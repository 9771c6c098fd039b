// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Default bootstrap administrator credentials.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin" //nolint:gosec // G101: forced to change on first login
)

// AdminSeed holds the credentials of the initial administrator.
type AdminSeed struct {
	Username string
	Password string
}

// EnsureAdmin creates the initial administrator when no users exist. The
// account is flagged to change its password on first login. It reports
// whether an account was created; an already populated store is a no-op.
func EnsureAdmin(ctx context.Context, users UserRepository, hasher PasswordHasher, seed AdminSeed) (bool, error) {
	if seed.Username == "" {
		seed.Username = DefaultAdminUsername
	}
	if seed.Password == "" {
		seed.Password = DefaultAdminPassword
	}

	count, err := users.Count(ctx)
	if err != nil {
		return false, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "count users").
			Wrap(err)
	}
	if count > 0 {
		return false, nil
	}

	// The seed password is exempt from the strength policy.
	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return false, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	admin, err := NewUser(seed.Username, hash)
	if err != nil {
		return false, err
	}
	admin.IsAdmin = true
	admin.MustChangePassword = true

	if err := users.Create(ctx, admin); err != nil {
		// Another process seeded first.
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "create admin").
			With("username", seed.Username).
			Wrap(err)
	}

	return true, nil
}
