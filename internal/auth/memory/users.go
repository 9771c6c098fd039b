// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

// Package memory provides in-memory implementations of the auth repositories
// for single-process deployments and tests.
package memory

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/sysboard/sysboard/internal/auth"
)

// UserRepository is an in-memory auth.UserRepository.
type UserRepository struct {
	mu         sync.RWMutex
	lastID     int64
	byID       map[int64]auth.User
	byUsername map[string]int64
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[int64]auth.User),
		byUsername: make(map[string]int64),
	}
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

// Create stores a new user and assigns its ID.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return oops.Code("USER_CREATE_FAILED").
			With("username", user.Username).
			Wrap(auth.ErrDuplicate)
	}

	r.lastID++
	user.ID = r.lastID
	r.byID[user.ID] = *user
	r.byUsername[user.Username] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	user := r.byID[id]
	return &user, nil
}

// Update replaces a stored user. The username cannot change.
func (r *UserRepository) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[user.ID]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", user.ID).Wrap(auth.ErrNotFound)
	}

	updated := *user
	updated.Username = existing.Username
	updated.CreatedAt = existing.CreatedAt
	r.byID[user.ID] = updated
	return nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}
