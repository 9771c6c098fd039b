// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package auth

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
)

// User represents a user account.
type User struct {
	ID                 int64
	Username           string
	PasswordHash       string
	IsActive           bool
	IsAdmin            bool
	OTPSecret          *string // reserved, never read
	MustChangePassword bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewUser creates a validated, active, non-admin User that has not yet been
// persisted. The repository assigns the ID.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetPassword replaces the password hash and clears the forced-change flag.
func (u *User) SetPassword(passwordHash string) {
	u.PasswordHash = passwordHash
	u.MustChangePassword = false
	u.UpdatedAt = time.Now().UTC()
}

// View returns the public representation of the user.
func (u *User) View() *UserView {
	return &UserView{
		ID:                 u.ID,
		Username:           u.Username,
		IsAdmin:            u.IsAdmin,
		MustChangePassword: u.MustChangePassword,
	}
}

// UserView is the subset of a User that is safe to return to callers.
type UserView struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	IsAdmin            bool   `json:"is_admin"`
	MustChangePassword bool   `json:"must_change_password"`
}

// ValidateUsername validates a username's length in characters.
// Usernames are case-sensitive and otherwise unrestricted.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if n > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and assigns its ID.
	// Returns ErrDuplicate if the username is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by exact (case-sensitive) username.
	// Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update updates an existing user. Returns ErrNotFound if absent.
	Update(ctx context.Context, user *User) error

	// Count returns the number of stored users.
	Count(ctx context.Context) (int64, error)
}
