// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

// Package auth provides the credential core of sysboard.
//
// # Domain Types
//
// Users are created with NewUser, which validates the username and requires a
// password hash produced by a PasswordHasher. Sessions are created with
// NewSession and carry a SessionData bag that is empty for anonymous clients.
//
// # Services
//
// Service coordinates the UserRepository, the PasswordHasher and the password
// policy into the register, login, logout, change-password and current-user
// operations. Every operation that acts on behalf of a client takes the
// client's *Session explicitly; persisting the session afterwards is the
// transport's job.
//
// EnsureAdmin seeds the first administrator when the user store is empty.
//
// # Errors
//
// Caller-facing failures are oops errors carrying one of the Code* constants.
// Use HasCode to classify them and Violations to read the password policy
// violations of a weak-password error.
package auth
