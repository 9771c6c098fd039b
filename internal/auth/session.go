// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32 // 32 bytes = 64 hex chars
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// SessionData is the bag of values carried by a session.
type SessionData struct {
	UserID *int64 `json:"user_id,omitempty"`
}

// Session is the server-side state bound to one client cookie.
//
// A Session is request-scoped: the transport loads it from a SessionStore,
// hands it to Service operations, and persists it afterwards according to
// Modified, Cleared and NeedsRenewal.
type Session struct {
	ID         ulid.ULID
	TokenHash  string
	Data       SessionData
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time

	token    string
	isNew    bool
	modified bool
	cleared  bool
	renew    bool
}

// NewSession creates an empty session with a fresh token. The session is not
// stored until it carries data.
func NewSession(ttl time.Duration) (*Session, error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		ID:         ulid.Make(),
		TokenHash:  hash,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(ttl),
		token:      token,
		isNew:      true,
	}, nil
}

// RestoreSession rebuilds a session read from a SessionStore. The result has
// no plaintext token and no pending changes.
func RestoreSession(id ulid.ULID, tokenHash string, data SessionData, createdAt, lastSeenAt, expiresAt time.Time) *Session {
	return &Session{
		ID:         id,
		TokenHash:  tokenHash,
		Data:       data,
		CreatedAt:  createdAt,
		LastSeenAt: lastSeenAt,
		ExpiresAt:  expiresAt,
	}
}

// Token returns the plaintext token if it was issued during this request.
// Sessions loaded from a store return the empty string until renewed.
func (s *Session) Token() string {
	return s.token
}

// UserID returns the authenticated user ID, if any.
func (s *Session) UserID() (int64, bool) {
	if s == nil || s.Data.UserID == nil {
		return 0, false
	}
	return *s.Data.UserID, true
}

// SetUserID binds the session to a user, overwriting any prior value.
// The token is renewed on the next Renew call to prevent session fixation.
func (s *Session) SetUserID(id int64) {
	s.Data.UserID = &id
	s.modified = true
	s.cleared = false
	s.renew = true
}

// Clear removes all session data.
func (s *Session) Clear() {
	s.Data = SessionData{}
	s.modified = true
	s.cleared = true
	s.renew = false
}

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool { return s.isNew }

// Modified reports whether the session data changed during this request.
func (s *Session) Modified() bool { return s.modified }

// Cleared reports whether the session was cleared during this request.
func (s *Session) Cleared() bool { return s.cleared }

// NeedsRenewal reports whether a new token must be issued before saving.
func (s *Session) NeedsRenewal() bool { return s.renew }

// Renew issues a fresh token and extends the expiry. The session keeps its ID,
// so saving it invalidates the previous token.
func (s *Session) Renew(ttl time.Duration) error {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	s.token = token
	s.TokenHash = hash
	s.LastSeenAt = now
	s.ExpiresAt = now.Add(ttl)
	s.renew = false
	return nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionStore manages session persistence.
type SessionStore interface {
	// Get retrieves an unexpired session by its token hash.
	// Returns ErrNotFound if absent or expired.
	Get(ctx context.Context, tokenHash string) (*Session, error)

	// Save inserts or replaces a session by ID.
	Save(ctx context.Context, session *Session) error

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
