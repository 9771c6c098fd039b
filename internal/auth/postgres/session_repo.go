// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sysboard/sysboard/internal/auth"
)

// SessionStore implements auth.SessionStore using PostgreSQL.
type SessionStore struct {
	pool poolIface
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool poolIface) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)

// Get retrieves an unexpired session by its token hash.
func (s *SessionStore) Get(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token_hash, data, created_at, last_seen_at, expires_at
		FROM sessions
		WHERE token_hash = $1 AND expires_at >= NOW()
	`, tokenHash)

	var (
		idStr      string
		hash       string
		dataJSON   []byte
		createdAt  time.Time
		lastSeenAt time.Time
		expiresAt  time.Time
	)
	err := row.Scan(&idStr, &hash, &dataJSON, &createdAt, &lastSeenAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}

	var data auth.SessionData
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &data); err != nil {
			return nil, oops.Code("SESSION_GET_FAILED").
				With("operation", "unmarshal session data").
				With("id", idStr).
				Wrap(err)
		}
	}

	return auth.RestoreSession(id, hash, data, createdAt, lastSeenAt, expiresAt), nil
}

// Save inserts or replaces a session by ID.
func (s *SessionStore) Save(ctx context.Context, session *auth.Session) error {
	dataJSON, err := json.Marshal(session.Data)
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "marshal session data").
			Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, token_hash, data, created_at, last_seen_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			data = EXCLUDED.data,
			last_seen_at = EXCLUDED.last_seen_at,
			expires_at = EXCLUDED.expires_at
	`,
		session.ID.String(),
		session.TokenHash,
		dataJSON,
		session.CreatedAt,
		session.LastSeenAt,
		session.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("SESSION_SAVE_FAILED").
			With("id", session.ID.String()).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "upsert session").
			With("id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id ulid.ULID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired sessions.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}
