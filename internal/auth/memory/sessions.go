// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sysboard/sysboard/internal/auth"
)

type sessionRecord struct {
	tokenHash  string
	data       auth.SessionData
	createdAt  time.Time
	lastSeenAt time.Time
	expiresAt  time.Time
}

// SessionStore is an in-memory auth.SessionStore. When created with a
// positive cleanup interval it runs a janitor goroutine that evicts expired
// sessions until Close is called.
type SessionStore struct {
	mu      sync.Mutex
	byID    map[ulid.ULID]sessionRecord
	byToken map[string]ulid.ULID

	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSessionStore creates an in-memory session store.
func NewSessionStore(cleanupInterval time.Duration) *SessionStore {
	s := &SessionStore{
		byID:     make(map[ulid.ULID]sessionRecord),
		byToken:  make(map[string]ulid.ULID),
		stopChan: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)

// Get retrieves an unexpired session by token hash.
func (s *SessionStore) Get(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	rec := s.byID[id]
	if time.Now().After(rec.expiresAt) {
		s.deleteLocked(id)
		return nil, oops.Code("SESSION_NOT_FOUND").With("reason", "expired").Wrap(auth.ErrNotFound)
	}

	data := rec.data
	if data.UserID != nil {
		userID := *data.UserID
		data.UserID = &userID
	}
	return auth.RestoreSession(id, rec.tokenHash, data, rec.createdAt, rec.lastSeenAt, rec.expiresAt), nil
}

// Save inserts or replaces a session by ID. A renewed session's previous
// token stops resolving.
func (s *SessionStore) Save(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byToken[session.TokenHash]; ok && owner != session.ID {
		return oops.Code("SESSION_SAVE_FAILED").
			With("session_id", session.ID.String()).
			Wrap(auth.ErrDuplicate)
	}
	if prev, ok := s.byID[session.ID]; ok {
		delete(s.byToken, prev.tokenHash)
	}

	data := session.Data
	if data.UserID != nil {
		userID := *data.UserID
		data.UserID = &userID
	}
	s.byID[session.ID] = sessionRecord{
		tokenHash:  session.TokenHash,
		data:       data,
		createdAt:  session.CreatedAt,
		lastSeenAt: session.LastSeenAt,
		expiresAt:  session.ExpiresAt,
	}
	s.byToken[session.TokenHash] = session.ID
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(id)
	return nil
}

// DeleteExpired removes all expired sessions.
func (s *SessionStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var n int64
	for id, rec := range s.byID {
		if now.After(rec.expiresAt) {
			s.deleteLocked(id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Close stops the janitor goroutine. It blocks until the goroutine has
// stopped and is safe to call more than once.
func (s *SessionStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *SessionStore) deleteLocked(id ulid.ULID) {
	rec, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byToken, rec.tokenHash)
	delete(s.byID, id)
}

func (s *SessionStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			_, _ = s.DeleteExpired(context.Background())
		}
	}
}
