// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sysboard/sysboard/internal/auth"

// dummyPasswordHash is verified when a user doesn't exist so that response
// time does not reveal whether a username is registered. It never matches.
//
//nolint:gosec // G101: intentionally fake hash for timing equalization, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Credentials is a username/password pair submitted for registration or login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordInput carries the fields of a password change request.
// Both fields are required.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Metrics observes the outcome of Service operations.
type Metrics interface {
	ObserveOperation(operation, result string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string, time.Duration) {}

// Service provides authentication operations. It holds no per-user state;
// all state lives in the UserRepository and the caller's Session.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	logger    *slog.Logger
	metrics   Metrics
	tracer    trace.Tracer
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the operation metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}

	s := &Service{
		users:     users,
		hasher:    hasher,
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		tracer:    otel.Tracer(tracerName),
		dummyHash: dummyPasswordHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	if s.metrics == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("metrics cannot be nil")
	}

	// Verify the dummy hash at the hasher's own work factor.
	if dh, ok := hasher.(interface{ DummyHash() string }); ok {
		s.dummyHash = dh.DummyHash()
	}

	return s, nil
}

// Register creates a new user account. The username is checked for
// uniqueness before the password is checked for presence and strength.
func (s *Service) Register(ctx context.Context, creds Credentials) (view *UserView, err error) {
	ctx, done := s.begin(ctx, "register", attribute.String("username", creds.Username))
	defer func() { done(err) }()

	if creds.Username == "" {
		return nil, oops.Code(CodeMissingInput).Errorf("username and password are required")
	}
	if err := ValidateUsername(creds.Username); err != nil {
		return nil, err
	}

	_, err = s.users.GetByUsername(ctx, creds.Username)
	switch {
	case err == nil:
		return nil, errUsernameTaken(creds.Username)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	if creds.Password == "" {
		return nil, oops.Code(CodeMissingInput).Errorf("username and password are required")
	}
	if ok, violations := ValidatePassword(creds.Password); !ok {
		return nil, errWeakPassword(violations)
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(creds.Username, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		// Lost the race against a concurrent registration.
		if errors.Is(err, ErrDuplicate) {
			return nil, errUsernameTaken(creds.Username)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user.View(), nil
}

// Login verifies credentials and binds the session to the user.
// Unknown usernames and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, creds Credentials, sess *Session) (view *UserView, err error) {
	ctx, done := s.begin(ctx, "login", attribute.String("username", creds.Username))
	defer func() { done(err) }()

	if sess == nil {
		return nil, oops.Code("AUTH_SESSION_REQUIRED").Errorf("session is required")
	}

	user, lookupErr := s.users.GetByUsername(ctx, creds.Username)

	targetHash := s.dummyHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	// Always verify, even for unknown users, to keep timing uniform.
	valid := s.hasher.Verify(creds.Password, targetHash)
	if lookupErr != nil || !valid {
		return nil, errInvalidCredentials()
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, creds.Password)
	}

	sess.SetUserID(user.ID)

	return user.View(), nil
}

// Logout clears the session. It succeeds whether or not the session was
// authenticated.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	_, done := s.begin(ctx, "logout")
	defer done(nil)

	if sess != nil {
		sess.Clear()
	}
	return nil
}

// ChangePassword replaces the password of the session's user and clears the
// forced-change flag. Checks run in a fixed order: authentication, user
// existence, input presence, current password, new password strength.
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput, sess *Session) (view *UserView, err error) {
	ctx, done := s.begin(ctx, "change_password")
	defer func() { done(err) }()

	user, err := s.sessionUser(ctx, sess)
	if err != nil {
		return nil, err
	}

	if in.CurrentPassword == "" || in.NewPassword == "" {
		return nil, oops.Code(CodeMissingInput).Errorf("current and new password are required")
	}

	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return nil, oops.Code(CodeInvalidCredentials).
			With("user_id", user.ID).
			Errorf("current password is incorrect")
	}

	if ok, violations := ValidatePassword(in.NewPassword); !ok {
		return nil, errWeakPassword(violations)
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user.SetPassword(hash)
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUserNotFound(user.ID)
		}
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update user").
			With("user_id", user.ID).
			Wrap(err)
	}

	return user.View(), nil
}

// CurrentUser returns the user bound to the session.
func (s *Service) CurrentUser(ctx context.Context, sess *Session) (view *UserView, err error) {
	ctx, done := s.begin(ctx, "current_user")
	defer func() { done(err) }()

	user, err := s.sessionUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

// sessionUser resolves the session's user without touching the repository
// when the session is anonymous.
func (s *Service) sessionUser(ctx context.Context, sess *Session) (*User, error) {
	userID, ok := sess.UserID()
	if !ok {
		return nil, errNotAuthenticated()
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUserNotFound(userID)
		}
		return nil, oops.Code("AUTH_SESSION_USER_FAILED").
			With("operation", "get user by id").
			With("user_id", userID).
			Wrap(err)
	}
	return user, nil
}

// upgradeHash rehashes a verified password with the current parameters.
// Failures are logged; the login proceeds with the old hash.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "hash_upgrade",
			"user_id", user.ID,
			"error", err.Error())
		return
	}

	upgraded := *user
	upgraded.PasswordHash = hash
	upgraded.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, &upgraded); err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "update_user",
			"user_id", user.ID,
			"error", err.Error())
		return
	}
	*user = upgraded
}

// begin starts a span for an operation and returns a function that records
// the outcome when the operation returns.
func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "auth."+operation, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		result := resultLabel(err)
		span.SetAttributes(attribute.String("auth.result", result))
		if result == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, "infrastructure failure")
		}
		span.End()
		s.metrics.ObserveOperation(operation, result, time.Since(start))
	}
}

var resultCodes = []string{
	CodeUsernameTaken,
	CodeWeakPassword,
	CodeInvalidCredentials,
	CodeNotAuthenticated,
	CodeUserNotFound,
	CodeMissingInput,
	CodeInvalidUsername,
}

// resultLabel maps an operation outcome to a low-cardinality label:
// "success", a lowercased caller-facing code without its prefix, or "error".
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	for _, code := range resultCodes {
		if HasCode(err, code) {
			return strings.ToLower(strings.TrimPrefix(code, "AUTH_"))
		}
	}
	return "error"
}

func errUsernameTaken(username string) error {
	return oops.Code(CodeUsernameTaken).
		With("username", username).
		Errorf("username %q is already taken", username)
}

func errUserNotFound(id int64) error {
	return oops.Code(CodeUserNotFound).
		With("user_id", id).
		Errorf("user not found")
}
