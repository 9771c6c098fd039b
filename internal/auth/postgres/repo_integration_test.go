// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/auth/postgres"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		repo = postgres.NewUserRepository(pool)
	})

	newUser := func(username string) *auth.User {
		u, err := auth.NewUser(username, "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$a2V5")
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	It("assigns sequential IDs starting at 1", func() {
		alice := newUser("alice")
		bob := newUser("bob")
		Expect(repo.Create(ctx, alice)).To(Succeed())
		Expect(repo.Create(ctx, bob)).To(Succeed())

		Expect(alice.ID).To(Equal(int64(1)))
		Expect(bob.ID).To(Equal(int64(2)))
	})

	It("round-trips every field", func() {
		u := newUser("alice")
		u.IsAdmin = true
		u.MustChangePassword = true
		Expect(repo.Create(ctx, u)).To(Succeed())

		got, err := repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal("alice"))
		Expect(got.PasswordHash).To(Equal(u.PasswordHash))
		Expect(got.IsActive).To(BeTrue())
		Expect(got.IsAdmin).To(BeTrue())
		Expect(got.MustChangePassword).To(BeTrue())
		Expect(got.OTPSecret).To(BeNil())
		Expect(got.CreatedAt).To(BeTemporally("~", u.CreatedAt, time.Millisecond))
	})

	It("rejects duplicate usernames", func() {
		Expect(repo.Create(ctx, newUser("alice"))).To(Succeed())

		err := repo.Create(ctx, newUser("alice"))
		Expect(err).To(MatchError(auth.ErrDuplicate))
	})

	It("looks up usernames case-sensitively", func() {
		Expect(repo.Create(ctx, newUser("Alice"))).To(Succeed())

		_, err := repo.GetByUsername(ctx, "alice")
		Expect(err).To(MatchError(auth.ErrNotFound))

		got, err := repo.GetByUsername(ctx, "Alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal("Alice"))
	})

	It("updates the password and clears the forced-change flag", func() {
		u := newUser("alice")
		u.MustChangePassword = true
		Expect(repo.Create(ctx, u)).To(Succeed())

		u.SetPassword("$argon2id$v=19$m=64,t=1,p=1$c2FsdDI$a2V5Mg")
		Expect(repo.Update(ctx, u)).To(Succeed())

		got, err := repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal(u.PasswordHash))
		Expect(got.MustChangePassword).To(BeFalse())
	})

	It("reports missing users on update", func() {
		u := newUser("ghost")
		u.ID = 42
		Expect(repo.Update(ctx, u)).To(MatchError(auth.ErrNotFound))
	})

	It("counts users", func() {
		n, err := repo.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())

		Expect(repo.Create(ctx, newUser("alice"))).To(Succeed())
		n, err = repo.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})
})

var _ = Describe("SessionStore", func() {
	var (
		ctx   context.Context
		store *postgres.SessionStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		store = postgres.NewSessionStore(pool)
	})

	newSession := func(userID int64, ttl time.Duration) *auth.Session {
		s, err := auth.NewSession(ttl)
		Expect(err).NotTo(HaveOccurred())
		s.SetUserID(userID)
		return s
	}

	It("saves and loads by token hash", func() {
		s := newSession(7, time.Hour)
		Expect(store.Save(ctx, s)).To(Succeed())

		got, err := store.Get(ctx, s.TokenHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(s.ID))
		uid, ok := got.UserID()
		Expect(ok).To(BeTrue())
		Expect(uid).To(Equal(int64(7)))
		Expect(got.Token()).To(BeEmpty())
	})

	It("hides expired sessions", func() {
		s := newSession(1, time.Hour)
		s.ExpiresAt = time.Now().Add(-time.Minute)
		Expect(store.Save(ctx, s)).To(Succeed())

		_, err := store.Get(ctx, s.TokenHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("invalidates the previous token on renewal", func() {
		s := newSession(1, time.Hour)
		Expect(store.Save(ctx, s)).To(Succeed())
		oldHash := s.TokenHash

		Expect(s.Renew(time.Hour)).To(Succeed())
		Expect(store.Save(ctx, s)).To(Succeed())

		_, err := store.Get(ctx, oldHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
		got, err := store.Get(ctx, s.TokenHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(s.ID))
	})

	It("deletes sessions idempotently", func() {
		s := newSession(1, time.Hour)
		Expect(store.Save(ctx, s)).To(Succeed())

		Expect(store.Delete(ctx, s.ID)).To(Succeed())
		Expect(store.Delete(ctx, s.ID)).To(Succeed())
		Expect(store.Delete(ctx, ulid.Make())).To(Succeed())

		_, err := store.Get(ctx, s.TokenHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("deletes only expired sessions", func() {
		live := newSession(1, time.Hour)
		expired := newSession(2, time.Hour)
		expired.ExpiresAt = time.Now().Add(-time.Minute)
		Expect(store.Save(ctx, live)).To(Succeed())
		Expect(store.Save(ctx, expired)).To(Succeed())

		n, err := store.DeleteExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		_, err = store.Get(ctx, live.TokenHash)
		Expect(err).NotTo(HaveOccurred())
	})
})
