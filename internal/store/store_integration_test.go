// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/sysboard/sysboard/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(migrator.Close()).To(Succeed()) })

		// Other containers may have migrated already.
		Expect(migrator.Down()).To(Succeed())
	})

	It("starts at version 0 with everything pending", func() {
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(BeZero())
		Expect(st.Pending).To(Equal([]uint{1, 2}))
	})

	It("applies all migrations", func() {
		Expect(migrator.Up()).To(Succeed())

		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(Equal(uint(2)))
		Expect(st.Dirty).To(BeFalse())
		Expect(st.Pending).To(BeEmpty())
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("steps down and up again", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	It("rolls everything back and re-applies", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		Expect(migrator.Up()).To(Succeed())
	})
})

var _ = Describe("Connect", func() {
	var pool *pgxpool.Pool

	BeforeEach(func() {
		migrator, err := store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(context.Background(), databaseURL, 10*time.Second)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)
	})

	It("returns a usable pool", func() {
		var one int
		Expect(pool.QueryRow(context.Background(), "SELECT 1").Scan(&one)).To(Succeed())
		Expect(one).To(Equal(1))
	})

	It("enforces unique usernames", func() {
		ctx := context.Background()
		_, err := pool.Exec(ctx, `INSERT INTO users (username, password_hash) VALUES ('uniq_user', 'h')`)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_, _ = pool.Exec(ctx, `DELETE FROM users WHERE username = 'uniq_user'`)
		})

		_, err = pool.Exec(ctx, `INSERT INTO users (username, password_hash) VALUES ('uniq_user', 'h2')`)
		Expect(err).To(MatchError(ContainSubstring("users_username_key")))
	})

	It("rejects usernames outside 3 to 32 characters", func() {
		_, err := pool.Exec(context.Background(), `INSERT INTO users (username, password_hash) VALUES ('ab', 'h')`)
		Expect(err).To(HaveOccurred())
	})
})
