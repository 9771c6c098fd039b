// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/sysinfo"
	"github.com/sysboard/sysboard/internal/web"
)

const strongPassword = "Str0ng!Pass"

func postJSON(client *http.Client, path string, body any) (*http.Response, map[string]any) {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	resp, err := client.Post(server.URL+path, "application/json", bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	return resp, decodeBody(resp)
}

func get(client *http.Client, path string) (*http.Response, map[string]any) {
	resp, err := client.Get(server.URL + path)
	Expect(err).NotTo(HaveOccurred())
	return resp, decodeBody(resp)
}

func decodeBody(resp *http.Response) map[string]any {
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return out
}

var _ = Describe("Authentication flow", func() {
	BeforeEach(func() {
		resetDatabase()
	})

	It("registers, logs in, changes the password and logs out", func() {
		client := newClient()

		resp, body := postJSON(client, "/auth/register", map[string]string{
			"username": "alice", "password": strongPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(body["username"]).To(Equal("alice"))

		// Registration does not log in.
		resp, body = get(client, "/auth/me")
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(body["error"]).To(Equal(web.ErrCodeNotAuthenticated))

		resp, body = postJSON(client, "/auth/login", map[string]string{
			"username": "alice", "password": strongPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["is_admin"]).To(BeFalse())

		resp, body = get(client, "/auth/me")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["username"]).To(Equal("alice"))

		resp, body = postJSON(client, "/auth/change-password", map[string]string{
			"current_password": "wrong", "new_password": "N3w!Password",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(body["error"]).To(Equal(web.ErrCodeInvalidCurrentPassword))

		resp, _ = postJSON(client, "/auth/change-password", map[string]string{
			"current_password": strongPassword, "new_password": "N3w!Password",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, body = postJSON(client, "/auth/logout", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["message"]).To(Equal("logged out"))

		resp, _ = get(client, "/auth/me")
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

		// Only the new password works now.
		resp, _ = postJSON(newClient(), "/auth/login", map[string]string{
			"username": "alice", "password": strongPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		resp, _ = postJSON(newClient(), "/auth/login", map[string]string{
			"username": "alice", "password": "N3w!Password",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("rejects duplicate usernames and weak passwords", func() {
		client := newClient()

		resp, _ := postJSON(client, "/auth/register", map[string]string{
			"username": "alice", "password": strongPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, body := postJSON(client, "/auth/register", map[string]string{
			"username": "alice", "password": strongPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		Expect(body["error"]).To(Equal(web.ErrCodeUsernameTaken))

		resp, body = postJSON(client, "/auth/register", map[string]string{
			"username": "bob", "password": "short",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(body["error"]).To(Equal(web.ErrCodeWeakPassword))
		Expect(body["violations"]).To(ContainElement(auth.ViolationTooShort))
	})

	It("forces the bootstrap administrator to change the password", func() {
		created, err := auth.EnsureAdmin(context.Background(), users, hasher, auth.AdminSeed{})
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())

		client := newClient()
		resp, body := postJSON(client, "/auth/login", map[string]string{
			"username": auth.DefaultAdminUsername, "password": auth.DefaultAdminPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["is_admin"]).To(BeTrue())
		Expect(body["must_change_password"]).To(BeTrue())

		resp, body = postJSON(client, "/auth/change-password", map[string]string{
			"current_password": auth.DefaultAdminPassword, "new_password": strongPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["must_change_password"]).To(BeFalse())
	})

	It("does not reveal whether a username exists", func() {
		client := newClient()
		resp, _ := postJSON(client, "/auth/register", map[string]string{
			"username": "alice", "password": strongPassword,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, wrongPassword := postJSON(client, "/auth/login", map[string]string{
			"username": "alice", "password": "Wr0ng!Pass",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

		resp, unknownUser := postJSON(client, "/auth/login", map[string]string{
			"username": "nobody", "password": "Wr0ng!Pass",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(unknownUser).To(Equal(wrongPassword))
	})
})

var _ = Describe("Public endpoints", func() {
	It("reports health", func() {
		resp, body := get(newClient(), "/health")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["status"]).To(Equal("ok"))
	})

	It("lists password requirements", func() {
		resp, body := get(newClient(), "/auth/password-requirements")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["requirements"]).To(HaveLen(len(auth.PasswordRequirements())))
	})

	It("serves a host snapshot", func() {
		resp, err := newClient().Get(server.URL + "/system-info")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = resp.Body.Close() }()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var snap sysinfo.Snapshot
		Expect(json.NewDecoder(resp.Body).Decode(&snap)).To(Succeed())
		Expect(snap.Status).To(Equal("ok"))
		Expect(snap.CPU.Cores).To(BeNumerically(">", 0))
	})
})
