// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package main

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sysboard/sysboard/internal/auth"
)

func newUsersCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUsersAddCmd(deps))
	return cmd
}

func newUsersAddCmd(deps *Deps) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Register a user account",
		Long: `Register a user account from the command line. The password is prompted
for twice, or read from the first line of stdin with --password-stdin. The
password must satisfy the same policy as web registration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username := args[0]

			var password string
			var err error
			if passwordStdin {
				password, err = readPasswordLine(cmd.InOrStdin())
			} else {
				password, err = promptNewPassword(deps)
			}
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := setupLogger(cmd, cfg)
			if err != nil {
				return err
			}

			backend, err := deps.Backend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			svc, err := auth.NewAuthService(backend.Users, newHasher(cfg), auth.WithLogger(logger))
			if err != nil {
				return err //nolint:wrapcheck // already coded
			}

			user, err := svc.Register(ctx, auth.Credentials{Username: username, Password: password})
			if err != nil {
				if auth.HasCode(err, auth.CodeWeakPassword) {
					cmd.PrintErrln("Password does not meet requirements:")
					for _, v := range auth.Violations(err) {
						cmd.PrintErrf("  - %s\n", v)
					}
				}
				return err //nolint:wrapcheck // already coded
			}

			cmd.Printf("Created user %q (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func promptNewPassword(deps *Deps) (string, error) {
	password, err := deps.ReadPassword("Password: ")
	if err != nil {
		return "", err
	}
	confirm, err := deps.ReadPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", oops.Code("PASSWORD_MISMATCH").Errorf("passwords do not match")
	}
	return password, nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", oops.Code("PASSWORD_READ_FAILED").With("operation", "read stdin").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
