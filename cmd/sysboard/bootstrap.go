// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package main

import (
	"github.com/spf13/cobra"
)

func newBootstrapCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the initial administrator",
		Long: `Create the initial administrator account when the user store is empty.
The account must change its password on first login. A store that already
holds users is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

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

			count, err := backend.Users.Count(ctx)
			if err != nil {
				return err //nolint:wrapcheck // repository errors are coded
			}
			if count > 0 {
				cmd.Printf("User store already has %d user(s); nothing to do\n", count)
				return nil
			}

			created, err := seedAdmin(ctx, cmd, backend.Users, newHasher(cfg), cfg, logger)
			if err != nil {
				return err
			}
			if !created {
				cmd.Println("User store was seeded concurrently; nothing to do")
				return nil
			}
			cmd.Printf("Administrator %q is ready\n", cfg.Bootstrap.Username)
			return nil
		},
	}
}
