// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/sysboard/sysboard/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration that results from the config file and flags.
The bootstrap password is masked and the database URL is never shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return cfg.WriteYAML(cmd.OutOrStdout()) //nolint:wrapcheck // already coded
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err //nolint:wrapcheck // already coded
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(append(schema, '\n')); err != nil {
				return err //nolint:wrapcheck // stdout write
			}
			return nil
		},
	})

	return cmd
}
