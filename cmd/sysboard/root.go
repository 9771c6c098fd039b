// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sysboard/sysboard/internal/config"
	"github.com/sysboard/sysboard/internal/logging"
	"github.com/sysboard/sysboard/internal/xdg"
)

const serviceName = "sysboard"

// NewRootCmd creates the root command for the sysboard CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "sysboard",
		Short: "sysboard - system dashboard backend",
		Long: `sysboard serves a small system dashboard API: user registration,
session-based login, password management and host telemetry.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newBootstrapCmd(deps))
	cmd.AddCommand(newUsersCmd(deps))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig reads the effective configuration for cmd. Without --config,
// the XDG config file is used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	fs := cmd.Flags()
	if f := fs.Lookup(config.ConfigFlag); f != nil && !f.Changed {
		if path, ok := xdg.FindConfigFile(); ok {
			if err := fs.Set(config.ConfigFlag, path); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
			}
		}
	}
	return config.Load(fs) //nolint:wrapcheck // already coded
}

// setupLogger installs the configured logger as the slog default, writing
// to the command's error stream.
func setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.SetDefault(logging.Options{ //nolint:wrapcheck // already coded
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
}
