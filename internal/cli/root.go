// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cli implements the prepify command line: the HTTP server and the
// operational commands that share its configuration.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"prepify/internal/config"
	"prepify/internal/logger"
)

var (
	envFiles  []string
	cfg       *config.Config
	logCloser io.Closer
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "prepify",
	Short: "Practice paper site with a category tree",
	Long: `Prepify serves practice papers organised in a category tree,
grades online attempts and offers AI study help.

Configuration comes from the environment and optional dotenv files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadEnvFile(envFiles...); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logCloser, err = logger.Setup(loggerConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "prepify %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(versionCmd)
}

// loggerConfig maps the LOG_* settings onto the logger, keeping the
// rotation defaults.
func loggerConfig(c *config.Config) logger.Config {
	lc := logger.DefaultConfig()
	if c.LogLevel != "" {
		lc.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		lc.Format = c.LogFormat
	}
	if c.LogOutput != "" {
		lc.Output = c.LogOutput
	}
	if c.LogFile != "" {
		lc.FilePath = c.LogFile
	}
	return lc
}

func SetVersion(v string) {
	version = v
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	return err
}

func Root() *cobra.Command {
	return rootCmd
}
