// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcodagnone/orglisting/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const timestampFormat = "2006-01-02 15:04:05"

type rootOptions struct {
	LogLevel            string
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
}

var (
	rootOpts = &rootOptions{}
	cfg      *config.Config
	logger   = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	})

	return l
}

var rootCmd = &cobra.Command{
	Use:   "orglisting",
	Short: "find organisations that help people experiencing homelessness",
	Long: `
orglisting lists the organisations around a UK postcode, or those matching a
name, as the find-help widget does: grouped by organisation, nearest first and
a page at a time.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load(Version, config.DefaultEnvFiles...)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		level := cfg.LogrusLevel()
		if rootOpts.LogLevel != "" {
			if level, err = logrus.ParseLevel(rootOpts.LogLevel); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
		}

		// tracing logs at debug level
		if rootOpts.EnableHTTPTrace || rootOpts.EnableHTTPBodyTrace {
			level = max(level, logrus.DebugLevel)
		}

		logger.SetLevel(level)

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOpts.LogLevel,
		"log-level",
		"",
		"Log level (trace, debug, info, warn, error). Overrides LOG_LEVEL",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOpts.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOpts.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
}
