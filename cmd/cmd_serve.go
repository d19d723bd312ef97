// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	listingOptions

	Addr       string
	Initialize bool
}

var serveOpts = &serveOptions{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the listing to the find-help widget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := serveOpts.controllerOptions(cfg, cmd.Flags().Changed)
		if err != nil {
			return err
		}

		addr := cfg.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveOpts.Addr
		}

		ctx := cmd.Context()
		log := logger.WithField("component", "server")
		nav := server.NewNavigator(log)

		ctrl, _, err := newController(ctx, nav, opts)
		if err != nil {
			return err
		}

		srv := server.New(ctrl, nav, log)
		defer srv.Close()

		if serveOpts.Initialize {
			go func() {
				if err := ctrl.Initialize(ctx); err != nil {
					log.WithError(err).Warn("Initial listing failed")
				}
			}()
		}

		gin.SetMode(gin.ReleaseMode)

		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(
		&serveOpts.Addr,
		"addr",
		"localhost:8080",
		"Address to listen on. Overrides ORGLISTING_ADDR",
	)
	serveCmd.Flags().BoolVar(
		&serveOpts.Initialize,
		"init",
		false,
		"Load the organisations around the remembered postcode on start",
	)
	serveCmd.Flags().IntVar(
		&serveOpts.PageSize,
		"page-size",
		listing.DefaultPageSize,
		"Organisations per page. Overrides ORGLISTING_PAGE_SIZE",
	)
	serveCmd.Flags().IntVar(
		&serveOpts.Range,
		"range",
		0,
		"Initial search radius in metres. Overrides ORGLISTING_RANGE",
	)
	serveCmd.Flags().StringVar(
		&serveOpts.Unit,
		"unit",
		"km",
		"Distance unit: km or miles. Overrides ORGLISTING_UNIT",
	)
	serveCmd.Flags().StringVar(
		&serveOpts.Need,
		"need",
		"",
		"Only list organisations helping with this need category",
	)
	serveCmd.Flags().BoolVar(
		&serveOpts.DonationsOnly,
		"donations-only",
		false,
		"Only list organisations taking donations",
	)
}
