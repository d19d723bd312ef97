// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/location"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	listingOptions

	Sort     string
	Pages    int
	Postcode string
}

var searchOpts = &searchOptions{}

type searchFunc func(ctx context.Context, ctrl *listing.Controller, resolver *location.Resolver) error

// runSearch runs search on a fresh listing, then sorts, pages and prints it.
func runSearch(cmd *cobra.Command, search searchFunc) error {
	switch listing.SortMode(searchOpts.Sort) {
	case listing.SortNone, listing.SortAlphabetical, listing.SortNearest:
	default:
		return fmt.Errorf("--sort must be %q or %q, got %q", listing.SortAlphabetical, listing.SortNearest, searchOpts.Sort)
	}

	if searchOpts.Pages < 1 {
		return fmt.Errorf("--pages must be at least 1, got %d", searchOpts.Pages)
	}

	opts, err := searchOpts.controllerOptions(cfg, cmd.Flags().Changed)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	nav := newTerminalNavigator(logger)

	ctrl, resolver, err := newController(ctx, nav, opts)
	if err != nil {
		return err
	}

	err = search(ctx, ctrl, resolver)
	if route := nav.Redirected(); route != "" {
		return fmt.Errorf("search failed: %w", err)
	}

	if v := ctrl.View(); v.PostcodeRetrievalIssue {
		renderView(cmd.OutOrStdout(), v)

		return err
	}

	if err != nil {
		return err
	}

	switch listing.SortMode(searchOpts.Sort) {
	case listing.SortAlphabetical:
		ctrl.SortAlphabetical()
	case listing.SortNearest:
		ctrl.SortByNearest()
	case listing.SortNone:
	}

	for range searchOpts.Pages - 1 {
		ctrl.LoadMore()
	}

	renderView(cmd.OutOrStdout(), ctrl.View())

	return nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Lists the organisations around the remembered postcode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSearch(cmd, func(ctx context.Context, ctrl *listing.Controller, _ *location.Resolver) error {
			return ctrl.Initialize(ctx)
		})
	},
}

var nearCmd = &cobra.Command{
	Use:   "near <postcode>",
	Short: "Lists the organisations around a postcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, func(ctx context.Context, ctrl *listing.Controller, _ *location.Resolver) error {
			return ctrl.SearchByLocation(ctx, args[0])
		})
	},
}

var nameCmd = &cobra.Command{
	Use:   "name <query>",
	Short: "Lists the organisations whose name matches a query, at any distance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, func(ctx context.Context, ctrl *listing.Controller, resolver *location.Resolver) error {
			postcode := searchOpts.Postcode
			if postcode == "" {
				loc, err := resolver.Remembered(ctx)
				if err != nil {
					return fmt.Errorf("no --postcode given: %w", err)
				}

				postcode = loc.Postcode
			}

			return ctrl.SearchByName(ctx, args[0], postcode)
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd, nearCmd, nameCmd)

	for _, c := range []*cobra.Command{initCmd, nearCmd, nameCmd} {
		c.Flags().StringVar(
			&searchOpts.Sort,
			"sort",
			"",
			"Order the results: nearest or atoz",
		)
		c.Flags().IntVar(
			&searchOpts.Pages,
			"pages",
			1,
			"Number of pages to show",
		)
		c.Flags().IntVar(
			&searchOpts.PageSize,
			"page-size",
			listing.DefaultPageSize,
			"Organisations per page. Overrides ORGLISTING_PAGE_SIZE",
		)
		c.Flags().StringVar(
			&searchOpts.Unit,
			"unit",
			"km",
			"Distance unit: km or miles. Overrides ORGLISTING_UNIT",
		)
	}

	for _, c := range []*cobra.Command{initCmd, nearCmd} {
		c.Flags().IntVar(
			&searchOpts.Range,
			"range",
			0,
			"Search radius in metres (1000, 2000, 5000, 10000 or 20000). Overrides ORGLISTING_RANGE",
		)
		c.Flags().StringVar(
			&searchOpts.Need,
			"need",
			"",
			"Only organisations helping with this need category",
		)
		c.Flags().BoolVar(
			&searchOpts.DonationsOnly,
			"donations-only",
			false,
			"Only organisations taking donations",
		)
	}

	nameCmd.Flags().StringVar(
		&searchOpts.Postcode,
		"postcode",
		"",
		"Postcode distances are measured from. Defaults to the remembered postcode",
	)
}
