// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/jcodagnone/orglisting/location"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/spf13/cobra"
)

var postcodeCmd = &cobra.Command{
	Use:   "postcode",
	Short: "Manages the postcode searches start from",
}

var postcodeRememberCmd = &cobra.Command{
	Use:   "remember <postcode>",
	Short: "Resolves a postcode and remembers it for init and name searches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := newResolver(cmd.Context(), newHTTPClient())
		if err != nil {
			return err
		}

		loc, err := resolver.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if loc == nil {
			return fmt.Errorf("postcode %q not found", args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Remembered %s (%s)\n", loc.Postcode, loc.Point)

		return nil
	},
}

var postcodeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Shows the remembered postcode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loc, err := location.NewFileMemory(cfg.StateDir).Load()
		if err != nil {
			return err
		}

		switch {
		case loc != nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", loc.Postcode, loc.Point)
		case cfg.DefaultPostcode != "":
			fmt.Fprintf(cmd.OutOrStdout(), "No postcode remembered, searches start from %s\n", cfg.DefaultPostcode)
		default:
			fmt.Fprintln(cmd.OutOrStdout(), "No postcode remembered")
		}

		return nil
	},
}

var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Lists the search radii",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		renderRanges(cmd.OutOrStdout(), spatial.Ranges, cfg.Range)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(postcodeCmd, rangesCmd)
	postcodeCmd.AddCommand(postcodeRememberCmd, postcodeShowCmd)
}
