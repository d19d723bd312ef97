// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/jcodagnone/orglisting/config"
	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/location"
	"github.com/jcodagnone/orglisting/provider"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/jcodagnone/orglisting/utils/httputils"
	"github.com/sirupsen/logrus"
)

// listingOptions are the listing flags shared by the search commands.
type listingOptions struct {
	Range         int
	PageSize      int
	Unit          string
	Need          string
	DonationsOnly bool
}

// controllerOptions merges the flags the user set over the configuration.
func (o *listingOptions) controllerOptions(c *config.Config, changed func(string) bool) (listing.Options, error) {
	opts := listing.Options{
		PageSize: c.PageSize,
		Range:    c.Range,
		Filter:   organisationFilter(o.Need, o.DonationsOnly),
	}

	if changed("page-size") {
		if o.PageSize <= 0 {
			return opts, fmt.Errorf("--page-size must be positive, got %d", o.PageSize)
		}

		opts.PageSize = o.PageSize
	}

	if changed("range") {
		if _, err := spatial.FindRange(o.Range); err != nil {
			return opts, fmt.Errorf("--range: %w", err)
		}

		opts.Range = o.Range
	}

	unit := c.Unit
	if changed("unit") {
		unit = o.Unit
	}

	var err error
	if opts.Unit, err = spatial.ParseUnit(unit); err != nil {
		return opts, err
	}

	return opts, nil
}

// organisationFilter keeps organisations helping with need, and those
// taking donations when donationsOnly is set. It is nil when nothing is
// filtered.
func organisationFilter(need string, donationsOnly bool) listing.Filter {
	need = strings.TrimSpace(need)
	if need == "" && !donationsOnly {
		return nil
	}

	return func(g *listing.OrganisationGroup) bool {
		if need != "" && !slices.ContainsFunc(g.NeedCategories, func(c string) bool {
			return strings.EqualFold(c, need)
		}) {
			return false
		}

		if donationsOnly && g.DonationURL == "" && g.DonationDescription == "" && g.ItemDonationDescription == "" {
			return false
		}

		return true
	}
}

func newHTTPClient() *http.Client {
	var tracer logrus.FieldLogger
	if rootOpts.EnableHTTPTrace || rootOpts.EnableHTTPBodyTrace {
		tracer = logger.WithField("component", "http")
	}

	return httputils.NewClient(cfg.HTTPTimeout, cfg.UserAgent, tracer, rootOpts.EnableHTTPBodyTrace)
}

func newGeocoder(ctx context.Context, client *http.Client) (location.Geocoder, error) {
	switch cfg.Geocoder {
	case config.GeocoderGoogle:
		apiKey := cfg.GoogleMapsAPIKey
		if apiKey == "" {
			logger.Info("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error
			if apiKey, err = location.APIKeyFromADC(ctx, cfg.GoogleProject); err != nil {
				return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is not set and ADC failed: %w", err)
			}

			logger.Info("Retrieved Google Maps API key via ADC")
		}

		return location.NewGoogleMapsGeocoder(apiKey, cfg.GeocodingRegion, client), nil
	default:
		return location.NewPostcodesIOGeocoder(cfg.PostcodesURL, client), nil
	}
}

func newResolver(ctx context.Context, client *http.Client) (*location.Resolver, error) {
	geocoder, err := newGeocoder(ctx, client)
	if err != nil {
		return nil, err
	}

	memory := location.NewFileMemory(cfg.StateDir)

	return location.NewResolver(geocoder, memory, cfg.DefaultPostcode, logger.WithField("component", "location")), nil
}

// newController wires the listing to the search endpoint and the geocoder.
func newController(ctx context.Context, nav listing.Navigator, opts listing.Options) (*listing.Controller, *location.Resolver, error) {
	client := newHTTPClient()

	fetcher, err := provider.NewClient(cfg.APIBase, client)
	if err != nil {
		return nil, nil, err
	}

	resolver, err := newResolver(ctx, client)
	if err != nil {
		return nil, nil, err
	}

	ctrl := listing.New(listing.Collaborators{
		Fetcher:   fetcher,
		Resolver:  resolver,
		Navigator: nav,
		Logger:    logger.WithField("component", "listing"),
	}, opts)

	return ctrl, resolver, nil
}
