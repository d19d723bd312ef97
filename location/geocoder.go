// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package location resolves postcodes to coordinates and remembers the last
// postcode the user searched from.
package location

import (
	"context"

	"github.com/jcodagnone/orglisting/spatial"
)

// Location is a resolved postcode.
type Location struct {
	Postcode string `json:"postcode"`
	spatial.Point
}

// GeocodingResult represents a geocoding result from any provider.
type GeocodingResult struct {
	Latitude    float64
	Longitude   float64
	Provider    string
	DisplayName string
}

// Geocoder interface for different geocoding providers. Unknown postcodes
// are reported with a ResolveError of type ErrorTypeNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, postcode string) (*GeocodingResult, error)
}
