// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package listing holds the organisation listing state: it groups location
// search results by organisation, sorts and paginates them, and notifies
// subscribers after every change.
package listing

import (
	"context"

	"github.com/jcodagnone/orglisting/location"
	"github.com/jcodagnone/orglisting/spatial"
)

// LocationRecord is one search result as returned by the search endpoint.
// Distance fields are filled in during grouping.
type LocationRecord struct {
	ServiceProviderKey      string   `json:"serviceProviderKey"`
	ServiceProviderName     string   `json:"serviceProviderName"`
	ServiceProviderSynopsis string   `json:"serviceProviderSynopsis"`
	DonationURL             string   `json:"donationUrl"`
	DonationDescription     string   `json:"donationDescription"`
	ItemDonationDescription string   `json:"itemDonationDescription"`
	NeedCategories          []string `json:"needCategories"`
	Latitude                float64  `json:"latitude"`
	Longitude               float64  `json:"longitude"`

	DistanceInMetres    float64 `json:"distanceInMetres"`
	DistanceDescription string  `json:"distanceDescription"`
}

// Point returns the record coordinates.
func (r *LocationRecord) Point() spatial.Point {
	return spatial.Point{Lat: r.Latitude, Lng: r.Longitude}
}

// OrganisationGroup folds the locations of one service provider.
type OrganisationGroup struct {
	Key                     string            `json:"key"`
	Name                    string            `json:"name"`
	Synopsis                string            `json:"synopsis"`
	Href                    string            `json:"href"`
	DonationURL             string            `json:"donationUrl"`
	DonationDescription     string            `json:"donationDescription"`
	ItemDonationDescription string            `json:"itemDonationDescription"`
	NeedCategories          []string          `json:"needCategories"`
	Locations               []*LocationRecord `json:"locations"`

	// distance of the nearest location
	DistanceInMetres    float64 `json:"distanceInMetres"`
	DistanceDescription string  `json:"distanceDescription"`
}

// SortMode is the ordering applied to the result set.
type SortMode string

// Sort modes.
const (
	SortNone         SortMode = ""
	SortAlphabetical SortMode = "atoz"
	SortNearest      SortMode = "nearest"
)

// Filter selects the organisations kept after a location search.
type Filter func(*OrganisationGroup) bool

// ErrorRoute is where the navigator is sent on unrecoverable failures.
const ErrorRoute = "/500"

// DefaultPageSize is the number of organisations added per page.
const DefaultPageSize = 8

// FetchLimit caps the number of records requested by a location search.
const FetchLimit = 1000

// Fetcher queries the search endpoint.
type Fetcher interface {
	ByName(ctx context.Context, name string) ([]LocationRecord, error)
	ByLocation(ctx context.Context, point spatial.Point, rangeMetres, limit int) ([]LocationRecord, error)
}

// Resolver resolves postcodes. Resolve returns a nil location for unknown
// postcodes.
type Resolver interface {
	Resolve(ctx context.Context, postcode string) (*location.Location, error)
	Remembered(ctx context.Context) (*location.Location, error)
}

// DistanceCalculator measures the distance between two points.
type DistanceCalculator interface {
	Distance(a, b spatial.Point, unit spatial.Unit) spatial.Distance
}

// Navigator drives the page around the listing: the busy indicator and
// full page redirects.
type Navigator interface {
	Loading()
	Loaded()
	Redirect(route string)
}
