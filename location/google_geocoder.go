// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jcodagnone/orglisting/utils/httputils"
)

// DefaultGoogleMapsURL is the Google Maps Geocoding API endpoint.
const DefaultGoogleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	region     string
	endpoint   string
	httpClient *http.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder biased to region
// (a ccTLD such as "uk").
func NewGoogleMapsGeocoder(apiKey, region string, httpClient *http.Client) *GoogleMapsGeocoder {
	return &GoogleMapsGeocoder{
		apiKey:     apiKey,
		region:     region,
		endpoint:   DefaultGoogleMapsURL,
		httpClient: httpClient,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		FormattedAddress string   `json:"formatted_address"`
		Types            []string `json:"types"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, postcode string) (*GeocodingResult, error) {
	params := url.Values{}
	// components restricts matches to postal codes instead of free text addresses
	params.Set("components", "postal_code:"+postcode)
	params.Set("key", g.apiKey)

	if g.region != "" {
		params.Set("region", g.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &ResolveError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ResolveError{Type: ErrorTypeTimeout, Message: "geocoding request timed out", Err: err}
		}

		return nil, &ResolveError{Type: ErrorTypeNetworkError, Message: "geocoding request failed", Err: err}
	}

	defer resp.Body.Close()

	r, err := httputils.AsReader(resp, "application/json")
	if err != nil {
		var statusErr *httputils.StatusError
		if errors.As(err, &statusErr) {
			return nil, ClassifyHTTPError(statusErr.StatusCode)
		}

		return nil, fmt.Errorf("reading response: %w", err)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(r).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, &ResolveError{Type: ErrorTypeNotFound, Message: "postcode not found: " + postcode}
	case "OVER_QUERY_LIMIT":
		return nil, &ResolveError{Type: ErrorTypeQuotaExceeded, Message: "google maps status: " + gmResp.Status}
	case "REQUEST_DENIED":
		return nil, &ResolveError{Type: ErrorTypeQuotaExceeded, Message: "google maps status: " + gmResp.Status + " " + gmResp.ErrorMessage}
	case "INVALID_REQUEST":
		return nil, &ResolveError{Type: ErrorTypeInvalidRequest, Message: "google maps status: " + gmResp.Status}
	default:
		return nil, &ResolveError{Type: ErrorTypeUnknown, Message: "google maps status: " + gmResp.Status}
	}

	if len(gmResp.Results) == 0 {
		return nil, &ResolveError{Type: ErrorTypeNotFound, Message: "no results found for postcode: " + postcode}
	}

	result := gmResp.Results[0]

	return &GeocodingResult{
		Latitude:    result.Geometry.Location.Lat,
		Longitude:   result.Geometry.Location.Lng,
		Provider:    "google_maps",
		DisplayName: result.FormattedAddress,
	}, nil
}
