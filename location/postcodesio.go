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
	"strings"

	"github.com/jcodagnone/orglisting/utils/httputils"
)

// DefaultPostcodesURL is the public postcodes.io endpoint.
const DefaultPostcodesURL = "https://api.postcodes.io"

// PostcodesIOGeocoder resolves UK postcodes through postcodes.io.
type PostcodesIOGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewPostcodesIOGeocoder creates a geocoder against baseURL.
func NewPostcodesIOGeocoder(baseURL string, httpClient *http.Client) *PostcodesIOGeocoder {
	if baseURL == "" {
		baseURL = DefaultPostcodesURL
	}

	return &PostcodesIOGeocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type postcodesIOResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Result *struct {
		Postcode      string   `json:"postcode"`
		Latitude      *float64 `json:"latitude"`
		Longitude     *float64 `json:"longitude"`
		AdminDistrict string   `json:"admin_district"`
	} `json:"result"`
}

// Geocode implements Geocoder.
func (g *PostcodesIOGeocoder) Geocode(ctx context.Context, postcode string) (*GeocodingResult, error) {
	reqURL := g.baseURL + "/postcodes/" + url.PathEscape(postcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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

	var pcResp postcodesIOResponse
	if err := json.NewDecoder(r).Decode(&pcResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// terminated postcodes are returned without coordinates
	if pcResp.Result == nil || pcResp.Result.Latitude == nil || pcResp.Result.Longitude == nil {
		return nil, &ResolveError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("no coordinates for postcode: %s", postcode),
		}
	}

	return &GeocodingResult{
		Latitude:    *pcResp.Result.Latitude,
		Longitude:   *pcResp.Result.Longitude,
		Provider:    "postcodes_io",
		DisplayName: strings.TrimSpace(pcResp.Result.Postcode + ", " + pcResp.Result.AdminDistrict),
	}, nil
}
