// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider queries the service provider locations search endpoint.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/jcodagnone/orglisting/utils/httputils"
)

// DefaultEndpoint is the public service provider locations endpoint.
const DefaultEndpoint = "https://api.streetsupport.net/v2/service-provider-locations"

// ErrInvalidEndpoint is returned by NewClient for unusable endpoints.
var ErrInvalidEndpoint = errors.New("invalid search endpoint")

// Client fetches location records. It implements listing.Fetcher.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, httpClient *http.Client) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{endpoint: u, httpClient: httpClient}, nil
}

type searchResponse struct {
	Items []listing.LocationRecord `json:"items"`
}

// ByName returns the locations of providers whose name matches name.
func (c *Client) ByName(ctx context.Context, name string) ([]listing.LocationRecord, error) {
	return c.get(ctx, url.Values{"providerName": {name}})
}

// ByLocation returns up to limit locations within rangeMetres of point.
func (c *Client) ByLocation(ctx context.Context, point spatial.Point, rangeMetres, limit int) ([]listing.LocationRecord, error) {
	return c.get(ctx, url.Values{
		"pageSize":  {strconv.Itoa(limit)},
		"latitude":  {strconv.FormatFloat(point.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(point.Lng, 'f', -1, 64)},
		"range":     {strconv.Itoa(rangeMetres)},
	})
}

func (c *Client) get(ctx context.Context, params url.Values) ([]listing.LocationRecord, error) {
	u := *c.endpoint

	q := u.Query()
	for k, v := range params {
		q[k] = v
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	defer resp.Body.Close()

	r, err := httputils.AsReader(resp, "application/json")
	if err != nil {
		return nil, fmt.Errorf("search endpoint: %w", err)
	}

	var body searchResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return body.Items, nil
}
