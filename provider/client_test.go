// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemsBody = `{
  "items": [
    {
      "serviceProviderKey": "coffee4craig",
      "serviceProviderName": "Coffee 4 Craig",
      "serviceProviderSynopsis": "Drop in &amp; support",
      "donationUrl": "https://example.org/donate",
      "donationDescription": "Money helps",
      "itemDonationDescription": "Sleeping bags",
      "needCategories": ["food", "clothes"],
      "latitude": 53.4808,
      "longitude": -2.2426
    }
  ],
  "links": {"next": null}
}`

func newSearchServer(t *testing.T, status int, body string) (*httptest.Server, *[]url.Values) {
	t.Helper()

	var queries []url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &queries
}

func TestClientByName(t *testing.T) {
	srv, queries := newSearchServer(t, http.StatusOK, itemsBody)

	c, err := NewClient(srv.URL+"/v2/service-provider-locations", srv.Client())
	require.NoError(t, err)

	items, err := c.ByName(context.Background(), "coffee & craig")
	require.NoError(t, err)

	expected := []listing.LocationRecord{{
		ServiceProviderKey:      "coffee4craig",
		ServiceProviderName:     "Coffee 4 Craig",
		ServiceProviderSynopsis: "Drop in &amp; support",
		DonationURL:             "https://example.org/donate",
		DonationDescription:     "Money helps",
		ItemDonationDescription: "Sleeping bags",
		NeedCategories:          []string{"food", "clothes"},
		Latitude:                53.4808,
		Longitude:               -2.2426,
	}}
	if diff := cmp.Diff(expected, items); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}

	require.Len(t, *queries, 1)
	assert.Equal(t, url.Values{"providerName": {"coffee & craig"}}, (*queries)[0])
}

func TestClientByLocation(t *testing.T) {
	srv, queries := newSearchServer(t, http.StatusOK, `{"items":[]}`)

	c, err := NewClient(srv.URL+"?client=widget", srv.Client())
	require.NoError(t, err)

	items, err := c.ByLocation(context.Background(), spatial.Point{Lat: 53.4808, Lng: -2.2426}, 10000, listing.FetchLimit)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.Len(t, *queries, 1)
	assert.Equal(t, url.Values{
		"client":    {"widget"},
		"pageSize":  {"1000"},
		"latitude":  {"53.4808"},
		"longitude": {"-2.2426"},
		"range":     {"10000"},
	}, (*queries)[0])
}

func TestClientFailures(t *testing.T) {
	srv, _ := newSearchServer(t, http.StatusInternalServerError, `{"error":"boom"}`)

	c, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = c.ByName(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	bad, _ := newSearchServer(t, http.StatusOK, `{"items": [`)

	c, err = NewClient(bad.URL, bad.Client())
	require.NoError(t, err)

	_, err = c.ByName(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestNewClientInvalidEndpoint(t *testing.T) {
	_, err := NewClient("ftp://example.org/search", nil)
	require.ErrorIs(t, err, ErrInvalidEndpoint)

	_, err = NewClient("http://[::1", nil)
	require.ErrorIs(t, err, ErrInvalidEndpoint)

	c, err := NewClient("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.endpoint.String())
}
