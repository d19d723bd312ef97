// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Caf…", truncate("Café Society", 4))
	assert.Equal(t, 4, utf8.RuneCountInString(truncate("Café Society", 4)))
}

func TestRenderView(t *testing.T) {
	v := listing.View{
		Postcode: "M1 1AE",
		Range:    10000,
		Organisations: []listing.OrganisationGroup{
			{Name: "Booth Centre", DistanceDescription: "0.4 km away"},
			{Name: "A very long organisation name that does not fit the column", DistanceDescription: "1.2 km away"},
		},
		Total:        12,
		CurrentSort:  listing.SortNearest,
		PageIndex:    8,
		PageSize:     8,
		HasOrgs:      true,
		HasMorePages: true,
	}

	var buf bytes.Buffer
	renderView(&buf, v)
	out := buf.String()

	assert.Contains(t, out, "Organisations within 10 km of M1 1AE")
	assert.Contains(t, out, "│   1 │ Booth Centre")
	assert.Contains(t, out, "A very long organisation name that does…")
	assert.Contains(t, out, "Showing 2 of 12 organisations, nearest first.")
	assert.Contains(t, out, "Use --pages 2 to see more.")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 6)

	// every table row has the same width
	width := utf8.RuneCountInString(lines[1])
	for _, line := range lines[1:6] {
		assert.Equal(t, width, utf8.RuneCountInString(line), line)
	}
}

func TestRenderViewLargeTotals(t *testing.T) {
	var buf bytes.Buffer
	renderView(&buf, listing.View{
		Postcode:      "M1 1AE",
		Range:         20000,
		Organisations: []listing.OrganisationGroup{{Name: "Booth Centre"}},
		Total:         1234,
		CurrentSort:   listing.SortAlphabetical,
		HasOrgs:       true,
	})

	assert.Contains(t, buf.String(), "Showing 1 of 1,234 organisations, A to Z.")
}

func TestRenderViewEmptyAndUnknown(t *testing.T) {
	var buf bytes.Buffer
	renderView(&buf, listing.View{Postcode: "M1 1AE", Range: 2000, SearchQuery: "soup"})
	assert.Contains(t, buf.String(), `Organisations matching "soup" (distances from M1 1AE)`)
	assert.Contains(t, buf.String(), "No organisations found.")

	buf.Reset()
	renderView(&buf, listing.View{Postcode: "ZZ9 9ZZ", PostcodeRetrievalIssue: true, HasOrgs: true})
	assert.Equal(t, "We could not find the postcode \"ZZ9 9ZZ\". Please check it and try again.\n", buf.String())
}

func TestRenderRanges(t *testing.T) {
	var buf bytes.Buffer
	renderRanges(&buf, spatial.Ranges, 5000)

	assert.Contains(t, buf.String(), "│     5000 │ 5 km       │ * │")
	assert.Contains(t, buf.String(), "│    10000 │ 10 km      │   │")
}

func TestSortLabel(t *testing.T) {
	assert.Equal(t, "A to Z", sortLabel(listing.SortAlphabetical))
	assert.Equal(t, "nearest first", sortLabel(listing.SortNearest))
	assert.Equal(t, "unsorted", sortLabel(listing.SortNone))
	assert.Equal(t, "3000 m", rangeLabel(3000))
}
