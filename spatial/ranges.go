// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"slices"
)

// DefaultRange is the search radius, in metres, used until the user picks another.
const DefaultRange = 10000

// Range is a selectable search radius.
type Range struct {
	Metres int    `json:"value"`
	Label  string `json:"text"`
}

// Ranges lists the radii offered to the user, nearest first.
var Ranges = []Range{
	{Metres: 1000, Label: "1 km"},
	{Metres: 2000, Label: "2 km"},
	{Metres: 5000, Label: "5 km"},
	{Metres: 10000, Label: "10 km"},
	{Metres: 20000, Label: "20 km"},
}

// FindRange returns the offered range with the given radius.
func FindRange(metres int) (Range, error) {
	i := slices.IndexFunc(Ranges, func(r Range) bool { return r.Metres == metres })
	if i < 0 {
		return Range{}, fmt.Errorf("range %d is not one of the offered ranges", metres)
	}

	return Ranges[i], nil
}
