// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"math"
)

// Unit selects how distances are described to users.
type Unit string

// Supported units.
const (
	Kilometres Unit = "km"
	Miles      Unit = "miles"
)

const metresPerMile = 1609.344

// ZeroDistance is the description used when both points coincide.
const ZeroDistance = "right here"

// ParseUnit validates a unit name.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Kilometres, Miles:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("unknown distance unit: %q", s)
	}
}

// Distance is the separation between two points.
type Distance struct {
	InMetres    float64 `json:"distanceInMetres"`
	Description string  `json:"description"`
}

// Calculator computes distances and their human readable description.
type Calculator struct{}

// Distance returns the distance between a and b, described in unit.
func (Calculator) Distance(a, b Point, unit Unit) Distance {
	metres := a.HaversineDistance(b)

	return Distance{
		InMetres:    metres,
		Description: Describe(metres, unit),
	}
}

// Describe renders metres as "<n> <unit> away", one decimal place.
func Describe(metres float64, unit Unit) string {
	if math.Round(metres) == 0 {
		return ZeroDistance
	}

	value, suffix := metres/1000, "km"
	if unit == Miles {
		value, suffix = metres/metresPerMile, "miles"
	}

	if value < 0.05 {
		return fmt.Sprintf("less than 0.1 %s away", suffix)
	}

	return fmt.Sprintf("%.1f %s away", value, suffix)
}
