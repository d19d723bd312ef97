// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"fmt"

	"github.com/jcodagnone/orglisting/spatial"
	"github.com/jcodagnone/orglisting/utils/textutils"
	"github.com/sirupsen/logrus"
)

// Resolver turns postcodes into locations and remembers the last one.
type Resolver struct {
	geocoder        Geocoder
	memory          Memory
	defaultPostcode string
	log             logrus.FieldLogger
}

// NewResolver creates a resolver. defaultPostcode seeds Remembered when the
// memory is empty; it may be blank.
func NewResolver(geocoder Geocoder, memory Memory, defaultPostcode string, log logrus.FieldLogger) *Resolver {
	if memory == nil {
		memory = &InMemory{}
	}

	return &Resolver{
		geocoder:        geocoder,
		memory:          memory,
		defaultPostcode: defaultPostcode,
		log:             log,
	}
}

// Resolve geocodes postcode. An unknown postcode yields a nil location and
// no error. Resolved postcodes are remembered.
func (r *Resolver) Resolve(ctx context.Context, postcode string) (*Location, error) {
	postcode = textutils.NormalizePostcode(postcode)
	if postcode == "" {
		return nil, nil
	}

	result, err := r.geocoder.Geocode(ctx, postcode)
	if IsNotFoundError(err) {
		r.log.WithField("postcode", postcode).Info("Postcode not found")

		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", postcode, err)
	}

	loc := Location{
		Postcode: postcode,
		Point:    spatial.Point{Lat: result.Latitude, Lng: result.Longitude},
	}

	if !loc.Valid() {
		return nil, &ResolveError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("%s resolved to invalid coordinates %s", postcode, loc.Point),
		}
	}

	if err := r.memory.Save(loc); err != nil {
		// the location is still usable
		r.log.WithError(err).Warn("Failed to remember postcode")
	}

	r.log.WithFields(logrus.Fields{
		"postcode": postcode,
		"provider": result.Provider,
		"place":    result.DisplayName,
	}).Debug("Resolved postcode")

	return &loc, nil
}

// Remembered returns the last resolved postcode, falling back to the
// default postcode.
func (r *Resolver) Remembered(ctx context.Context) (*Location, error) {
	loc, err := r.memory.Load()
	if err != nil {
		return nil, fmt.Errorf("loading remembered postcode: %w", err)
	}

	if loc != nil {
		return loc, nil
	}

	if r.defaultPostcode == "" {
		return nil, ErrNothingRemembered
	}

	loc, err = r.Resolve(ctx, r.defaultPostcode)
	if err != nil {
		return nil, err
	}

	if loc == nil {
		return nil, fmt.Errorf("default postcode %s: %w", r.defaultPostcode, ErrNothingRemembered)
	}

	return loc, nil
}
