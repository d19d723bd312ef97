// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"cmp"
	"net/url"
	"slices"
	"strings"

	"github.com/jcodagnone/orglisting/spatial"
	"github.com/jcodagnone/orglisting/utils/htmlutils"
)

const organisationPath = "/find-help/organisation"

// OrganisationHref is the page of the organisation with the given provider key.
func OrganisationHref(key string) string {
	return organisationPath + "?" + url.Values{"organisation": {key}}.Encode()
}

// GroupByOrg folds records into one group per provider key, in order of
// first appearance. Each record gets its distance to ref; each group gets
// the distance of its nearest location and keeps its locations nearest
// first.
func GroupByOrg(records []LocationRecord, ref spatial.Point, calc DistanceCalculator, unit spatial.Unit) []*OrganisationGroup {
	groups := make([]*OrganisationGroup, 0)

	for i := range records {
		rec := &records[i]

		d := calc.Distance(rec.Point(), ref, unit)
		rec.DistanceInMetres = d.InMetres
		rec.DistanceDescription = d.Description

		// result sets are small, a linear scan keeps first-seen order for free
		idx := slices.IndexFunc(groups, func(g *OrganisationGroup) bool {
			return g.Key == rec.ServiceProviderKey
		})
		if idx >= 0 {
			groups[idx].Locations = append(groups[idx].Locations, rec)

			continue
		}

		groups = append(groups, &OrganisationGroup{
			Key:                     rec.ServiceProviderKey,
			Name:                    htmlutils.Decode(rec.ServiceProviderName),
			Synopsis:                htmlutils.Decode(rec.ServiceProviderSynopsis),
			Href:                    OrganisationHref(rec.ServiceProviderKey),
			DonationURL:             rec.DonationURL,
			DonationDescription:     rec.DonationDescription,
			ItemDonationDescription: rec.ItemDonationDescription,
			NeedCategories:          rec.NeedCategories,
			Locations:               []*LocationRecord{rec},
		})
	}

	for _, g := range groups {
		slices.SortStableFunc(g.Locations, func(a, b *LocationRecord) int {
			return cmp.Compare(a.DistanceInMetres, b.DistanceInMetres)
		})

		nearest := g.Locations[0]
		g.DistanceInMetres = nearest.DistanceInMetres
		g.DistanceDescription = nearest.DistanceDescription
	}

	return groups
}

func byName(a, b *OrganisationGroup) int {
	return strings.Compare(a.Name, b.Name)
}

func byDistance(a, b *OrganisationGroup) int {
	return cmp.Compare(a.DistanceInMetres, b.DistanceInMetres)
}

// sortGroups orders groups in place; SortNone leaves them untouched.
func sortGroups(groups []*OrganisationGroup, mode SortMode) {
	switch mode {
	case SortAlphabetical:
		slices.SortStableFunc(groups, byName)
	case SortNearest:
		slices.SortStableFunc(groups, byDistance)
	case SortNone:
	}
}

// window is the prefix of groups shown for the given page cursor.
func window(groups []*OrganisationGroup, cursor int) []*OrganisationGroup {
	return groups[:max(0, min(cursor, len(groups)))]
}
