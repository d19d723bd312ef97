// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package listing

// View is a read-only snapshot of the listing, ready to render.
type View struct {
	Postcode               string              `json:"postcode"`
	Range                  int                 `json:"range"`
	SearchQuery            string              `json:"searchQuery"`
	Organisations          []OrganisationGroup `json:"orgsToDisplay"`
	Total                  int                 `json:"total"`
	CurrentSort            SortMode            `json:"currentSort"`
	PageIndex              int                 `json:"pageIndex"`
	PageSize               int                 `json:"pageSize"`
	PostcodeRetrievalIssue bool                `json:"postcodeRetrievalIssue"`

	HasOrgs         bool `json:"hasOrgs"`
	HasPrevPages    bool `json:"hasPrevPages"`
	HasMorePages    bool `json:"hasMorePages"`
	IsSortedAToZ    bool `json:"isSortedAToZ"`
	IsSortedNearest bool `json:"isSortedNearest"`
}

// snapshot builds a View. Callers hold mu.
func (c *Controller) snapshot() View {
	s := &c.state

	return View{
		Postcode:               s.postcode,
		Range:                  s.rangeMetres,
		SearchQuery:            s.searchQuery,
		Organisations:          copyGroups(s.window),
		Total:                  len(s.organisations),
		CurrentSort:            s.sort,
		PageIndex:              s.pageIndex,
		PageSize:               c.pageSize,
		PostcodeRetrievalIssue: s.postcodeRetrievalIssue,
		HasOrgs:                len(s.organisations) > 0,
		HasPrevPages:           s.pageIndex > 0,
		HasMorePages:           s.pageIndex < len(s.organisations),
		IsSortedAToZ:           s.sort == SortAlphabetical,
		IsSortedNearest:        s.sort == SortNearest,
	}
}

// copyGroups detaches groups from the controller state. Locations are
// shared: records are not modified once grouped.
func copyGroups(groups []*OrganisationGroup) []OrganisationGroup {
	out := make([]OrganisationGroup, len(groups))
	for i, g := range groups {
		out[i] = *g
	}

	return out
}
