// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/jcodagnone/orglisting/utils/textutils"
)

const (
	nameWidth     = 40
	distanceWidth = 22
)

// truncate cuts s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}

	return string(r[:width-1]) + "…"
}

func sortLabel(mode listing.SortMode) string {
	switch mode {
	case listing.SortAlphabetical:
		return "A to Z"
	case listing.SortNearest:
		return "nearest first"
	default:
		return "unsorted"
	}
}

func rangeLabel(metres int) string {
	if r, err := spatial.FindRange(metres); err == nil {
		return r.Label
	}

	return fmt.Sprintf("%d m", metres)
}

// renderView prints the organisations shown by v as a table.
func renderView(w io.Writer, v listing.View) {
	switch {
	case v.PostcodeRetrievalIssue:
		fmt.Fprintf(w, "We could not find the postcode %q. Please check it and try again.\n", v.Postcode)

		return
	case v.SearchQuery != "":
		fmt.Fprintf(w, "Organisations matching %q (distances from %s)\n", v.SearchQuery, v.Postcode)
	default:
		fmt.Fprintf(w, "Organisations within %s of %s\n", rangeLabel(v.Range), v.Postcode)
	}

	if !v.HasOrgs {
		fmt.Fprintln(w, "No organisations found.")

		return
	}

	a, b, c := strings.Repeat("─", 3), strings.Repeat("─", nameWidth), strings.Repeat("─", distanceWidth)
	fmt.Fprintf(w, "╭─%3s─┬─%-*s─┬─%-*s─╮\n", a, nameWidth, b, distanceWidth, c)
	fmt.Fprintf(w, "│ %3s │ %-*s │ %-*s │\n", "#", nameWidth, "Organisation", distanceWidth, "Distance")
	fmt.Fprintf(w, "├─%3s─┼─%-*s─┼─%-*s─┤\n", a, nameWidth, b, distanceWidth, c)

	for i, g := range v.Organisations {
		fmt.Fprintf(w, "│ %3d │ %-*s │ %-*s │\n",
			i+1, nameWidth, truncate(g.Name, nameWidth), distanceWidth, truncate(g.DistanceDescription, distanceWidth))
	}

	fmt.Fprintf(w, "╰─%3s─┴─%-*s─┴─%-*s─╯\n", a, nameWidth, b, distanceWidth, c)
	fmt.Fprintf(w, "Showing %s of %s organisations, %s.\n",
		textutils.FormatInt(int64(len(v.Organisations))), textutils.FormatInt(int64(v.Total)), sortLabel(v.CurrentSort))

	if v.HasMorePages {
		fmt.Fprintf(w, "Use --pages %d to see more.\n", v.PageIndex/v.PageSize+1)
	}
}

// renderRanges prints the selectable search radii, marking current.
func renderRanges(w io.Writer, ranges []spatial.Range, current int) {
	a, b := strings.Repeat("─", 8), strings.Repeat("─", 10)
	fmt.Fprintf(w, "╭─%8s─┬─%-10s─┬───╮\n", a, b)
	fmt.Fprintf(w, "│ %8s │ %-10s │   │\n", "Metres", "Range")
	fmt.Fprintf(w, "├─%8s─┼─%-10s─┼───┤\n", a, b)

	for _, r := range ranges {
		mark := " "
		if r.Metres == current {
			mark = "*"
		}

		fmt.Fprintf(w, "│ %8d │ %-10s │ %s │\n", r.Metres, r.Label, mark)
	}

	fmt.Fprintf(w, "╰─%8s─┴─%-10s─┴───╯\n", a, b)
}
