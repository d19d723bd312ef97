// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils normalises user supplied text: search queries and postcodes.
package textutils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerQuery lowercases and trims a provider name query. Accents are kept,
// the search endpoint matches them literally.
func LowerQuery(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))
}

// NormalizePostcode uppercases a postcode and rewrites its spacing to the
// canonical "OUTWARD INWARD" form. Inputs too short to carry an inward code
// are returned without whitespace.
func NormalizePostcode(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.White_Space)),
		),
		s,
	)
	s = cases.Upper(language.Und).String(s)

	// inward codes are always three characters
	r := []rune(s)
	if len(r) < 5 {
		return s
	}

	return string(r[:len(r)-3]) + " " + string(r[len(r)-3:])
}

// FormatInt formats an integer with commas for human readability.
func FormatInt(n int64) string {
	in := strconv.FormatInt(n, 10)

	numOfDigits := len(in)
	if n < 0 {
		numOfDigits-- // First character is the - sign (not a digit)
	}

	numOfCommas := (numOfDigits - 1) / 3

	out := make([]byte, len(in)+numOfCommas)
	if n < 0 {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]
		if i == 0 {
			return string(out)
		}

		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}
