// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML encoded text.
package htmlutils

import (
	"strings"

	"golang.org/x/net/html"
)

// Decode resolves HTML character references ("&amp;", "&#39;", ...) found in
// API fields that were stored HTML encoded.
func Decode(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}

	return html.UnescapeString(s)
}
