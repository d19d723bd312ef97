// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/orglisting/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
