// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Navigator records what the widget page should show around the listing:
// whether a search is in flight and the route it must move to, if any.
type Navigator struct {
	mu       sync.Mutex
	loading  int
	redirect string
	log      logrus.FieldLogger

	changed func()
}

// NewNavigator creates a navigator that logs redirects to log.
func NewNavigator(log logrus.FieldLogger) *Navigator {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Navigator{log: log}
}

// Loading marks a search as started.
func (n *Navigator) Loading() {
	n.update(func() { n.loading++ })
}

// Loaded marks a search as finished.
func (n *Navigator) Loaded() {
	n.update(func() { n.loading = max(0, n.loading-1) })
}

// Redirect sends the page to route. The new page starts without a busy
// indicator.
func (n *Navigator) Redirect(route string) {
	n.log.WithField("route", route).Warn("Redirecting widget")
	n.update(func() {
		n.redirect = route
		n.loading = 0
	})
}

// Status reports whether a search is in flight and the pending redirect.
func (n *Navigator) Status() (loading bool, redirect string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.loading > 0, n.redirect
}

// clearRedirect drops the pending redirect before a new action.
func (n *Navigator) clearRedirect() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.redirect = ""
}

func (n *Navigator) update(fn func()) {
	n.mu.Lock()
	fn()
	changed := n.changed
	n.mu.Unlock()

	if changed != nil {
		changed()
	}
}
