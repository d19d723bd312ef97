// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

const spinInterval = 100 * time.Millisecond

// terminalNavigator shows a spinner while a search is in flight and
// remembers where the listing wanted to go on failure.
type terminalNavigator struct {
	mu       sync.Mutex
	out      io.Writer
	spin     bool
	log      logrus.FieldLogger
	depth    int
	bar      *progressbar.ProgressBar
	stop     chan struct{}
	done     chan struct{}
	redirect string
}

func newTerminalNavigator(log logrus.FieldLogger) *terminalNavigator {
	return &terminalNavigator{
		out:  os.Stderr,
		spin: isatty.IsTerminal(os.Stderr.Fd()),
		log:  log,
	}
}

func (n *terminalNavigator) Loading() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.depth++
	if n.depth > 1 {
		return
	}

	if !n.spin {
		n.log.Info("Searching organisations...")

		return
	}

	n.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Searching organisations"),
		progressbar.OptionSetWriter(n.out),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	n.stop = make(chan struct{})
	n.done = make(chan struct{})

	go func(bar *progressbar.ProgressBar, stop, done chan struct{}) {
		defer close(done)

		ticker := time.NewTicker(spinInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}(n.bar, n.stop, n.done)
}

func (n *terminalNavigator) Loaded() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.depth == 0 {
		return
	}

	n.depth--
	if n.depth == 0 {
		n.stopSpinner()
	}
}

func (n *terminalNavigator) Redirect(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.depth = 0
	n.stopSpinner()
	n.redirect = route
	n.log.WithField("route", route).Debug("Listing redirected")
}

// Redirected returns the route of the last redirect, if any.
func (n *terminalNavigator) Redirected() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.redirect
}

// stopSpinner clears the spinner. Callers hold mu.
func (n *terminalNavigator) stopSpinner() {
	if n.bar == nil {
		return
	}

	close(n.stop)
	<-n.done

	if err := n.bar.Finish(); err != nil {
		n.log.WithError(err).Debug("Failed to clear spinner")
	}

	n.bar, n.stop, n.done = nil, nil, nil
}
