// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package server

import "sync"

const streamBuffer = 16

// hub fans responses out to the event streams. Slow streams miss updates
// instead of blocking the listing.
type hub struct {
	mu      sync.Mutex
	streams map[chan Response]struct{}
}

func newHub() *hub {
	return &hub{streams: make(map[chan Response]struct{})}
}

func (h *hub) subscribe() (<-chan Response, func()) {
	ch := make(chan Response, streamBuffer)

	h.mu.Lock()
	h.streams[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if _, ok := h.streams[ch]; ok {
			delete(h.streams, ch)
			close(ch)
		}
	}
}

func (h *hub) publish(r Response) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.streams {
		select {
		case ch <- r:
		default:
		}
	}
}
