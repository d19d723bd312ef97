// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Memory keeps the last postcode the user resolved.
type Memory interface {
	// Load returns nil when nothing was remembered yet.
	Load() (*Location, error)
	Save(loc Location) error
}

// InMemory is a process local Memory.
type InMemory struct {
	mu  sync.Mutex
	loc *Location
}

// Load implements Memory.
func (m *InMemory) Load() (*Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loc == nil {
		return nil, nil
	}

	loc := *m.loc

	return &loc, nil
}

// Save implements Memory.
func (m *InMemory) Save(loc Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loc = &loc

	return nil
}

const rememberedFile = "postcode.json"

// FileMemory stores the remembered postcode as JSON inside a state directory.
type FileMemory struct {
	path string
	mu   sync.Mutex
}

// NewFileMemory creates a memory rooted at dir. The directory is created on
// first save.
func NewFileMemory(dir string) *FileMemory {
	return &FileMemory{path: filepath.Join(dir, rememberedFile)}
}

// Load implements Memory. A missing file is not an error.
func (m *FileMemory) Load() (*Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.path, err)
	}

	var loc Location
	if err := json.Unmarshal(b, &loc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", m.path, err)
	}

	return &loc, nil
}

// Save implements Memory. It writes a temp file then renames it in place.
func (m *FileMemory) Save(loc Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	b, err := json.MarshalIndent(loc, "", "  ")
	if err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}

	return os.Rename(tmp, m.path)
}
