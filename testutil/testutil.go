/*
Copyright © 2026 Kiln Authors <dev@kilnware.dev>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package testutil provides testing utilities for the kiln packages.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/kilnware/kiln/internal/mapfs"
)

// NewTreeFS builds an in-memory filesystem from a path-to-content map.
func NewTreeFS(t *testing.T, files map[string]string) *mapfs.MapFileSystem {
	t.Helper()

	mfs := mapfs.New()
	for path, content := range files {
		mfs.AddFile(path, content, 0644)
	}
	return mfs
}

// StubStore is an in-memory store.Publisher that returns "cid-<path>" for
// every publish and records the paths it was asked to publish.
type StubStore struct {
	mu    sync.Mutex
	calls []string

	// Fail maps a local path to the error its publish should return.
	Fail map[string]error
}

// NewStubStore creates an empty stub store.
func NewStubStore() *StubStore {
	return &StubStore{}
}

// Publish implements store.Publisher.
func (s *StubStore) Publish(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.calls = append(s.calls, localPath)
	s.mu.Unlock()

	if err, ok := s.Fail[localPath]; ok {
		return "", err
	}
	return fmt.Sprintf("cid-%s", localPath), nil
}

// Calls returns the published paths in lexicographic order; publishes may
// run concurrently, so arrival order is not meaningful.
func (s *StubStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	sort.Strings(out)
	return out
}

// CallCount returns how many publishes were attempted.
func (s *StubStore) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
