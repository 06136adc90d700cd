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

// Package assets publishes static assets to the content store and
// maintains the ledger that makes publishing idempotent.
//
// The ledger maps asset paths (relative to the asset root) to content
// identifiers. A path already present in the ledger is never republished
// and its identifier is never overwritten, even if the file's content has
// changed on disk. That is a deliberate simplification: published URLs are
// already embedded in deployed bundles, and changing a CID under a path
// would not update them. Content that must change gets a new path.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kilnware/kiln/buildlog"
	kfs "github.com/kilnware/kiln/fs"
	"github.com/kilnware/kiln/store"
)

// LedgerName is the ledger's filename, at the source root and mirrored to
// the destination root.
const LedgerName = "ipfs.json"

// defaultParallelism bounds concurrent publish calls.
const defaultParallelism = 4

// Map is the asset ledger: relative asset path to content identifier.
type Map map[string]string

// Clone returns a copy of the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ToJSON renders the map as pretty-printed 2-space-indented JSON.
func (m Map) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// LoadLedger reads a persisted ledger. A missing or corrupt ledger file
// degrades to an empty map with a warning; it never fails the build.
func LoadLedger(fsys kfs.FileSystem, path string, sink buildlog.Sink) Map {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			sink.Log(buildlog.Entry{
				Severity: buildlog.SeverityWarning,
				Message:  fmt.Sprintf("asset ledger %s unreadable, starting empty: %v", path, err),
			})
		}
		return make(Map)
	}
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		sink.Log(buildlog.Entry{
			Severity: buildlog.SeverityWarning,
			Message:  fmt.Sprintf("asset ledger %s corrupt, starting empty: %v", path, err),
		})
		return make(Map)
	}
	if m == nil {
		m = make(Map)
	}
	return m
}

// Publisher publishes unseen assets and maintains the ledger.
type Publisher struct {
	fsys     kfs.FileSystem
	store    store.Publisher
	sink     buildlog.Sink
	parallel int
}

// NewPublisher creates a publisher over the given store.
func NewPublisher(fsys kfs.FileSystem, st store.Publisher, sink buildlog.Sink) *Publisher {
	return &Publisher{
		fsys:     fsys,
		store:    st,
		sink:     sink,
		parallel: defaultParallelism,
	}
}

// WithParallelism bounds the number of concurrent publish calls.
func (p *Publisher) WithParallelism(n int) *Publisher {
	if n > 0 {
		p.parallel = n
	}
	return p
}

// Publish diffs the asset root against the persisted ledger at ledgerPath,
// publishes only paths not yet in the ledger, and returns the merged map.
// The ledger (and its mirror at mirrorPath) is rewritten only when at
// least one new entry was produced. Existing entries are never modified.
//
// Publishes that complete before a batch failure are recorded in the
// ledger even though the call returns an error, so a rerun does not
// publish them a second time.
func (p *Publisher) Publish(ctx context.Context, assetRoot, ledgerPath, mirrorPath string) (Map, error) {
	ledger := LoadLedger(p.fsys, ledgerPath, p.sink)

	relPaths, err := p.enumerate(assetRoot)
	if err != nil {
		return nil, fmt.Errorf("enumerate assets in %s: %w", assetRoot, err)
	}

	var unseen []string
	for _, rel := range relPaths {
		if _, ok := ledger[rel]; !ok {
			unseen = append(unseen, rel)
		}
	}

	merged := ledger.Clone()
	if len(unseen) == 0 {
		return merged, nil
	}

	cids := make([]string, len(unseen))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for i, rel := range unseen {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cid, err := p.store.Publish(gctx, filepath.Join(assetRoot, rel))
			if err != nil {
				return err
			}
			cids[i] = cid
			return nil
		})
	}
	publishErr := g.Wait()

	added := 0
	for i, rel := range unseen {
		if cids[i] == "" {
			continue
		}
		merged[rel] = cids[i]
		added++
		p.sink.Log(buildlog.Entry{
			Severity: buildlog.SeverityInfo,
			Message:  fmt.Sprintf("published asset %s (%s)", rel, cids[i]),
		})
	}

	if added > 0 {
		data, err := merged.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("encode asset ledger: %w", err)
		}
		if err := p.fsys.WriteFile(ledgerPath, data, 0644); err != nil {
			return nil, fmt.Errorf("persist asset ledger %s: %w", ledgerPath, err)
		}
		if publishErr == nil && mirrorPath != "" {
			if err := p.fsys.MkdirAll(filepath.Dir(mirrorPath), 0755); err != nil {
				return nil, fmt.Errorf("mirror asset ledger: %w", err)
			}
			if err := p.fsys.WriteFile(mirrorPath, data, 0644); err != nil {
				return nil, fmt.Errorf("mirror asset ledger %s: %w", mirrorPath, err)
			}
		}
	}

	if publishErr != nil {
		return nil, publishErr
	}
	return merged, nil
}

// enumerate returns the relative paths of all files under assetRoot in
// lexicographic order. A missing asset root yields an empty slice.
func (p *Publisher) enumerate(assetRoot string) ([]string, error) {
	if !p.fsys.Exists(assetRoot) {
		return nil, nil
	}

	var relPaths []string
	err := fs.WalkDir(p.fsys, assetRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(assetRoot, path)
		if err != nil {
			return err
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(relPaths)
	return relPaths, nil
}
