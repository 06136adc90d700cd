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

// Package reconcile converges the output directory on the current build's
// artifact set: outputs of renamed or removed source units are deleted.
package reconcile

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/kilnware/kiln/buildlog"
	kfs "github.com/kilnware/kiln/fs"
)

// Reconciler snapshots and sweeps an output directory.
type Reconciler struct {
	fsys kfs.FileSystem
	sink buildlog.Sink
}

// New creates a reconciler.
func New(fsys kfs.FileSystem, sink buildlog.Sink) *Reconciler {
	return &Reconciler{fsys: fsys, sink: sink}
}

// Snapshot records the set of files currently under outputRoot. It must
// be called before the build writes any artifact; a snapshot taken after
// writing would classify fresh outputs as stale and delete them. A
// missing output root yields an empty set.
func (r *Reconciler) Snapshot(outputRoot string) (map[string]struct{}, error) {
	prior := make(map[string]struct{})
	if !r.fsys.Exists(outputRoot) {
		return prior, nil
	}

	err := fs.WalkDir(r.fsys, outputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		prior[path] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot output directory %s: %w", outputRoot, err)
	}
	return prior, nil
}

// Sweep deletes every path in the prior snapshot that is not in the
// produced set. Paths in both sets, and paths only in produced, are left
// alone.
func (r *Reconciler) Sweep(prior, produced map[string]struct{}) error {
	stale := make([]string, 0)
	for path := range prior {
		if _, ok := produced[path]; !ok {
			stale = append(stale, path)
		}
	}
	sort.Strings(stale)

	for _, path := range stale {
		if err := r.fsys.Remove(path); err != nil {
			return fmt.Errorf("remove stale output %s: %w", path, err)
		}
		r.sink.Log(buildlog.Entry{
			Severity: buildlog.SeverityInfo,
			Message:  fmt.Sprintf("removed stale output %s", path),
		})
	}
	return nil
}
