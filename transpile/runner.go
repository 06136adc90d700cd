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

package transpile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/catalog"
	"github.com/kilnware/kiln/fs"
)

// Runner drives a Transpiler over one batch of source units.
type Runner struct {
	fsys       fs.FileSystem
	transpiler Transpiler
	sink       buildlog.Sink
}

// NewRunner creates a runner writing through fsys and logging to sink.
func NewRunner(fsys fs.FileSystem, transpiler Transpiler, sink buildlog.Sink) *Runner {
	return &Runner{
		fsys:       fsys,
		transpiler: transpiler,
		sink:       sink,
	}
}

// Run transpiles units in catalog order against the shared context,
// writing each artifact into outputRoot under its deterministic name.
// The first unit failure aborts the batch: later units are not processed
// and files already written by earlier units stay in place. Two units
// flattening to the same output name fail the batch with a
// CollisionError rather than silently overwriting.
func (r *Runner) Run(ctx context.Context, units []catalog.Unit, bctx *Context, outputRoot string) ([]Artifact, error) {
	if len(units) == 0 {
		return nil, nil
	}

	if err := r.fsys.MkdirAll(outputRoot, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", outputRoot, err)
	}

	claimed := make(map[string]string, len(units))
	artifacts := make([]Artifact, 0, len(units))
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}

		outputName := OutputName(unit)
		if prior, ok := claimed[outputName]; ok {
			return artifacts, &CollisionError{
				OutputPath: outputName,
				First:      prior,
				Second:     unit.RelPath,
			}
		}
		claimed[outputName] = unit.RelPath

		outputPath := filepath.Join(outputRoot, outputName)
		if err := r.runUnit(unit, bctx, outputPath); err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, Artifact{Unit: unit, OutputPath: outputPath})
	}
	return artifacts, nil
}

func (r *Runner) runUnit(unit catalog.Unit, bctx *Context, outputPath string) error {
	content, err := r.fsys.ReadFile(unit.AbsPath)
	if err != nil {
		return &UnitError{Path: unit.RelPath, Err: err}
	}

	opts := Options{
		TypeAnnotated: unit.TypeAnnotated(),
		OutputStyle:   bctx.Config.Format,
	}

	code, diags, err := r.transpiler.Transpile(content, bctx, opts)
	for _, d := range diags {
		r.sink.Log(buildlog.Entry{
			Severity: d.Severity,
			Message:  d.Message,
			File:     unit.RelPath,
			Line:     d.Line,
		})
	}
	if err != nil {
		line := 0
		for _, d := range diags {
			if d.Severity == buildlog.SeverityError && d.Line > 0 {
				line = d.Line
				break
			}
		}
		return &UnitError{Path: unit.RelPath, Line: line, Err: err}
	}

	if err := r.fsys.WriteFile(outputPath, code, 0644); err != nil {
		return &UnitError{Path: unit.RelPath, Err: fmt.Errorf("write %s: %w", outputPath, err)}
	}
	return nil
}
