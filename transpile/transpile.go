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

// Package transpile drives the transpiler over the build's source units
// and assigns each unit its deterministic output identity.
package transpile

import (
	"fmt"
	"strings"

	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/catalog"
)

// Options are the per-unit transpile options.
type Options struct {
	// TypeAnnotated is true for units whose extension implies type
	// syntax that must be compiled away.
	TypeAnnotated bool

	// OutputStyle is the configured output code style.
	OutputStyle string
}

// Diagnostic is one message a transpiler reports about a unit.
type Diagnostic struct {
	Severity buildlog.Severity
	Message  string

	// Line is 1-indexed in the unit's source, 0 when unknown.
	Line int
}

// Transpiler converts one source unit's content into deployable code. The
// coordinator assumes nothing about the implementation beyond this
// contract.
type Transpiler interface {
	Transpile(content []byte, bctx *Context, opts Options) (code []byte, diags []Diagnostic, err error)
}

// Artifact records a transpiled unit and where its code was written.
type Artifact struct {
	Unit       catalog.Unit
	OutputPath string
}

// OutputName computes a unit's deterministic output filename. The
// relative path's separators are flattened into dots, the extension is
// stripped, and the kind's suffix is appended: modules end in
// ".module.js", widgets in ".jsx". The suffixes keep the two kinds
// collision-free in the shared output directory.
func OutputName(u catalog.Unit) string {
	flat := strings.ReplaceAll(u.Name(), "/", ".")
	switch u.Kind {
	case catalog.KindWidget:
		return flat + ".jsx"
	default:
		return flat + ".module.js"
	}
}

// UnitError reports a failure processing a single source unit.
type UnitError struct {
	// Path is the unit's path relative to its root.
	Path string

	// Line is 1-indexed when the failure is tied to a source line.
	Line int

	Err error
}

func (e *UnitError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// CollisionError reports two units flattening to the same output path.
type CollisionError struct {
	OutputPath string
	First      string
	Second     string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("output collision at %s: %s and %s", e.OutputPath, e.First, e.Second)
}
