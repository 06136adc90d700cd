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

// Package catalog discovers the source units of a build. Units are
// returned in lexicographic order of their relative paths so output and
// log ordering is reproducible across runs on the same tree.
package catalog

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kfs "github.com/kilnware/kiln/fs"
)

// Kind is the logical kind of a source unit.
type Kind string

const (
	KindModule Kind = "module"
	KindWidget Kind = "widget"
)

// sourcePattern matches the extensions of transpilable source files.
const sourcePattern = "*.{js,jsx,ts,tsx}"

// Unit is one discovered source file.
type Unit struct {
	// AbsPath locates the file for reading.
	AbsPath string

	// RelPath is the path relative to the kind's root, slash-separated.
	RelPath string

	// Kind is the unit's logical kind.
	Kind Kind
}

// Ext returns the unit's file extension, including the dot.
func (u Unit) Ext() string {
	return filepath.Ext(u.RelPath)
}

// TypeAnnotated reports whether the unit's extension implies TypeScript
// syntax that must be compiled away.
func (u Unit) TypeAnnotated() bool {
	ext := u.Ext()
	return ext == ".ts" || ext == ".tsx"
}

// Name returns the unit's logical name: the relative path with its
// extension stripped.
func (u Unit) Name() string {
	return strings.TrimSuffix(u.RelPath, u.Ext())
}

// Discover recursively enumerates source units under root for one kind. A
// missing root yields an empty catalog; a bundle need not have units of
// every kind.
func Discover(fsys kfs.FileSystem, root string, kind Kind) ([]Unit, error) {
	if !fsys.Exists(root) {
		return nil, nil
	}

	var units []Unit
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		matched, err := doublestar.Match(sourcePattern, d.Name())
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		units = append(units, Unit{
			AbsPath: path,
			RelPath: filepath.ToSlash(rel),
			Kind:    kind,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir is already lexical, but the ordering is a contract here,
	// not an accident of the walker.
	sort.Slice(units, func(i, j int) bool {
		return units[i].RelPath < units[j].RelPath
	})
	return units, nil
}
