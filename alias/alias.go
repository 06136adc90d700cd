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

// Package alias provides the alias table that maps bare import specifiers
// to their targets, and the order-sensitive merge used to combine alias
// sources.
package alias

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/fs"
)

// Table maps alias names to target strings.
type Table map[string]string

// Parse parses JSON data into a Table.
func Parse(data []byte) (Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// Merge combines this table with another, with the other taking precedence
// on key collisions. The result is a new Table; neither input is modified.
func (t Table) Merge(other Table) Table {
	result := make(Table, len(t)+len(other))
	maps.Copy(result, t)
	maps.Copy(result, other)
	return result
}

// Clone creates a copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	result := make(Table, len(t))
	maps.Copy(result, t)
	return result
}

// Resolve looks up a specifier. Exact keys win; a key ending in "/" matches
// any specifier it prefixes, with the remainder appended to the target.
func (t Table) Resolve(specifier string) (string, bool) {
	if target, ok := t[specifier]; ok {
		return target, true
	}
	for key, target := range t {
		if len(key) > 0 && key[len(key)-1] == '/' && len(specifier) > len(key) && specifier[:len(key)] == key {
			return target + specifier[len(key):], true
		}
	}
	return "", false
}

// ToJSON converts the table to an indented JSON string. Returns an empty
// string for a nil or empty table.
func (t Table) ToJSON() string {
	if len(t) == 0 {
		return ""
	}
	bytes, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return ""
	}
	return string(bytes)
}

// Load reads each source in order and merges them into one table, later
// sources overriding earlier ones. A missing or unparseable source
// contributes an empty table and a warning; it never fails the build. The
// result depends only on the ordered list of sources and their contents.
func Load(fsys fs.FileSystem, sources []string, sink buildlog.Sink) Table {
	result := make(Table)
	for _, source := range sources {
		data, err := fsys.ReadFile(source)
		if err != nil {
			sink.Log(buildlog.Entry{
				Severity: buildlog.SeverityWarning,
				Message:  fmt.Sprintf("alias source %s unreadable, skipping: %v", source, err),
			})
			continue
		}
		t, err := Parse(data)
		if err != nil {
			sink.Log(buildlog.Entry{
				Severity: buildlog.SeverityWarning,
				Message:  fmt.Sprintf("alias source %s invalid, skipping: %v", source, err),
			})
			continue
		}
		result = result.Merge(t)
	}
	return result
}
