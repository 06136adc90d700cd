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
package alias_test

import (
	"reflect"
	"testing"

	"github.com/kilnware/kiln/alias"
	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/testutil"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		base alias.Table
		over alias.Table
		want alias.Table
	}{
		{
			"later source wins on collision",
			alias.Table{"a": "1"},
			alias.Table{"a": "2", "b": "3"},
			alias.Table{"a": "2", "b": "3"},
		},
		{
			"disjoint keys union",
			alias.Table{"lit": "https://cdn/lit"},
			alias.Table{"vue": "https://cdn/vue"},
			alias.Table{"lit": "https://cdn/lit", "vue": "https://cdn/vue"},
		},
		{
			"empty base",
			alias.Table{},
			alias.Table{"a": "1"},
			alias.Table{"a": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base.Merge(tt.over)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := alias.Table{"a": "1"}
	over := alias.Table{"a": "2"}
	_ = base.Merge(over)

	if base["a"] != "1" {
		t.Errorf("base mutated: %v", base)
	}
	if over["a"] != "2" {
		t.Errorf("override mutated: %v", over)
	}
}

func TestResolve(t *testing.T) {
	table := alias.Table{
		"lit":      "https://cdn/lit/index.js",
		"@scope/":  "https://cdn/scope/",
		"absolute": "/vendor/absolute.js",
	}

	tests := []struct {
		specifier string
		want      string
		ok        bool
	}{
		{"lit", "https://cdn/lit/index.js", true},
		{"@scope/button", "https://cdn/scope/button", true},
		{"absolute", "/vendor/absolute.js", true},
		{"unknown", "", false},
		{"@scope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.specifier, func(t *testing.T) {
			got, ok := table.Resolve(tt.specifier)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.specifier, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLoadMergesInOrder(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/first.json":  `{"a": "1", "b": "1"}`,
		"/app/second.json": `{"b": "2", "c": "2"}`,
	})

	got := alias.Load(mfs, []string{"/app/first.json", "/app/second.json"}, buildlog.Discard)
	want := alias.Table{"a": "1", "b": "2", "c": "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}
}

func TestLoadSkipsBadSources(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/good.json":   `{"a": "1"}`,
		"/app/broken.json": `{not json`,
	})

	collector := buildlog.NewCollector()
	got := alias.Load(mfs, []string{
		"/app/missing.json",
		"/app/broken.json",
		"/app/good.json",
	}, collector)

	want := alias.Table{"a": "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}

	warnings := 0
	for _, e := range collector.Entries() {
		if e.Severity == buildlog.SeverityWarning {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("expected 2 warnings for bad sources, got %d", warnings)
	}
}
