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
package transpile_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/catalog"
	"github.com/kilnware/kiln/config"
	"github.com/kilnware/kiln/testutil"
	"github.com/kilnware/kiln/transpile"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		relPath string
		kind    catalog.Kind
		want    string
	}{
		{"foo/bar.ts", catalog.KindModule, "foo.bar.module.js"},
		{"main.js", catalog.KindModule, "main.module.js"},
		{"a/b/c.tsx", catalog.KindModule, "a.b.c.module.js"},
		{"x/y.jsx", catalog.KindWidget, "x.y.jsx"},
		{"panel.tsx", catalog.KindWidget, "panel.jsx"},
	}

	for _, tt := range tests {
		t.Run(tt.relPath, func(t *testing.T) {
			u := catalog.Unit{RelPath: tt.relPath, Kind: tt.kind}
			if got := transpile.OutputName(u); got != tt.want {
				t.Errorf("OutputName(%q %s) = %q, want %q", tt.relPath, tt.kind, got, tt.want)
			}
		})
	}
}

func TestNewContext(t *testing.T) {
	cfg := &config.Config{
		Format: config.FormatModule,
		Store:  config.StoreIPFS,
		IPFS:   config.IPFS{Gateway: "https://gw.example"},
	}
	modules := []catalog.Unit{
		{RelPath: "app/main.ts", Kind: catalog.KindModule},
		{RelPath: "util.js", Kind: catalog.KindModule},
	}

	bctx := transpile.NewContext(cfg, modules, map[string]string{"a.png": "QmA"}, map[string]string{"lit": "https://cdn/lit"})

	if !reflect.DeepEqual(bctx.ModuleNames, []string{"app/main", "util"}) {
		t.Errorf("ModuleNames = %v", bctx.ModuleNames)
	}
	if bctx.Gateway != "https://gw.example" {
		t.Errorf("Gateway = %q", bctx.Gateway)
	}
	if !bctx.HasModule("app/main") || bctx.HasModule("missing") {
		t.Errorf("HasModule misbehaves")
	}
}

// recordingTranspiler echoes content and records the units it saw, failing
// on content containing the FAIL marker.
type recordingTranspiler struct {
	seen []string
}

func (r *recordingTranspiler) Transpile(content []byte, bctx *transpile.Context, opts transpile.Options) ([]byte, []transpile.Diagnostic, error) {
	r.seen = append(r.seen, string(content))
	if strings.Contains(string(content), "FAIL") {
		return nil, []transpile.Diagnostic{{
			Severity: buildlog.SeverityError,
			Message:  "synthetic failure",
			Line:     3,
		}}, errors.New("synthetic failure")
	}
	return content, nil, nil
}

func testContext() *transpile.Context {
	cfg := &config.Config{Format: config.FormatModule, Store: config.StoreIPFS, IPFS: config.IPFS{Gateway: "https://gw"}}
	return transpile.NewContext(cfg, nil, nil, nil)
}

func TestRunWritesArtifacts(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/module/a.ts":     "unit a",
		"/app/module/sub/b.js": "unit b",
	})
	units := []catalog.Unit{
		{AbsPath: "/app/module/a.ts", RelPath: "a.ts", Kind: catalog.KindModule},
		{AbsPath: "/app/module/sub/b.js", RelPath: "sub/b.js", Kind: catalog.KindModule},
	}

	runner := transpile.NewRunner(mfs, &recordingTranspiler{}, buildlog.Discard)
	artifacts, err := runner.Run(context.Background(), units, testContext(), "/out")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantPaths := []string{"/out/a.module.js", "/out/sub.b.module.js"}
	for i, a := range artifacts {
		if a.OutputPath != wantPaths[i] {
			t.Errorf("artifact %d path = %q, want %q", i, a.OutputPath, wantPaths[i])
		}
	}

	data, err := mfs.ReadFile("/out/sub.b.module.js")
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if string(data) != "unit b" {
		t.Errorf("output content = %q", data)
	}
}

func TestRunFailFast(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/module/a.ts": "unit a",
		"/app/module/b.ts": "unit b FAIL",
		"/app/module/c.ts": "unit c",
	})
	units := []catalog.Unit{
		{AbsPath: "/app/module/a.ts", RelPath: "a.ts", Kind: catalog.KindModule},
		{AbsPath: "/app/module/b.ts", RelPath: "b.ts", Kind: catalog.KindModule},
		{AbsPath: "/app/module/c.ts", RelPath: "c.ts", Kind: catalog.KindModule},
	}

	tr := &recordingTranspiler{}
	runner := transpile.NewRunner(mfs, tr, buildlog.Discard)
	_, err := runner.Run(context.Background(), units, testContext(), "/out")

	var uerr *transpile.UnitError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnitError, got %v", err)
	}
	if uerr.Path != "b.ts" || uerr.Line != 3 {
		t.Errorf("UnitError = %s:%d, want b.ts:3", uerr.Path, uerr.Line)
	}

	if len(tr.seen) != 2 {
		t.Errorf("processed %d units, want 2 (third never reached)", len(tr.seen))
	}

	// The earlier unit's output stays in place; no rollback.
	if !mfs.Exists("/out/a.module.js") {
		t.Errorf("unit a's output was rolled back")
	}
	if mfs.Exists("/out/c.module.js") {
		t.Errorf("unit c was processed after the failure")
	}
}

func TestRunOutputCollision(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/module/a/b.ts": "nested",
		"/app/module/a.b.ts": "flat",
	})
	units := []catalog.Unit{
		{AbsPath: "/app/module/a.b.ts", RelPath: "a.b.ts", Kind: catalog.KindModule},
		{AbsPath: "/app/module/a/b.ts", RelPath: "a/b.ts", Kind: catalog.KindModule},
	}

	runner := transpile.NewRunner(mfs, &recordingTranspiler{}, buildlog.Discard)
	_, err := runner.Run(context.Background(), units, testContext(), "/out")

	var cerr *transpile.CollisionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CollisionError, got %v", err)
	}
	if cerr.OutputPath != "a.b.module.js" {
		t.Errorf("collision path = %q", cerr.OutputPath)
	}
}

func TestRunCancellation(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/module/a.ts": "unit a",
	})
	units := []catalog.Unit{
		{AbsPath: "/app/module/a.ts", RelPath: "a.ts", Kind: catalog.KindModule},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := transpile.NewRunner(mfs, &recordingTranspiler{}, buildlog.Discard)
	_, err := runner.Run(ctx, units, testContext(), "/out")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunForwardsDiagnostics(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/widget/w.jsx": "unit w FAIL",
	})
	units := []catalog.Unit{
		{AbsPath: "/app/widget/w.jsx", RelPath: "w.jsx", Kind: catalog.KindWidget},
	}

	collector := buildlog.NewCollector()
	runner := transpile.NewRunner(mfs, &recordingTranspiler{}, collector)
	_, _ = runner.Run(context.Background(), units, testContext(), "/out")

	entries := collector.Entries()
	if len(entries) != 1 {
		t.Fatalf("collected %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.File != "w.jsx" || e.Line != 3 || e.Severity != buildlog.SeverityError {
		t.Errorf("entry = %+v, want tagged w.jsx:3 error", e)
	}
}
