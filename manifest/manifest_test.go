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
package manifest_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kilnware/kiln/manifest"
	"github.com/kilnware/kiln/testutil"
)

func sampleData() *manifest.Data {
	return &manifest.Data{
		Environment:   "production",
		DeployAccount: "k51deploy",
		Modules:       []string{"main", "util/fmt"},
		Widgets:       []string{"panel.jsx"},
		Assets:        map[string]string{"logo.png": "https://gw.example/ipfs/QmLogo"},
		Aliases:       map[string]string{"lit": "https://cdn.example/lit"},
	}
}

func TestGenerateWritesManifest(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/dist/placeholder": "",
	})
	w := manifest.NewWriter(mfs)

	if err := w.Generate(context.Background(), "/dist", sampleData()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	raw, err := mfs.ReadFile("/dist/manifest.json")
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	var got manifest.Data
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if got.Environment != "production" || got.DeployAccount != "k51deploy" {
		t.Errorf("manifest = %+v", got)
	}
	if got.Assets["logo.png"] != "https://gw.example/ipfs/QmLogo" {
		t.Errorf("assets = %v", got.Assets)
	}
}

func TestGenerateInjectsImportMap(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/dist/index.html": `<!DOCTYPE html>
<html>
<head><title>app</title></head>
<body></body>
</html>
`,
	})
	w := manifest.NewWriter(mfs)

	if err := w.Generate(context.Background(), "/dist", sampleData()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	raw, err := mfs.ReadFile("/dist/index.html")
	if err != nil {
		t.Fatalf("index missing: %v", err)
	}
	page := string(raw)
	if !strings.Contains(page, `type="importmap"`) {
		t.Fatalf("no import map script injected:\n%s", page)
	}
	if !strings.Contains(page, `"lit": "https://cdn.example/lit"`) {
		t.Errorf("alias missing from import map:\n%s", page)
	}
	if !strings.Contains(page, `"asset://logo.png": "https://gw.example/ipfs/QmLogo"`) {
		t.Errorf("asset URL missing from import map:\n%s", page)
	}
}

func TestGenerateUpdatesExistingImportMap(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/dist/index.html": `<!DOCTYPE html>
<html>
<head>
<script type="importmap">{"imports":{"stale":"https://old.example"}}</script>
</head>
<body></body>
</html>
`,
	})
	w := manifest.NewWriter(mfs)

	if err := w.Generate(context.Background(), "/dist", sampleData()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	raw, _ := mfs.ReadFile("/dist/index.html")
	page := string(raw)
	if strings.Contains(page, "old.example") {
		t.Errorf("stale import map entry survived:\n%s", page)
	}
	if !strings.Contains(page, `"lit": "https://cdn.example/lit"`) {
		t.Errorf("new entries missing:\n%s", page)
	}
	if strings.Count(page, "importmap") != 1 {
		t.Errorf("expected exactly one import map script:\n%s", page)
	}
}

func TestGenerateWithoutIndex(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/dist/placeholder": "",
	})
	w := manifest.NewWriter(mfs)

	if err := w.Generate(context.Background(), "/dist", sampleData()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if mfs.Exists("/dist/index.html") {
		t.Errorf("index.html created out of nothing")
	}
}
