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

// Package manifest generates the build's downstream metadata: a
// manifest.json describing the deployed bundle, and an import map script
// in the destination's index.html when one exists.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/kilnware/kiln/fs"
)

// Name is the manifest's filename under the destination root.
const Name = "manifest.json"

// indexName is the HTML document the import map is injected into.
const indexName = "index.html"

// Data describes one build's outputs.
type Data struct {
	Environment   string            `json:"environment"`
	DeployAccount string            `json:"deployAccount"`
	Modules       []string          `json:"modules"`
	Widgets       []string          `json:"widgets"`
	Assets        map[string]string `json:"assets"`
	Aliases       map[string]string `json:"aliases,omitempty"`
}

// Generator produces downstream metadata for a finished build.
type Generator interface {
	Generate(ctx context.Context, destRoot string, data *Data) error
}

// Writer is the default Generator.
type Writer struct {
	fsys fs.FileSystem
}

// NewWriter creates a Writer.
func NewWriter(fsys fs.FileSystem) *Writer {
	return &Writer{fsys: fsys}
}

// Generate implements Generator. It writes manifest.json and, when the
// destination has an index.html, inserts or updates its import map script
// with the alias table and the published asset URLs.
func (w *Writer) Generate(ctx context.Context, destRoot string, data *Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	manifestPath := filepath.Join(destRoot, Name)
	if err := w.fsys.WriteFile(manifestPath, append(encoded, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", manifestPath, err)
	}

	indexPath := filepath.Join(destRoot, indexName)
	if !w.fsys.Exists(indexPath) {
		return nil
	}
	return w.injectImportMap(indexPath, data)
}

// importMap is the JSON shape of the injected script.
type importMap struct {
	Imports map[string]string `json:"imports"`
}

func (w *Writer) injectImportMap(indexPath string, data *Data) error {
	content, err := w.fsys.ReadFile(indexPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", indexPath, err)
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("parse %s: %w", indexPath, err)
	}

	imports := make(map[string]string, len(data.Aliases)+len(data.Assets))
	for name, target := range data.Aliases {
		imports[name] = target
	}
	for rel, url := range data.Assets {
		imports["asset://"+rel] = url
	}
	mapJSON, err := json.MarshalIndent(importMap{Imports: imports}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode import map: %w", err)
	}
	scriptText := "\n" + string(mapJSON) + "\n"

	if script := findImportMapScript(doc); script != nil {
		// Replace the script's content in place.
		for child := script.FirstChild; child != nil; {
			next := child.NextSibling
			script.RemoveChild(child)
			child = next
		}
		script.AppendChild(&html.Node{Type: html.TextNode, Data: scriptText})
	} else {
		head := findElement(doc, "head")
		if head == nil {
			// Parsing always synthesizes a head for valid documents;
			// leave fragments alone.
			return nil
		}
		script := &html.Node{
			Type: html.ElementNode,
			Data: "script",
			Attr: []html.Attribute{{Key: "type", Val: "importmap"}},
		}
		script.AppendChild(&html.Node{Type: html.TextNode, Data: scriptText})
		head.AppendChild(script)
	}

	var rendered bytes.Buffer
	if err := html.Render(&rendered, doc); err != nil {
		return fmt.Errorf("render %s: %w", indexPath, err)
	}
	out := rendered.Bytes()
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}
	return w.fsys.WriteFile(indexPath, out, 0644)
}

// findImportMapScript locates a <script type="importmap"> element.
func findImportMapScript(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "type" && strings.EqualFold(attr.Val, "importmap") {
				return n
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findImportMapScript(child); found != nil {
			return found
		}
	}
	return nil
}

// findElement locates the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}
