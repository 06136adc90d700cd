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

// Package tstrip is kiln's built-in transpiler. It erases TypeScript type
// syntax (annotations, interfaces, type aliases, `as` casts, type-only
// imports), rewrites bare import specifiers through the build's alias
// table, and resolves asset:// references against the published asset
// map. JSX is left intact; widgets ship as .jsx.
//
// Constructs that need code generation rather than erasure (enums,
// namespaces) are rejected with an error diagnostic. Angle-bracket casts
// are not supported; use `as`.
package tstrip

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/config"
	"github.com/kilnware/kiln/transpile"
)

// assetScheme prefixes string literals that reference published assets.
const assetScheme = "asset://"

// ErrUnsupportedSyntax is returned when a source uses constructs type
// stripping cannot express; the diagnostics carry the locations.
var ErrUnsupportedSyntax = errors.New("unsupported syntax for type stripping")

// Transpiler implements transpile.Transpiler.
type Transpiler struct{}

// New creates the built-in transpiler.
func New() *Transpiler {
	return &Transpiler{}
}

// edit replaces content[start:end) with text.
type edit struct {
	start int
	end   int
	text  string
}

// Transpile implements transpile.Transpiler.
func (t *Transpiler) Transpile(content []byte, bctx *transpile.Context, opts transpile.Options) ([]byte, []transpile.Diagnostic, error) {
	parser := getParser()
	defer putParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	var edits []edit
	var diags []transpile.Diagnostic

	if opts.TypeAnnotated {
		eraseEdits, eraseDiags, err := collectErasures(tree, content)
		if err != nil {
			return nil, eraseDiags, err
		}
		edits = append(edits, eraseEdits...)
		diags = append(diags, eraseDiags...)
	}

	rewriteEdits, rewriteDiags, err := collectRewrites(tree, content, bctx)
	if err != nil {
		return nil, diags, err
	}
	edits = append(edits, rewriteEdits...)
	diags = append(diags, rewriteDiags...)

	for _, d := range diags {
		if d.Severity == buildlog.SeverityError {
			return nil, diags, ErrUnsupportedSyntax
		}
	}

	code := applyEdits(content, edits)
	if opts.OutputStyle == config.FormatScript {
		code = append([]byte("\"use strict\";\n"), code...)
	}
	return code, diags, nil
}

// collectErasures finds type-only syntax and produces the edits that
// remove it.
func collectErasures(tree *ts.Tree, content []byte) ([]edit, []transpile.Diagnostic, error) {
	query, err := getQuery("erase")
	if err != nil {
		return nil, nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var edits []edit
	var diags []transpile.Diagnostic

	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var keepExpr *ts.Node
		var castNode *ts.Node

		for i := range match.Captures {
			capture := &match.Captures[i]
			name := captureNames[capture.Index]
			node := &capture.Node
			line := int(node.StartPosition().Row) + 1

			switch name {
			case "erase", "erase.modifier":
				edits = append(edits, edit{start: int(node.StartByte()), end: int(node.EndByte())})
			case "erase.declaration":
				target := node
				// export wrappers around erased declarations go with them
				if parent := node.Parent(); parent != nil && parent.Kind() == "export_statement" {
					target = parent
				}
				edits = append(edits, edit{start: int(target.StartByte()), end: int(target.EndByte())})
			case "keep.expr":
				keepExpr = node
			case "erase.cast":
				castNode = node
			case "unsupported.enum":
				diags = append(diags, transpile.Diagnostic{
					Severity: buildlog.SeverityError,
					Message:  "enum declarations are not supported by type stripping; use a const object",
					Line:     line,
				})
			case "unsupported.namespace":
				diags = append(diags, transpile.Diagnostic{
					Severity: buildlog.SeverityError,
					Message:  "namespace declarations are not supported by type stripping; use modules",
					Line:     line,
				})
			}
		}

		if keepExpr != nil && castNode != nil {
			edits = append(edits, edit{start: int(keepExpr.EndByte()), end: int(castNode.EndByte())})
		}
	}

	return edits, diags, nil
}

// collectRewrites resolves import specifiers through the alias table and
// asset:// string literals through the asset map.
func collectRewrites(tree *ts.Tree, content []byte, bctx *transpile.Context) ([]edit, []transpile.Diagnostic, error) {
	query, err := getQuery("rewrite")
	if err != nil {
		return nil, nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var edits []edit
	var diags []transpile.Diagnostic

	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		for i := range match.Captures {
			capture := &match.Captures[i]
			name := captureNames[capture.Index]
			node := &capture.Node
			text := node.Utf8Text(content)
			line := int(node.StartPosition().Row) + 1

			switch name {
			case "import.source":
				target, diag := resolveSpecifier(text, bctx, line)
				if diag != nil {
					diags = append(diags, *diag)
				}
				if target != "" && target != text {
					edits = append(edits, edit{start: int(node.StartByte()), end: int(node.EndByte()), text: target})
				}
			case "string.fragment":
				if !strings.HasPrefix(text, assetScheme) {
					continue
				}
				rel := text[len(assetScheme):]
				cid, ok := bctx.Assets[rel]
				if !ok {
					diags = append(diags, transpile.Diagnostic{
						Severity: buildlog.SeverityWarning,
						Message:  fmt.Sprintf("unknown asset reference %q", text),
						Line:     line,
					})
					continue
				}
				edits = append(edits, edit{
					start: int(node.StartByte()),
					end:   int(node.EndByte()),
					text:  gatewayJoin(bctx.Gateway, cid),
				})
			}
		}
	}

	return edits, diags, nil
}

// resolveSpecifier decides what an import specifier becomes in output
// code. Relative, absolute, and URL specifiers pass through. Bare
// specifiers resolve through the alias table; the build's own module
// names pass through for the runtime loader; anything else is flagged.
func resolveSpecifier(specifier string, bctx *transpile.Context, line int) (string, *transpile.Diagnostic) {
	if strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") || strings.Contains(specifier, "://") {
		return specifier, nil
	}
	if target, ok := bctx.Aliases.Resolve(specifier); ok {
		return target, nil
	}
	if bctx.HasModule(specifier) {
		return specifier, nil
	}
	return specifier, &transpile.Diagnostic{
		Severity: buildlog.SeverityWarning,
		Message:  fmt.Sprintf("unresolved bare import specifier %q", specifier),
		Line:     line,
	}
}

func gatewayJoin(gateway, cid string) string {
	return strings.TrimRight(gateway, "/") + "/" + cid
}

// applyEdits rewrites content with the collected edits. Edits are applied
// left to right; an edit nested inside an already-applied span (a string
// inside an erased declaration, say) is dropped.
func applyEdits(content []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return append([]byte(nil), content...)
	}

	sort.Slice(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end > edits[j].end
	})

	var out []byte
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		out = append(out, content[pos:e.start]...)
		out = append(out, e.text...)
		pos = e.end
	}
	out = append(out, content[pos:]...)
	return out
}
