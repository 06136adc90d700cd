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

// Package build sequences one incremental publish-and-reconcile build:
// configuration, alias merging, asset publishing, source discovery,
// transpilation, output reconciliation, and manifest generation.
//
// Configuration failure aborts before any side effect. Failures after
// that propagate to the caller with partial side effects (published
// assets, written artifacts) left in place; there is no rollback across
// a build.
package build

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kilnware/kiln/alias"
	"github.com/kilnware/kiln/assets"
	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/catalog"
	"github.com/kilnware/kiln/config"
	"github.com/kilnware/kiln/fs"
	"github.com/kilnware/kiln/manifest"
	"github.com/kilnware/kiln/reconcile"
	"github.com/kilnware/kiln/store"
	"github.com/kilnware/kiln/store/ipfs"
	"github.com/kilnware/kiln/store/s3"
	"github.com/kilnware/kiln/transpile"
	"github.com/kilnware/kiln/transpile/tstrip"
)

// Source tree subdirectories.
const (
	moduleDir = "module"
	widgetDir = "widget"
	assetDir  = "ipfs"
)

// OutputDir is the destination subdirectory all artifacts are written to.
// Modules and widgets share it, distinguished by their output suffixes.
var OutputDir = filepath.Join("src", "widget")

// Result is a finished build's aggregated log.
type Result struct {
	Logs []buildlog.Entry
}

// Builder runs builds. The zero value is not usable; construct with New.
type Builder struct {
	fsys       fs.FileSystem
	sink       buildlog.Sink
	transpiler transpile.Transpiler
	publisher  store.Publisher
	generator  manifest.Generator
}

// New creates a builder with the built-in transpiler and manifest writer.
// sink receives log entries as they happen, in addition to the entries
// collected into the Result.
func New(fsys fs.FileSystem, sink buildlog.Sink) *Builder {
	if sink == nil {
		sink = buildlog.Discard
	}
	return &Builder{
		fsys:       fsys,
		sink:       sink,
		transpiler: tstrip.New(),
		generator:  manifest.NewWriter(fsys),
	}
}

// WithTranspiler substitutes the transpiler.
func (b *Builder) WithTranspiler(t transpile.Transpiler) *Builder {
	b.transpiler = t
	return b
}

// WithStore substitutes the content store publisher, bypassing the
// config-selected backend.
func (b *Builder) WithStore(p store.Publisher) *Builder {
	b.publisher = p
	return b
}

// WithGenerator substitutes the manifest generator.
func (b *Builder) WithGenerator(g manifest.Generator) *Builder {
	b.generator = g
	return b
}

// Build runs one build of sourceRoot into destRoot for the named
// environment (empty means config.DefaultEnvironment). On success the
// result carries every log entry the build produced, in order.
func (b *Builder) Build(ctx context.Context, sourceRoot, destRoot, env string) (*Result, error) {
	collector := buildlog.NewCollector()
	sink := buildlog.Tee(b.sink, collector)

	// Config failure aborts here, before any side effect is attempted.
	cfg, err := config.Load(b.fsys, sourceRoot, env)
	if err != nil {
		return nil, err
	}

	aliasSources := make([]string, len(cfg.Aliases))
	for i, rel := range cfg.Aliases {
		aliasSources[i] = filepath.Join(sourceRoot, rel)
	}
	aliases := alias.Load(b.fsys, aliasSources, sink)

	publisher := b.publisher
	if publisher == nil {
		publisher, err = b.newPublisher(cfg)
		if err != nil {
			return nil, err
		}
	}

	assetMap, err := assets.NewPublisher(b.fsys, publisher, sink).Publish(ctx,
		filepath.Join(sourceRoot, assetDir),
		filepath.Join(sourceRoot, assets.LedgerName),
		filepath.Join(destRoot, assets.LedgerName),
	)
	if err != nil {
		return nil, fmt.Errorf("publish assets: %w", err)
	}

	modules, err := catalog.Discover(b.fsys, filepath.Join(sourceRoot, moduleDir), catalog.KindModule)
	if err != nil {
		return nil, fmt.Errorf("catalog modules: %w", err)
	}
	widgets, err := catalog.Discover(b.fsys, filepath.Join(sourceRoot, widgetDir), catalog.KindWidget)
	if err != nil {
		return nil, fmt.Errorf("catalog widgets: %w", err)
	}

	bctx := transpile.NewContext(cfg, modules, assetMap, aliases)

	outputRoot := filepath.Join(destRoot, OutputDir)
	reconciler := reconcile.New(b.fsys, sink)

	// The snapshot precedes every artifact write; taken later it would
	// classify this build's own outputs as stale.
	prior, err := reconciler.Snapshot(outputRoot)
	if err != nil {
		return nil, err
	}

	runner := transpile.NewRunner(b.fsys, b.transpiler, sink)
	moduleArtifacts, err := runner.Run(ctx, modules, bctx, outputRoot)
	if err != nil {
		return nil, fmt.Errorf("transpile modules: %w", err)
	}
	widgetArtifacts, err := runner.Run(ctx, widgets, bctx, outputRoot)
	if err != nil {
		return nil, fmt.Errorf("transpile widgets: %w", err)
	}

	produced := make(map[string]struct{}, len(moduleArtifacts)+len(widgetArtifacts))
	for _, a := range moduleArtifacts {
		produced[a.OutputPath] = struct{}{}
	}
	for _, a := range widgetArtifacts {
		produced[a.OutputPath] = struct{}{}
	}
	if err := reconciler.Sweep(prior, produced); err != nil {
		return nil, err
	}

	if err := b.generator.Generate(ctx, destRoot, b.manifestData(cfg, bctx, widgetArtifacts)); err != nil {
		return nil, fmt.Errorf("generate manifest: %w", err)
	}

	sink.Log(buildlog.Entry{
		Severity: buildlog.SeverityInfo,
		Message: fmt.Sprintf("build complete: %d modules, %d widgets, %d assets",
			len(moduleArtifacts), len(widgetArtifacts), len(assetMap)),
	})

	return &Result{Logs: collector.Entries()}, nil
}

func (b *Builder) newPublisher(cfg *config.Config) (store.Publisher, error) {
	switch cfg.Store {
	case config.StoreS3:
		return s3.New(b.fsys, cfg.S3)
	default:
		return ipfs.New(b.fsys, cfg.IPFS.UploadAPI, cfg.IPFS.UploadAPIHeaders), nil
	}
}

func (b *Builder) manifestData(cfg *config.Config, bctx *transpile.Context, widgetArtifacts []transpile.Artifact) *manifest.Data {
	assetURLs := make(map[string]string, len(bctx.Assets))
	for rel, cid := range bctx.Assets {
		assetURLs[rel] = fmt.Sprintf("%s/%s", trimSlash(bctx.Gateway), cid)
	}
	widgetNames := make([]string, len(widgetArtifacts))
	for i, a := range widgetArtifacts {
		widgetNames[i] = filepath.Base(a.OutputPath)
	}
	return &manifest.Data{
		Environment:   cfg.Environment,
		DeployAccount: cfg.Accounts.Deploy,
		Modules:       bctx.ModuleNames,
		Widgets:       widgetNames,
		Assets:        assetURLs,
		Aliases:       map[string]string(bctx.Aliases),
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
