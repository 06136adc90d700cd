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
	"github.com/kilnware/kiln/alias"
	"github.com/kilnware/kiln/assets"
	"github.com/kilnware/kiln/catalog"
	"github.com/kilnware/kiln/config"
)

// Context is the read-only parameter bundle shared by every transpile call
// in one build. It is assembled once, passed by reference, and never
// mutated after NewContext returns.
type Context struct {
	// Config is the resolved environment configuration.
	Config *config.Config

	// ModuleNames lists the logical names of the build's modules
	// (module-root-relative paths, extension stripped) in catalog order.
	ModuleNames []string

	// Assets maps asset-relative paths to their content identifiers.
	Assets assets.Map

	// Gateway is the content gateway base URL.
	Gateway string

	// Aliases maps bare specifiers to their targets.
	Aliases alias.Table
}

// NewContext builds the shared context. It is a pure function of its
// inputs: config, the module catalog, the asset map, and the alias table.
func NewContext(cfg *config.Config, modules []catalog.Unit, assetMap assets.Map, aliases alias.Table) *Context {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.Name()
	}
	return &Context{
		Config:      cfg,
		ModuleNames: names,
		Assets:      assetMap,
		Gateway:     cfg.Gateway(),
		Aliases:     aliases,
	}
}

// HasModule reports whether name is one of the build's module names.
func (c *Context) HasModule(name string) bool {
	for _, n := range c.ModuleNames {
		if n == name {
			return true
		}
	}
	return false
}
