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

package tstrip

import (
	"embed"
	"fmt"
	"path"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*.scm
var queryFiles embed.FS

// language is the TSX grammar, a superset covering JS, JSX and TS sources.
// Angle-bracket casts (`<T>expr`) are not representable under it; sources
// must use `as` casts, which is the documented constraint of this
// transpiler.
var language = ts.NewLanguage(tsTypescript.LanguageTSX())

// parserPool reuses parsers across transpile calls.
var parserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(language); err != nil {
			panic("failed to set TSX language: " + err.Error())
		}
		return parser
	},
}

func getParser() *ts.Parser {
	return parserPool.Get().(*ts.Parser)
}

func putParser(p *ts.Parser) {
	p.Reset()
	parserPool.Put(p)
}

// queries holds the compiled query set, loaded once.
var (
	queries     map[string]*ts.Query
	queriesOnce sync.Once
	queriesErr  error
)

func loadQueries() (map[string]*ts.Query, error) {
	queriesOnce.Do(func() {
		loaded := make(map[string]*ts.Query)
		for _, name := range []string{"erase", "rewrite"} {
			queryPath := path.Join("queries", name+".scm")
			data, err := queryFiles.ReadFile(queryPath)
			if err != nil {
				queriesErr = fmt.Errorf("failed to read query %s: %w", queryPath, err)
				return
			}
			query, qerr := ts.NewQuery(language, string(data))
			if qerr != nil {
				queriesErr = fmt.Errorf("failed to parse query %s: %w", name, qerr)
				return
			}
			loaded[name] = query
		}
		queries = loaded
	})
	return queries, queriesErr
}

func getQuery(name string) (*ts.Query, error) {
	qs, err := loadQueries()
	if err != nil {
		return nil, err
	}
	q, ok := qs[name]
	if !ok {
		return nil, fmt.Errorf("query not found: %s", name)
	}
	return q, nil
}
