// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"log/slog"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/extract"
	"github.com/kraklabs/cortex/pkg/store"
	"github.com/kraklabs/cortex/pkg/traverse"
)

// Engine is the single entry point for every exposed operation over
// one workspace: pkg/workspace's Workspace.Ops builds one per opened
// Workspace.
type Engine struct {
	st       *store.Store
	cascade  *cascade.Engine
	traverse *traverse.Engine
	semantic cascade.SemanticSearcher // nil for mock-mode workspaces
	manager  *extract.Manager
	logger   *slog.Logger
}

// NewEngine builds an operations engine. semantic may be nil (a
// mock-mode workspace); the semantic-only code paths below degrade to
// their text/naming-variant results plus a user-visible note.
func NewEngine(st *store.Store, cas *cascade.Engine, trav *traverse.Engine, semantic cascade.SemanticSearcher, manager *extract.Manager, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{st: st, cascade: cas, traverse: trav, semantic: semantic, manager: manager, logger: logger}
}

// languageFor resolves a file's language from its extension via the
// registered extractor, avoiding a database round trip per record.
func (e *Engine) languageFor(path string) string {
	if e.manager == nil {
		return ""
	}
	if ex, ok := e.manager.ForPath(path); ok {
		return ex.Language()
	}
	return ""
}

func (e *Engine) toRecord(sym store.Symbol, provenance cascade.Provenance, similarity float64) SymbolRecord {
	return ToRecord(sym, e.languageFor(sym.FilePath), provenance, similarity)
}

// clampLimit applies a sane default/ceiling so a caller-supplied limit
// of 0 or a very large number never turns an operation into an
// unbounded table scan.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
