// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cascade

import (
	"context"

	"github.com/kraklabs/cortex/pkg/store"
)

// Provenance records which CASCADE stage produced a match, so every
// caller-facing result can say how confident a navigation hop is
// without re-deriving it.
type Provenance string

const (
	ProvenanceDirect        Provenance = "Direct"
	ProvenanceNamingVariant Provenance = "NamingVariant"
	ProvenanceSemantic      Provenance = "Semantic"
)

// Per-caller similarity floors. Each navigation operation in pkg/ops
// cascades through exact -> naming-variant -> semantic and stops as
// soon as a stage yields matches at or above its own threshold — a
// precise jump (fast_goto) tolerates less semantic drift than an
// exploratory one (business-logic discovery).
const (
	ThresholdFastGoto            = 0.70
	ThresholdFastRefs            = 0.75
	ThresholdCallPath            = 0.70
	ThresholdSimilarityDiscovery = 0.80
	ThresholdBusinessLogicFind   = 0.20
)

// Match is one CASCADE result: the symbol plus how it was found.
type Match struct {
	Symbol     store.Symbol
	Provenance Provenance
	Score      float64
}

// SemanticHit is one nearest-neighbor hit from the vector index.
type SemanticHit struct {
	SymbolID string
	Score    float64
}

// SemanticSearcher is the subset of pkg/semantic's API the cascade
// needs. Declaring it here instead of importing pkg/semantic directly
// keeps pkg/cascade usable (and testable) without a live embedding
// model or HNSW index wired up.
type SemanticSearcher interface {
	Search(ctx context.Context, workspaceID, text string, k int, minSimilarity float64) ([]SemanticHit, error)
}

// Engine runs the three-stage CASCADE query over one workspace's store.
type Engine struct {
	st       *store.Store
	semantic SemanticSearcher
}

// NewEngine builds a cascade engine. semantic may be nil — the
// semantic stage is then skipped, leaving exact/naming-variant lookups
// for workspaces with no embedding model configured (spec's embedding
// engine is optional per workspace).
func NewEngine(st *store.Store, semantic SemanticSearcher) *Engine {
	return &Engine{st: st, semantic: semantic}
}

// Resolve runs the cascade for name: exact match first, then naming
// variants, then (if a semantic searcher is configured and minScore
// still hasn't been met) a vector search over name itself treated as a
// query string. It returns as soon as a stage produces at least one
// match — callers needing every stage's candidates regardless should
// call the individual stage methods directly.
func (e *Engine) Resolve(ctx context.Context, workspaceID, name string, minScore float64) ([]Match, error) {
	exact, err := e.st.SymbolByExactName(ctx, workspaceID, name, true)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return tagMatches(exact, ProvenanceDirect, 1.0), nil
	}

	caseInsensitive, err := e.st.SymbolByExactName(ctx, workspaceID, name, false)
	if err != nil {
		return nil, err
	}
	if len(caseInsensitive) > 0 {
		return tagMatches(caseInsensitive, ProvenanceDirect, 0.95), nil
	}

	var variantMatches []Match
	for _, variant := range Variants(name) {
		syms, err := e.st.SymbolByExactName(ctx, workspaceID, variant, true)
		if err != nil {
			return nil, err
		}
		variantMatches = append(variantMatches, tagMatches(syms, ProvenanceNamingVariant, 0.85)...)
	}
	if len(variantMatches) > 0 {
		return variantMatches, nil
	}

	if e.semantic == nil {
		return nil, nil
	}
	hits, err := e.semantic.Search(ctx, workspaceID, name, 10, minScore)
	if err != nil {
		return nil, err
	}
	var semanticMatches []Match
	for _, h := range hits {
		sym, err := e.st.SymbolByID(ctx, h.SymbolID)
		if err != nil {
			continue
		}
		semanticMatches = append(semanticMatches, Match{Symbol: sym, Provenance: ProvenanceSemantic, Score: h.Score})
	}
	return semanticMatches, nil
}

// Suggest ranks candidate symbol names by edit distance to name,
// closest first, for a "did you mean?" fallback when Resolve comes
// back empty — the teacher's `findFunctionSuggestions` does the same
// job with a substring-match store query; this does it with
// Levenshtein distance over the workspace's known names instead, since
// this store has no regex-match query to reuse.
func (e *Engine) Suggest(ctx context.Context, workspaceID, name string, limit int) ([]string, error) {
	candidates, err := e.st.DistinctSymbolNames(ctx, workspaceID, 0)
	if err != nil {
		return nil, err
	}
	return RankSuggestions(name, candidates, limit), nil
}

func tagMatches(syms []store.Symbol, p Provenance, score float64) []Match {
	out := make([]Match, len(syms))
	for i, s := range syms {
		out[i] = Match{Symbol: s, Provenance: p, Score: score}
	}
	return out
}
