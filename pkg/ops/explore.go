// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/store"
)

// ExploreMode selects one of explore's three independent strategies.
type ExploreMode string

const (
	ExploreModeLogic        ExploreMode = "logic"
	ExploreModeSimilar      ExploreMode = "similar"
	ExploreModeDependencies ExploreMode = "dependencies"
)

// Explore runs spec §4.9's explore operation. mode=logic reuses
// find_logic's 5-tier pipeline; mode=similar runs a pure semantic
// neighbor search that embeds an existing symbol's name, signature and
// doc text as the query; mode=dependencies
// runs a one-level batched BFS over a symbol's outbound relationships.
func (e *Engine) Explore(ctx context.Context, workspaceID string, mode ExploreMode, query, symbol string, limit int) (Response, error) {
	switch mode {
	case ExploreModeLogic:
		return e.FindLogic(ctx, workspaceID, query, limit, cascade.ThresholdBusinessLogicFind)
	case ExploreModeSimilar:
		return e.exploreSimilar(ctx, workspaceID, symbol, limit)
	case ExploreModeDependencies:
		return e.exploreDependencies(ctx, workspaceID, symbol, limit)
	default:
		return Response{}, fmt.Errorf("explore: unknown mode %q", mode)
	}
}

func (e *Engine) exploreSimilar(ctx context.Context, workspaceID, symbol string, limit int) (Response, error) {
	limit = clampLimit(limit, 10, 100)
	defs, err := e.cascade.Resolve(ctx, workspaceID, symbol, cascade.ThresholdFastGoto)
	if err != nil {
		return Response{}, err
	}
	if len(defs) == 0 {
		return Response{Summary: fmt.Sprintf("no definition found for %q", symbol), Payload: []SymbolRecord{}}, nil
	}
	if e.semantic == nil {
		return Response{Summary: "similarity discovery requires an embedding model; this workspace runs in mock mode", Payload: []SymbolRecord{}}, nil
	}

	target := defs[0].Symbol
	hits, err := e.semantic.Search(ctx, workspaceID, target.QualifiedName+" "+target.Signature+" "+target.Doc, limit+1, cascade.ThresholdSimilarityDiscovery)
	if err != nil {
		return Response{}, err
	}

	records := make([]SymbolRecord, 0, len(hits))
	for _, h := range hits {
		if h.SymbolID == target.ID {
			continue
		}
		sym, serr := e.st.SymbolByID(ctx, h.SymbolID)
		if serr != nil {
			continue
		}
		records = append(records, e.toRecord(sym, cascade.ProvenanceSemantic, h.Score))
		if len(records) >= limit {
			break
		}
	}

	return Response{
		Summary:     fmt.Sprintf("%d symbol(s) similar to %q", len(records), symbol),
		Payload:     records,
		NextActions: []string{"goto", "refs"},
		Total:       len(records),
		Returned:    len(records),
	}, nil
}

func (e *Engine) exploreDependencies(ctx context.Context, workspaceID, symbol string, limit int) (Response, error) {
	limit = clampLimit(limit, 50, 500)
	defs, err := e.cascade.Resolve(ctx, workspaceID, symbol, cascade.ThresholdFastGoto)
	if err != nil {
		return Response{}, err
	}
	if len(defs) == 0 {
		return Response{Summary: fmt.Sprintf("no definition found for %q", symbol), Payload: []SymbolRecord{}}, nil
	}

	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.Symbol.ID
	}
	rels, err := e.st.RelationshipsFromBatch(ctx, ids, []store.RelKind{store.RelCalls, store.RelUses, store.RelImports, store.RelExtends, store.RelImplements})
	if err != nil {
		return Response{}, err
	}

	total := len(rels)
	truncated := total > limit
	if truncated {
		rels = rels[:limit]
	}

	records := make([]SymbolRecord, 0, len(rels))
	for _, rel := range rels {
		if rel.ToSymbolID == "" {
			continue
		}
		sym, serr := e.st.SymbolByID(ctx, rel.ToSymbolID)
		if serr != nil {
			continue
		}
		records = append(records, e.toRecord(sym, cascade.ProvenanceDirect, 0))
	}

	return Response{
		Summary:     fmt.Sprintf("%d dependenc(ies) for %q", total, symbol),
		Payload:     records,
		NextActions: []string{"trace", "goto"},
		Truncated:   truncated,
		Total:       total,
		Returned:    len(records),
	}, nil
}
