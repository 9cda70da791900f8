// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/cortex/pkg/cascade"
)

// Refs runs spec §4.9's refs operation: CASCADE resolves the
// definition(s) at the stricter fast_refs threshold (false positives
// here break refactors), then a single batched query finds every
// relationship pointing at any of them.
func (e *Engine) Refs(ctx context.Context, workspaceID, symbol string, includeDefinition bool, limit int) (Response, error) {
	limit = clampLimit(limit, 50, 500)

	defs, err := e.cascade.Resolve(ctx, workspaceID, symbol, cascade.ThresholdFastRefs)
	if err != nil {
		return Response{}, err
	}
	if len(defs) == 0 {
		note := ""
		if suggestions, serr := e.cascade.Suggest(ctx, workspaceID, symbol, 5); serr == nil && len(suggestions) > 0 {
			note = "Did you mean: " + strings.Join(suggestions, ", ") + "?"
		}
		return Response{
			Summary:  fmt.Sprintf("no definition found for %q", symbol),
			Payload:  []SymbolRecord{},
			Note:     note,
			Total:    0,
			Returned: 0,
		}, nil
	}

	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.Symbol.ID
	}

	rels, err := e.st.RelationshipsToBatch(ctx, ids, nil)
	if err != nil {
		return Response{}, err
	}

	records := make([]SymbolRecord, 0, len(rels)+len(defs))
	if includeDefinition {
		for _, d := range defs {
			records = append(records, e.toRecord(d.Symbol, d.Provenance, d.Score))
		}
	}
	for _, rel := range rels {
		sym, serr := e.st.SymbolByID(ctx, rel.FromSymbolID)
		if serr != nil {
			continue
		}
		records = append(records, e.toRecord(sym, cascade.ProvenanceDirect, 0))
	}

	truncated := len(records) > limit
	if truncated {
		records = records[:limit]
	}

	return Response{
		Summary:     fmt.Sprintf("%d reference(s) to %q", len(rels), symbol),
		Payload:     records,
		NextActions: []string{"goto", "trace"},
		Truncated:   truncated,
		Total:       len(rels) + boolToInt(includeDefinition)*len(defs),
		Returned:    len(records),
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
