// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/search"
)

// SearchMode selects which layer Search consults.
type SearchMode string

const (
	SearchModeText     SearchMode = "text"
	SearchModeSemantic SearchMode = "semantic"
	SearchModeHybrid   SearchMode = "hybrid"
)

// thresholdHybridSemantic is spec §9's resolution of the otherwise
// unspecified hybrid-mode semantic floor.
const thresholdHybridSemantic = 0.5

// Search runs spec §4.9's search operation: lexical FTS5 cascade for
// "text", vector search for "semantic", and both for "hybrid" — with an
// automatic semantic fallback whenever a text-only query returns nothing.
// Hybrid results are the text results followed by the semantic results;
// they are not re-ranked against each other or de-duplicated.
func (e *Engine) Search(ctx context.Context, workspaceID, query string, mode SearchMode, limit int) (Response, error) {
	limit = clampLimit(limit, 20, 200)
	if mode == "" {
		mode = SearchModeText
	}

	var textResults []search.Result
	var err error
	if mode == SearchModeText || mode == SearchModeHybrid {
		textResults, err = search.Search(ctx, e.st, workspaceID, query, limit)
		if err != nil && cerrors.KindOf(err) != cerrors.Timeout {
			return Response{}, err
		}
	}

	records := make([]SymbolRecord, 0, len(textResults))
	for _, r := range textResults {
		records = append(records, e.toRecord(r.Symbol, cascade.ProvenanceDirect, 0))
	}

	note := ""
	usedSemanticFallback := mode == SearchModeText && len(records) == 0
	if mode == SearchModeSemantic || mode == SearchModeHybrid || usedSemanticFallback {
		minScore := thresholdHybridSemantic
		if mode == SearchModeSemantic {
			minScore = thresholdHybridSemantic
		}
		semRecords, serr := e.semanticSearch(ctx, workspaceID, query, limit, minScore)
		if serr != nil {
			if mode == SearchModeText {
				// Semantic is a best-effort fallback here; don't fail
				// an otherwise-successful (if empty) text search.
				e.logger.Warn("semantic fallback search failed", "err", serr)
			} else {
				return Response{}, serr
			}
		}
		if usedSemanticFallback && len(semRecords) > 0 {
			note = "Text search returned 0 results; showing semantic matches instead."
		}
		records = append(records, semRecords...)
	}

	truncated := len(records) > limit
	if truncated {
		records = records[:limit]
	}

	return Response{
		Summary:     fmt.Sprintf("%d result(s) for %q", len(records), query),
		Payload:     records,
		Note:        note,
		NextActions: []string{"goto", "refs", "explore"},
		Truncated:   truncated,
		Total:       len(records),
		Returned:    len(records),
	}, nil
}

func (e *Engine) semanticSearch(ctx context.Context, workspaceID, query string, limit int, minScore float64) ([]SymbolRecord, error) {
	if e.semantic == nil {
		return nil, nil
	}
	hits, err := e.semantic.Search(ctx, workspaceID, query, limit, minScore)
	if err != nil {
		return nil, err
	}
	out := make([]SymbolRecord, 0, len(hits))
	for _, h := range hits {
		sym, serr := e.st.SymbolByID(ctx, h.SymbolID)
		if serr != nil {
			continue
		}
		out = append(out, e.toRecord(sym, cascade.ProvenanceSemantic, h.Score))
	}
	return out, nil
}
