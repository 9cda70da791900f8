// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/cortex/pkg/cascade"
)

// definitionKindRank orders CASCADE matches by how likely they are to
// be "the" definition a caller means: a concrete definition beats a
// forward declaration or import alias.
var definitionKindRank = map[string]int{
	"Function": 0, "Method": 0, "Constructor": 0,
	"Class": 1, "Struct": 1, "Interface": 1, "Trait": 1, "Enum": 1,
	"Constant": 2, "Variable": 2, "Field": 2, "Property": 2,
	"Import": 9, "Parameter": 9,
}

// Goto runs spec §4.9's goto operation: CASCADE resolution at the
// fast_goto threshold, then a priority ordering by definition-kind,
// then proximity to the caller's context (same file, then nearest
// line).
func (e *Engine) Goto(ctx context.Context, workspaceID, symbol, contextFile string, lineNumber int) (Response, error) {
	matches, err := e.cascade.Resolve(ctx, workspaceID, symbol, cascade.ThresholdFastGoto)
	if err != nil {
		return Response{}, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		pi, pj := gotoPriority(matches[i], contextFile, lineNumber), gotoPriority(matches[j], contextFile, lineNumber)
		return pi.less(pj)
	})

	records := make([]SymbolRecord, len(matches))
	for i, m := range matches {
		records[i] = e.toRecord(m.Symbol, m.Provenance, m.Score)
	}

	summary := fmt.Sprintf("%d definition(s) found for %q", len(records), symbol)
	note := ""
	if len(records) == 0 {
		summary = fmt.Sprintf("no definition found for %q", symbol)
		if suggestions, serr := e.cascade.Suggest(ctx, workspaceID, symbol, 5); serr == nil && len(suggestions) > 0 {
			note = "Did you mean: " + strings.Join(suggestions, ", ") + "?"
		}
	}

	return Response{
		Summary:     summary,
		Payload:     records,
		Note:        note,
		NextActions: []string{"refs", "trace"},
		Total:       len(records),
		Returned:    len(records),
	}, nil
}

type gotoRank struct {
	kindRank   int
	sameFile   int // 0 if same file, 1 otherwise
	lineDelta  int
	provenance int
}

func (a gotoRank) less(b gotoRank) bool {
	if a.kindRank != b.kindRank {
		return a.kindRank < b.kindRank
	}
	if a.sameFile != b.sameFile {
		return a.sameFile < b.sameFile
	}
	if a.lineDelta != b.lineDelta {
		return a.lineDelta < b.lineDelta
	}
	return a.provenance < b.provenance
}

func gotoPriority(m cascade.Match, contextFile string, lineNumber int) gotoRank {
	kindRank, ok := definitionKindRank[string(m.Symbol.Kind)]
	if !ok {
		kindRank = 5
	}
	sameFile := 1
	if contextFile != "" && m.Symbol.FilePath == contextFile {
		sameFile = 0
	}
	lineDelta := 0
	if lineNumber > 0 {
		lineDelta = abs(m.Symbol.StartLine - lineNumber)
	}
	provRank := 2
	switch m.Provenance {
	case cascade.ProvenanceDirect:
		provRank = 0
	case cascade.ProvenanceNamingVariant:
		provRank = 1
	}
	return gotoRank{kindRank: kindRank, sameFile: sameFile, lineDelta: lineDelta, provenance: provRank}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
