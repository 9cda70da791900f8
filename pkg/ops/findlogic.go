// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"

	"github.com/kraklabs/cortex/pkg/cascade"
)

// FindLogic runs spec §4.9's find_logic operation: the same 5-tier
// scoring pipeline explore(mode=logic) uses, exposed as its own
// top-level operation for callers that just want "where does the
// system implement X" without exploration's other modes.
func (e *Engine) FindLogic(ctx context.Context, workspaceID, domain string, maxResults int, minScore float64) (Response, error) {
	if minScore <= 0 {
		minScore = cascade.ThresholdBusinessLogicFind
	}
	maxResults = clampLimit(maxResults, 20, candidateCap)

	candidates, err := e.scoreDomainCandidates(ctx, workspaceID, domain, minScore)
	if err != nil {
		return Response{}, err
	}

	total := len(candidates)
	truncated := total > maxResults
	if truncated {
		candidates = candidates[:maxResults]
	}

	records := make([]SymbolRecord, len(candidates))
	for i, c := range candidates {
		records[i] = e.toRecord(c.symbol, c.provenance, c.score)
	}

	return Response{
		Summary:     fmt.Sprintf("%d candidate(s) implementing %q", total, domain),
		Payload:     records,
		NextActions: []string{"goto", "trace", "explore"},
		Truncated:   truncated,
		Total:       total,
		Returned:    len(records),
	}, nil
}
