// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/extract"
)

// History runs the teacher-inspired commit-history/blame/introduction
// lookup for one symbol: resolve the name to a definition, then ask
// git for its line-range log, aggregated blame, and (when snippet is
// non-empty) the commit that first introduced snippet in that file.
// root must be the workspace's filesystem root; when root isn't inside
// a git checkout the response degrades to a note rather than an error,
// since history is an optional enrichment, not a required operation.
func (e *Engine) History(ctx context.Context, workspaceID, root, symbol, snippet string, commitLimit int) (Response, error) {
	matches, err := e.cascade.Resolve(ctx, workspaceID, symbol, cascade.ThresholdFastGoto)
	if err != nil {
		return Response{}, err
	}
	if len(matches) == 0 {
		return Response{Summary: fmt.Sprintf("no definition found for %q", symbol), Payload: []SymbolRecord{}}, nil
	}

	g, err := extract.NewGit(ctx, root)
	if err != nil {
		return Response{}, err
	}
	if g == nil {
		record := e.toRecord(matches[0].Symbol, matches[0].Provenance, matches[0].Score)
		return Response{
			Summary:  fmt.Sprintf("history unavailable for %q", symbol),
			Payload:  []SymbolRecord{record},
			Note:     "workspace root is not a git checkout; no commit history is available",
			Total:    1,
			Returned: 1,
		}, nil
	}

	records := make([]SymbolRecord, 0, len(matches))
	for _, m := range matches {
		record := e.toRecord(m.Symbol, m.Provenance, m.Score)

		commits, fellBack, err := extract.History(ctx, g, m.Symbol.FilePath, m.Symbol.StartLine, m.Symbol.EndLine, commitLimit)
		if err != nil {
			records = append(records, record)
			continue
		}
		authors, err := extract.Blame(ctx, g, m.Symbol.FilePath, m.Symbol.StartLine, m.Symbol.EndLine)
		if err != nil {
			authors = nil
		}

		h := &History{Commits: commits, FellBackToFile: fellBack, Authors: authors}
		if snippet != "" {
			if intro, err := extract.FindIntroduction(ctx, g, snippet, m.Symbol.FilePath); err == nil {
				h.IntroducedBy = intro
			}
		}
		record.History = h
		records = append(records, record)
	}

	return Response{
		Summary:     fmt.Sprintf("history for %d definition(s) of %q", len(records), symbol),
		Payload:     records,
		NextActions: []string{"goto", "refs"},
		Total:       len(records),
		Returned:    len(records),
	}, nil
}
