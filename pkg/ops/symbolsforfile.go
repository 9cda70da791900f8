// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"

	"github.com/kraklabs/cortex/pkg/cascade"
)

// SymbolsForFile runs spec §4.9's symbols_for_file operation: a direct
// (§4.2) lookup of every symbol extracted from path, optionally
// narrowed to one target symbol's immediate neighborhood.
func (e *Engine) SymbolsForFile(ctx context.Context, workspaceID, path string, limit int, target string) (Response, error) {
	limit = clampLimit(limit, 100, 1000)

	syms, err := e.st.SymbolsForFile(ctx, workspaceID, path)
	if err != nil {
		return Response{}, err
	}

	if target != "" {
		filtered := syms[:0]
		for _, s := range syms {
			if s.Name == target || s.ParentID == target || s.ID == target {
				filtered = append(filtered, s)
			}
		}
		syms = filtered
	}

	total := len(syms)
	truncated := total > limit
	if truncated {
		syms = syms[:limit]
	}

	records := make([]SymbolRecord, len(syms))
	for i, s := range syms {
		records[i] = e.toRecord(s, cascade.ProvenanceDirect, 0)
	}

	return Response{
		Summary:     fmt.Sprintf("%d symbol(s) in %s", total, path),
		Payload:     records,
		NextActions: []string{"goto", "trace", "explore"},
		Truncated:   truncated,
		Total:       total,
		Returned:    len(records),
	}, nil
}
