// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"fmt"

	"github.com/kraklabs/cortex/pkg/store"
	"github.com/kraklabs/cortex/pkg/traverse"
)

// TraceNode is the wire-format tree node trace returns: a symbol
// record plus the traversal metadata spec §4.8 requires (depth, match
// type, relationship kind, similarity score, children).
type TraceNode struct {
	SymbolRecord
	Depth        int         `json:"depth"`
	RelationKind store.RelKind `json:"relation_kind,omitempty"`
	Children     []TraceNode `json:"children,omitempty"`
}

// Trace runs spec §4.9's trace operation: a depth-limited, batched BFS
// over Calls/References/Uses relationships, bridged across naming
// variants and semantic matches at the call-path threshold.
func (e *Engine) Trace(ctx context.Context, workspaceID, symbol string, direction traverse.Direction, maxDepth int) (Response, error) {
	roots, err := e.traverse.Trace(ctx, workspaceID, symbol, direction, maxDepth)
	if err != nil {
		return Response{}, err
	}

	trees := make([]TraceNode, len(roots))
	total := 0
	for i, r := range roots {
		trees[i] = e.toTraceNode(r, &total)
	}

	summary := fmt.Sprintf("trace from %q: %d node(s) across %d root(s)", symbol, total, len(roots))
	if len(roots) == 0 {
		summary = fmt.Sprintf("no symbol resolved for %q", symbol)
	}

	return Response{
		Summary:     summary,
		Payload:     trees,
		NextActions: []string{"goto", "refs"},
		Total:       total,
		Returned:    total,
	}, nil
}

func (e *Engine) toTraceNode(n *traverse.Node, total *int) TraceNode {
	*total++
	children := make([]TraceNode, len(n.Children))
	for i, c := range n.Children {
		children[i] = e.toTraceNode(c, total)
	}
	return TraceNode{
		SymbolRecord: e.toRecord(n.Symbol, n.Provenance, n.Score),
		Depth:        n.Depth,
		RelationKind: n.RelationKind,
		Children:     children,
	}
}
