// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package traverse implements the cross-language traversal engine
// (spec §4.8): a depth-limited, batched BFS over symbol relationships
// that augments direct edges with CASCADE naming-variant and semantic
// bridges, halving the remaining depth budget whenever a bridge
// crosses a language boundary.
package traverse

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/store"
)

// Direction selects which side of a relationship BFS walks: upstream
// follows edges backward (who calls/references/uses this symbol),
// downstream follows them forward (what this symbol calls/references/
// uses).
type Direction string

const (
	DirectionUpstream   Direction = "upstream"
	DirectionDownstream Direction = "downstream"
	DirectionBoth       Direction = "both"
)

// maxDepthClamp is spec §4.8's hard cap on max_depth regardless of
// what the caller asks for.
const maxDepthClamp = 10

// traversalRelKinds are the edge kinds BFS follows; structural edges
// like Extends/Implements/Parameter describe shape, not control or
// data flow, so they're excluded from the call/reference/use graph.
var traversalRelKinds = []store.RelKind{store.RelCalls, store.RelReferences, store.RelUses}

// Node is one tree node in a trace result.
type Node struct {
	Symbol       store.Symbol
	Depth        int
	Provenance   cascade.Provenance
	RelationKind store.RelKind
	Score        float64
	Children     []*Node
}

// visitedKey matches spec §4.8's cycle guard: (file_path, start_line, name).
type visitedKey struct {
	filePath  string
	startLine int
	name      string
}

func keyFor(sym store.Symbol) visitedKey {
	return visitedKey{filePath: sym.FilePath, startLine: sym.StartLine, name: sym.Name}
}

// Engine runs cross-language traversal over one workspace's store,
// using a cascade.Engine to resolve both the starting symbol and the
// naming-variant/semantic bridges at each depth.
type Engine struct {
	st  *store.Store
	cas *cascade.Engine
}

// NewEngine builds a traversal engine.
func NewEngine(st *store.Store, cas *cascade.Engine) *Engine {
	return &Engine{st: st, cas: cas}
}

// frontierItem is one pending BFS expansion: the symbol to expand from,
// its tree node (to attach children to), and its remaining depth budget.
type frontierItem struct {
	symbol       store.Symbol
	node         *Node
	remainingDepth int
}

// Trace walks from startName in direction, returning the root node(s)
// of the resulting tree(s) — one per CASCADE match for the starting
// name, since CASCADE can resolve to more than one candidate symbol.
func (e *Engine) Trace(ctx context.Context, workspaceID, startName string, direction Direction, maxDepth int) ([]*Node, error) {
	if maxDepth <= 0 || maxDepth > maxDepthClamp {
		maxDepth = maxDepthClamp
	}

	matches, err := e.cas.Resolve(ctx, workspaceID, startName, cascade.ThresholdCallPath)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	visited := make(map[visitedKey]bool)
	var roots []*Node
	var frontier []frontierItem

	for _, m := range matches {
		if visited[keyFor(m.Symbol)] {
			continue
		}
		visited[keyFor(m.Symbol)] = true
		root := &Node{Symbol: m.Symbol, Depth: 0, Provenance: m.Provenance, Score: m.Score}
		roots = append(roots, root)
		frontier = append(frontier, frontierItem{symbol: m.Symbol, node: root, remainingDepth: maxDepth})
	}

	for len(frontier) > 0 {
		frontier, err = e.expandLevel(ctx, workspaceID, direction, visited, frontier)
		if err != nil {
			return nil, err
		}
	}

	return roots, nil
}

// expandLevel processes one BFS level: batches the relationship lookup
// for every pending symbol, augments with naming-variant/semantic
// bridges per spec §4.8 step 3, and returns the next level's frontier.
func (e *Engine) expandLevel(ctx context.Context, workspaceID string, direction Direction, visited map[visitedKey]bool, frontier []frontierItem) ([]frontierItem, error) {
	active := make([]frontierItem, 0, len(frontier))
	for _, item := range frontier {
		if item.remainingDepth > 0 {
			active = append(active, item)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}

	ids := make([]string, len(active))
	byID := make(map[string]frontierItem, len(active))
	for i, item := range active {
		ids[i] = item.symbol.ID
		byID[item.symbol.ID] = item
	}

	var rels []store.Relationship
	if direction == DirectionDownstream || direction == DirectionBoth {
		out, err := e.st.RelationshipsFromBatch(ctx, ids, traversalRelKinds)
		if err != nil {
			return nil, err
		}
		rels = append(rels, out...)
	}
	if direction == DirectionUpstream || direction == DirectionBoth {
		in, err := e.st.RelationshipsToBatch(ctx, ids, traversalRelKinds)
		if err != nil {
			return nil, err
		}
		rels = append(rels, in...)
	}

	var next []frontierItem
	for _, rel := range rels {
		// The known endpoint is whichever side is in this level's
		// frontier; the other side is the node to descend into. A
		// self-loop (both sides known) is skipped via the visited set.
		var parent frontierItem
		var targetID string
		if p, ok := byID[rel.FromSymbolID]; ok && (direction == DirectionDownstream || direction == DirectionBoth) {
			parent, targetID = p, rel.ToSymbolID
		} else if p, ok := byID[rel.ToSymbolID]; ok && (direction == DirectionUpstream || direction == DirectionBoth) {
			parent, targetID = p, rel.FromSymbolID
		} else {
			continue
		}
		if targetID == "" {
			continue // unresolved pending relationship, nothing to descend into
		}

		target, err := e.st.SymbolByID(ctx, targetID)
		if err != nil {
			continue
		}
		if visited[keyFor(target)] {
			continue
		}
		visited[keyFor(target)] = true

		child := &Node{
			Symbol: target, Depth: parent.node.Depth + 1,
			Provenance: cascade.ProvenanceDirect, RelationKind: rel.Kind, Score: 1.0,
		}
		parent.node.Children = append(parent.node.Children, child)
		next = append(next, frontierItem{symbol: target, node: child, remainingDepth: parent.remainingDepth - 1})
	}

	bridged, err := e.bridgeLevel(ctx, workspaceID, active, visited)
	if err != nil {
		return nil, err
	}
	next = append(next, bridged...)

	return next, nil
}

// bridgeLevel augments the current BFS level with CASCADE naming-
// variant and semantic neighbors for each active symbol's name,
// halving the remaining depth budget whenever the bridge target is in
// a different file-extension-inferred language than its parent (spec
// §4.8 step 5's cross-language depth limiting).
func (e *Engine) bridgeLevel(ctx context.Context, workspaceID string, active []frontierItem, visited map[visitedKey]bool) ([]frontierItem, error) {
	var next []frontierItem
	for _, item := range active {
		matches, err := e.cas.Resolve(ctx, workspaceID, item.symbol.Name, cascade.ThresholdCallPath)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.Provenance == cascade.ProvenanceDirect {
				continue // direct matches are the symbol itself or already covered by relationship edges
			}
			if visited[keyFor(m.Symbol)] {
				continue
			}
			visited[keyFor(m.Symbol)] = true

			remaining := item.remainingDepth - 1
			if languageOf(m.Symbol.FilePath) != languageOf(item.symbol.FilePath) {
				remaining = halve(remaining)
			}
			if remaining <= 0 {
				continue
			}

			child := &Node{
				Symbol: m.Symbol, Depth: item.node.Depth + 1,
				Provenance: m.Provenance, Score: m.Score,
			}
			item.node.Children = append(item.node.Children, child)
			next = append(next, frontierItem{symbol: m.Symbol, node: child, remainingDepth: remaining})
		}
	}
	return next, nil
}

// languageOf infers a coarse language bucket from a file extension —
// enough to tell whether a bridge crosses a language boundary without
// needing the full extractor's language registry.
func languageOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func halve(n int) int {
	if n <= 0 {
		return 0
	}
	h := n / 2
	if h < 1 {
		return 1
	}
	return h
}
