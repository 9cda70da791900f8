// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package traverse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/store"
)

func openTraverseTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestTraceFollowsDirectCallsDownstream(t *testing.T) {
	ctx := context.Background()
	st := openTraverseTestStore(t)
	const ws = "ws1"

	a := store.SymbolID(ws, "a.go", store.KindFunction, "Handler", 0)
	b := store.SymbolID(ws, "b.go", store.KindFunction, "Process", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: a, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "Handler"}}, nil, nil, nil))
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "b.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: b, WorkspaceID: ws, FilePath: "b.go", Kind: store.KindFunction, Name: "Process"}}, nil, nil, nil))
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r1", WorkspaceID: ws, FromSymbolID: a, ToSymbolID: b, Kind: store.RelCalls, FilePath: "a.go",
	}))

	eng := NewEngine(st, cascade.NewEngine(st, nil))
	roots, err := eng.Trace(ctx, ws, "Handler", DirectionDownstream, 3)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "Process", roots[0].Children[0].Symbol.Name)
	assert.Equal(t, cascade.ProvenanceDirect, roots[0].Children[0].Provenance)
	assert.Equal(t, store.RelCalls, roots[0].Children[0].RelationKind)
}

func TestTraceFollowsUpstreamCallers(t *testing.T) {
	ctx := context.Background()
	st := openTraverseTestStore(t)
	const ws = "ws1"

	a := store.SymbolID(ws, "a.go", store.KindFunction, "Handler", 0)
	b := store.SymbolID(ws, "b.go", store.KindFunction, "Process", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: a, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "Handler"}}, nil, nil, nil))
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "b.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: b, WorkspaceID: ws, FilePath: "b.go", Kind: store.KindFunction, Name: "Process"}}, nil, nil, nil))
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r1", WorkspaceID: ws, FromSymbolID: a, ToSymbolID: b, Kind: store.RelCalls, FilePath: "a.go",
	}))

	eng := NewEngine(st, cascade.NewEngine(st, nil))
	roots, err := eng.Trace(ctx, ws, "Process", DirectionUpstream, 3)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "Handler", roots[0].Children[0].Symbol.Name)
}

func TestTraceStopsAtMaxDepth(t *testing.T) {
	ctx := context.Background()
	st := openTraverseTestStore(t)
	const ws = "ws1"

	a := store.SymbolID(ws, "a.go", store.KindFunction, "A", 0)
	b := store.SymbolID(ws, "b.go", store.KindFunction, "B", 0)
	c := store.SymbolID(ws, "c.go", store.KindFunction, "C", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: a, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "A"}}, nil, nil, nil))
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "b.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: b, WorkspaceID: ws, FilePath: "b.go", Kind: store.KindFunction, Name: "B"}}, nil, nil, nil))
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "c.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: c, WorkspaceID: ws, FilePath: "c.go", Kind: store.KindFunction, Name: "C"}}, nil, nil, nil))
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r1", WorkspaceID: ws, FromSymbolID: a, ToSymbolID: b, Kind: store.RelCalls, FilePath: "a.go",
	}))
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r2", WorkspaceID: ws, FromSymbolID: b, ToSymbolID: c, Kind: store.RelCalls, FilePath: "b.go",
	}))

	eng := NewEngine(st, cascade.NewEngine(st, nil))
	roots, err := eng.Trace(ctx, ws, "A", DirectionDownstream, 1)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1, "depth 1 reaches B")
	assert.Empty(t, roots[0].Children[0].Children, "depth budget exhausted before reaching C")
}

func TestTraceClampsMaxDepthTo10(t *testing.T) {
	ctx := context.Background()
	st := openTraverseTestStore(t)
	const ws = "ws1"
	a := store.SymbolID(ws, "a.go", store.KindFunction, "A", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: a, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "A"}}, nil, nil, nil))

	eng := NewEngine(st, cascade.NewEngine(st, nil))
	roots, err := eng.Trace(ctx, ws, "A", DirectionDownstream, 999)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, 0, roots[0].Depth)
}
