// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

func openResolverTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestResolverStitchesExactNameMatch(t *testing.T) {
	ctx := context.Background()
	st := openResolverTestStore(t)
	const ws = "ws1"

	callerID := store.SymbolID(ws, "caller.go", store.KindFunction, "DoWork", 0)
	pendingRel := store.Relationship{
		ID: store.RelationshipID(ws, callerID, "Helper", store.RelCalls, 10),
		WorkspaceID: ws, FromSymbolID: callerID, ToName: "Helper", Kind: store.RelCalls,
		Confidence: 0.9, FilePath: "caller.go", Line: 10,
	}
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "caller.go", Hash: "h1", Language: "go", Size: 1},
		[]store.Symbol{{ID: callerID, WorkspaceID: ws, FilePath: "caller.go", Kind: store.KindFunction, Name: "DoWork", Visibility: store.Public, ContentType: store.ContentCode}},
		[]store.Relationship{pendingRel}, nil, nil))

	calleeID := store.SymbolID(ws, "helper.go", store.KindFunction, "Helper", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "helper.go", Hash: "h2", Language: "go", Size: 1},
		[]store.Symbol{{ID: calleeID, WorkspaceID: ws, FilePath: "helper.go", Kind: store.KindFunction, Name: "Helper", Visibility: store.Public, ContentType: store.ContentCode}},
		nil, nil, nil))

	resolver := NewResolver(st)
	outcome, err := resolver.Resolve(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Resolved)
	assert.Equal(t, 0, outcome.Ambiguous)

	pending, err := st.PendingRelationships(ctx, ws)
	require.NoError(t, err)
	assert.Empty(t, pending)

	rels, err := st.RelationshipsToBatch(ctx, []string{calleeID}, nil)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, callerID, rels[0].FromSymbolID)
}

func TestResolverStitchesNamingVariant(t *testing.T) {
	ctx := context.Background()
	st := openResolverTestStore(t)
	const ws = "ws1"

	callerID := store.SymbolID(ws, "caller.py", store.KindFunction, "do_work", 0)
	pendingRel := store.Relationship{
		ID: store.RelationshipID(ws, callerID, "parseInput", store.RelCalls, 4),
		WorkspaceID: ws, FromSymbolID: callerID, ToName: "parseInput", Kind: store.RelCalls,
		Confidence: 0.9, FilePath: "caller.py", Line: 4,
	}
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "caller.py", Hash: "h1", Language: "python", Size: 1},
		[]store.Symbol{{ID: callerID, WorkspaceID: ws, FilePath: "caller.py", Kind: store.KindFunction, Name: "do_work", Visibility: store.Public, ContentType: store.ContentCode}},
		[]store.Relationship{pendingRel}, nil, nil))

	calleeID := store.SymbolID(ws, "parser.go", store.KindFunction, "parse_input", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "parser.go", Hash: "h2", Language: "go", Size: 1},
		[]store.Symbol{{ID: calleeID, WorkspaceID: ws, FilePath: "parser.go", Kind: store.KindFunction, Name: "parse_input", Visibility: store.Public, ContentType: store.ContentCode}},
		nil, nil, nil))

	resolver := NewResolver(st)
	outcome, err := resolver.Resolve(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Resolved)
	assert.Equal(t, 1, outcome.Variant)

	pending, err := st.PendingRelationships(ctx, ws)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolverLeavesAmbiguousEdgesPending(t *testing.T) {
	ctx := context.Background()
	st := openResolverTestStore(t)
	const ws = "ws1"

	callerID := store.SymbolID(ws, "caller.go", store.KindFunction, "Run", 0)
	pendingRel := store.Relationship{
		ID: store.RelationshipID(ws, callerID, "Process", store.RelCalls, 1),
		WorkspaceID: ws, FromSymbolID: callerID, ToName: "Process", Kind: store.RelCalls,
		Confidence: 0.9, FilePath: "caller.go", Line: 1,
	}
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "caller.go", Hash: "h1", Language: "go", Size: 1},
		[]store.Symbol{{ID: callerID, WorkspaceID: ws, FilePath: "caller.go", Kind: store.KindFunction, Name: "Run", Visibility: store.Public, ContentType: store.ContentCode}},
		[]store.Relationship{pendingRel}, nil, nil))

	aID := store.SymbolID(ws, "a.go", store.KindFunction, "Process", 0)
	bID := store.SymbolID(ws, "b.go", store.KindFunction, "Process", 100)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "ha", Language: "go", Size: 1},
		[]store.Symbol{{ID: aID, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "Process", Visibility: store.Public, ContentType: store.ContentCode}},
		nil, nil, nil))
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "b.go", Hash: "hb", Language: "go", Size: 1},
		[]store.Symbol{{ID: bID, WorkspaceID: ws, FilePath: "b.go", Kind: store.KindFunction, Name: "Process", Visibility: store.Public, ContentType: store.ContentCode}},
		nil, nil, nil))

	resolver := NewResolver(st)
	outcome, err := resolver.Resolve(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Ambiguous)

	pending, err := st.PendingRelationships(ctx, ws)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
