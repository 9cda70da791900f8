// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cascade

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEngineResolvesExactMatchFirst(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	const ws = "ws1"

	id := store.SymbolID(ws, "a.go", store.KindFunction, "ParseInput", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: id, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "ParseInput"}}, nil, nil, nil))

	eng := NewEngine(st, nil)
	matches, err := eng.Resolve(ctx, ws, "ParseInput", ThresholdFastGoto)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ProvenanceDirect, matches[0].Provenance)
}

func TestEngineFallsBackToNamingVariant(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	const ws = "ws1"

	id := store.SymbolID(ws, "a.py", store.KindFunction, "parse_input", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.py", Hash: "h", Language: "python", Size: 1},
		[]store.Symbol{{ID: id, WorkspaceID: ws, FilePath: "a.py", Kind: store.KindFunction, Name: "parse_input"}}, nil, nil, nil))

	eng := NewEngine(st, nil)
	matches, err := eng.Resolve(ctx, ws, "parseInput", ThresholdFastGoto)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ProvenanceNamingVariant, matches[0].Provenance)
}

type fakeSemantic struct {
	hits []SemanticHit
}

func (f *fakeSemantic) Search(ctx context.Context, workspaceID, text string, k int, minSimilarity float64) ([]SemanticHit, error) {
	return f.hits, nil
}

func TestEngineFallsBackToSemanticWhenNothingElseMatches(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	const ws = "ws1"

	id := store.SymbolID(ws, "a.go", store.KindFunction, "ComputeTotals", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: id, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "ComputeTotals"}}, nil, nil, nil))

	eng := NewEngine(st, &fakeSemantic{hits: []SemanticHit{{SymbolID: id, Score: 0.42}}})
	matches, err := eng.Resolve(ctx, ws, "sum up the invoice amounts", ThresholdBusinessLogicFind)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ProvenanceSemantic, matches[0].Provenance)
	assert.Equal(t, 0.42, matches[0].Score)
}

func TestEngineSuggestRanksNearestNamesByEditDistance(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	const ws = "ws1"

	for _, name := range []string{"ComputeTotal", "UnrelatedThingEntirely"} {
		id := store.SymbolID(ws, name+".go", store.KindFunction, name, 0)
		require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: name + ".go", Hash: "h" + name, Language: "go", Size: 1},
			[]store.Symbol{{ID: id, WorkspaceID: ws, FilePath: name + ".go", Kind: store.KindFunction, Name: name}}, nil, nil, nil))
	}

	eng := NewEngine(st, nil)
	suggestions, err := eng.Suggest(ctx, ws, "ComputeTotals", 1)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "ComputeTotal", suggestions[0])
}
