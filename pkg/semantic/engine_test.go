// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

// dimEmbedder embeds text deterministically by its first rune's code
// point on one axis, so two different query strings land at
// distinguishably different points for nearest-neighbor assertions.
type dimEmbedder struct{}

func (dimEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := float32(0)
		if len(t) > 0 {
			v = float32(t[0])
		}
		out[i] = []float32{v, 1}
	}
	return out, nil
}
func (dimEmbedder) Dimension() int { return 2 }
func (dimEmbedder) Close() error   { return nil }

func openEngineTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEngineEmbedAndStoreThenSearchFindsSymbol(t *testing.T) {
	ctx := context.Background()
	st := openEngineTestStore(t)
	const ws = "ws1"

	id := store.SymbolID(ws, "a.go", store.KindFunction, "ParseInput", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: id, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "ParseInput"}}, nil, nil, nil))

	dir := t.TempDir()
	eng := NewEngine(st, dimEmbedder{}, func(string) string { return dir }, nil)

	require.NoError(t, eng.EmbedAndStore(ctx, ws, []string{id}, []string{"ParseInput"}, 10))

	hits, err := eng.Search(ctx, ws, "ParseInput", 5, 0.0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, id, hits[0].SymbolID)
}

func TestEngineRebuildIndexLoadsFromStore(t *testing.T) {
	ctx := context.Background()
	st := openEngineTestStore(t)
	const ws = "ws1"

	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{ID: "sym1", WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "ParseInput"}}, nil, nil, nil))
	require.NoError(t, st.UpsertEmbeddingVector(ctx, store.EmbeddingVector{
		SymbolID: "sym1", ModelName: ModelName, Vector: []float32{1, 0},
	}))

	dir := t.TempDir()
	eng := NewEngine(st, dimEmbedder{}, func(string) string { return dir }, nil)
	require.NoError(t, eng.RebuildIndex(ctx, ws))

	idx, err := eng.indexFor(ws)
	require.NoError(t, err)
	hits, err := idx.Search(ctx, []float32{1, 0}, 1, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "sym1", hits[0].ID)
}
