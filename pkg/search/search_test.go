// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

func openSearchTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSearchFindsExactPhraseMatch(t *testing.T) {
	ctx := context.Background()
	st := openSearchTestStore(t)
	const ws = "ws1"

	id := store.SymbolID(ws, "a.go", store.KindFunction, "ParseInput", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{
			ID: id, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "ParseInput",
			Signature: "func ParseInput(s string) error", Doc: "parse input text",
		}}, nil, nil, nil))

	results, err := Search(ctx, st, ws, "parse input", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Symbol.ID)
	assert.Equal(t, ModeExact, results[0].Mode)
}

func TestSearchFallsBackToPrefixWhenExactMisses(t *testing.T) {
	ctx := context.Background()
	st := openSearchTestStore(t)
	const ws = "ws1"

	id := store.SymbolID(ws, "a.go", store.KindFunction, "ParseInputStream", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: ws, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{{
			ID: id, WorkspaceID: ws, FilePath: "a.go", Kind: store.KindFunction, Name: "ParseInputStream",
			Doc: "parses a byte stream incrementally",
		}}, nil, nil, nil))

	results, err := Search(ctx, st, ws, "parse", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ModePrefix, results[0].Mode)
}

func TestSearchReturnsNilForEmptyQuery(t *testing.T) {
	st := openSearchTestStore(t)
	results, err := Search(context.Background(), st, "ws1", "the a of", 10)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestFitToBudgetTruncatesProgressively(t *testing.T) {
	longDoc := strings.Repeat("word ", 200)
	results := []Result{
		{Symbol: store.Symbol{Doc: longDoc, Signature: "func X()"}},
	}
	require.Greater(t, EstimateTokens(results), 20)

	fitted, truncated := FitToBudget(results, 20)
	assert.True(t, truncated)
	assert.LessOrEqual(t, EstimateTokens(fitted), 20)
}

func TestFitToBudgetNoopWhenAlreadyUnderBudget(t *testing.T) {
	results := []Result{{Symbol: store.Symbol{Doc: "short"}}}
	fitted, truncated := FitToBudget(results, 1000)
	assert.False(t, truncated)
	assert.Equal(t, results, fitted)
}
