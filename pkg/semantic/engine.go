// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/store"
)

// ModelName identifies the embedding model a vector was produced with,
// so switching models never mixes incompatible vectors in one index.
const ModelName = "cortex-symbol-v1"

var errNoEmbedder = errors.New("no embedder configured for this workspace (embedding_mode: mock)")

// Engine embeds symbols and serves nearest-neighbor lookups for one
// workspace, implementing cascade.SemanticSearcher so pkg/cascade's
// third stage can use it without depending on pkg/semantic directly.
type Engine struct {
	st       *store.Store
	embedder Embedder
	indexes  map[string]*Index // workspaceID -> index
	indexDir func(workspaceID string) string
	logger   *slog.Logger

	mu sync.Mutex
}

// NewEngine builds a semantic engine. indexDir maps a workspace id to
// its on-disk index/hnsw/ directory (owned by pkg/workspace's layout).
func NewEngine(st *store.Store, embedder Embedder, indexDir func(workspaceID string) string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		st:       st,
		embedder: embedder,
		indexes:  make(map[string]*Index),
		indexDir: indexDir,
		logger:   logger,
	}
}

func (e *Engine) indexFor(workspaceID string) (*Index, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx, ok := e.indexes[workspaceID]; ok {
		return idx, nil
	}
	idx, err := NewIndex(e.indexDir(workspaceID), e.logger)
	if err != nil {
		return nil, err
	}
	e.indexes[workspaceID] = idx
	return idx, nil
}

// EmbedAndStore embeds each (symbolID, text) pair, persists the vector
// in the store, and inserts it into the workspace's live index, so a
// newly extracted symbol becomes searchable without a full rebuild.
func (e *Engine) EmbedAndStore(ctx context.Context, workspaceID string, symbolIDs, texts []string, batchSize int) error {
	if e.embedder == nil {
		return cerrors.E(cerrors.Other, "semantic.Engine.EmbedAndStore", errNoEmbedder)
	}
	vecs, err := EmbedBatch(ctx, e.embedder, texts, batchSize)
	if err != nil {
		return err
	}
	idx, err := e.indexFor(workspaceID)
	if err != nil {
		return err
	}
	for i, v := range vecs {
		if v == nil {
			continue // item-level embedding failure: the item is skipped
		}
		if err := e.st.UpsertEmbeddingVector(ctx, store.EmbeddingVector{
			SymbolID: symbolIDs[i], ModelName: ModelName, Vector: v,
		}); err != nil {
			return err
		}
		idx.Insert(symbolIDs[i], v)
	}
	return nil
}

// RemoveSymbol drops a symbol's vector from the live index. The store
// row is removed by the caller's normal file-replace cascade
// (embedding_vectors has no foreign key here, it's keyed by symbol_id
// which is already gone once the owning file is re-extracted).
func (e *Engine) RemoveSymbol(ctx context.Context, workspaceID, symbolID string) {
	idx, err := e.indexFor(workspaceID)
	if err != nil {
		return
	}
	idx.Delete(symbolID)
}

// RebuildIndex reloads every embedding vector for the workspace from
// the store and rebuilds the live index from scratch, used after a
// bulk reindex or when the on-disk index is missing/stale.
func (e *Engine) RebuildIndex(ctx context.Context, workspaceID string) error {
	idx, err := e.indexFor(workspaceID)
	if err != nil {
		return err
	}
	return idx.Rebuild(ctx, func(ctx context.Context) (map[string][]float32, error) {
		vecs, err := e.st.AllEmbeddingVectors(ctx, workspaceID, ModelName)
		if err != nil {
			return nil, err
		}
		out := make(map[string][]float32, len(vecs))
		for _, v := range vecs {
			out[v.SymbolID] = v.Vector
		}
		return out, nil
	})
}

// Search implements cascade.SemanticSearcher: embeds text as a query
// and returns the nearest symbols in workspaceID's index above
// minSimilarity.
func (e *Engine) Search(ctx context.Context, workspaceID, text string, k int, minSimilarity float64) ([]cascade.SemanticHit, error) {
	if e.embedder == nil {
		return nil, cerrors.E(cerrors.Other, "semantic.Engine.Search", errNoEmbedder)
	}
	vecs, err := e.embedder.Embed(ctx, []string{text})
	if err != nil || len(vecs) != 1 || vecs[0] == nil {
		return nil, err
	}
	idx, err := e.indexFor(workspaceID)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(ctx, vecs[0], k, minSimilarity)
	if err != nil {
		return nil, err
	}
	out := make([]cascade.SemanticHit, len(hits))
	for i, h := range hits {
		out[i] = cascade.SemanticHit{SymbolID: h.ID, Score: h.Score}
	}
	return out, nil
}

func (e *Engine) Close() error {
	if e.embedder == nil {
		return nil
	}
	return e.embedder.Close()
}
