// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"context"
	"encoding/gob"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// vectorsFile and buildMarker are the on-disk artifacts under a
// workspace's index/hnsw/ directory (per workspace layout). The marker
// is written only after a full rebuild completes successfully, so a
// process that crashes mid-rebuild leaves no marker and the next open
// knows to rebuild from scratch rather than trust a half-written graph.
const (
	vectorsFile = "vectors.gob"
	buildMarker = ".built"
)

// Hit is one nearest-neighbor result from the index.
type Hit struct {
	ID    string
	Score float64
}

// Index is the HNSW-backed approximate nearest-neighbor index over a
// workspace's symbol embedding vectors. It keeps the full id->vector
// map in memory alongside the graph so it can persist and rebuild
// without depending on the hnsw package's own (un-grounded) on-disk
// format.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	vectors map[string][]float32
	dir     string
	logger  *slog.Logger

	rebuilding bool
}

// NewIndex opens (or initializes) the index rooted at dir. If a prior
// build marker is present, the persisted vectors are loaded and the
// graph is rebuilt in memory from them; otherwise the index starts
// empty and the caller is expected to kick off Rebuild.
func NewIndex(dir string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index{
		graph:   hnsw.NewGraph[string](),
		vectors: make(map[string][]float32),
		dir:     dir,
		logger:  logger,
	}
	idx.graph.Distance = hnsw.CosineDistance

	if _, err := os.Stat(filepath.Join(dir, buildMarker)); err == nil {
		vecs, err := loadVectors(filepath.Join(dir, vectorsFile))
		if err != nil {
			logger.Warn("failed to load persisted vectors, starting empty", "error", err)
			return idx, nil
		}
		for id, v := range vecs {
			idx.vectors[id] = v
			idx.graph.Add(hnsw.MakeNode(id, v))
		}
	}
	return idx, nil
}

// Insert adds or replaces a symbol's embedding vector.
func (idx *Index) Insert(id string, vec []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[id] = vec
	idx.graph.Add(hnsw.MakeNode(id, vec))
}

// Delete removes a symbol's vector, e.g. when its file is deleted or
// re-extracted with a different symbol set.
func (idx *Index) Delete(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, id)
	idx.graph.Delete(id)
}

// Search returns up to k nearest neighbors of query scoring at or
// above minSimilarity. While a background rebuild is in progress it
// falls back to a linear scan over the last-known-good vector set
// instead of querying a graph that may be mid-mutation.
func (idx *Index) Search(ctx context.Context, query []float32, k int, minSimilarity float64) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.rebuilding {
		return idx.linearScan(query, k, minSimilarity), nil
	}

	nodes := idx.graph.Search(query, k)
	out := make([]Hit, 0, len(nodes))
	for _, n := range nodes {
		score := float64(1 - hnsw.CosineDistance(query, n.Value))
		if score < minSimilarity {
			continue
		}
		out = append(out, Hit{ID: n.Key, Score: score})
	}
	return out, nil
}

// linearScan computes cosine similarity against every stored vector.
// O(n) but correct, used only as the rebuild-in-progress fallback.
func (idx *Index) linearScan(query []float32, k int, minSimilarity float64) []Hit {
	out := make([]Hit, 0, k)
	for id, v := range idx.vectors {
		score := float64(1 - hnsw.CosineDistance(query, v))
		if score < minSimilarity {
			continue
		}
		out = append(out, Hit{ID: id, Score: score})
	}
	// insertion sort descending by score, truncated to k
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Rebuild replaces the index's contents with fresh vectors fetched via
// fetch. It runs synchronously in the caller's goroutine; lookups made
// concurrently from other goroutines keep serving (via the linear-scan
// fallback) until the new graph is ready. It then persists the result to
// disk and writes the build marker last.
func (idx *Index) Rebuild(ctx context.Context, fetch func(ctx context.Context) (map[string][]float32, error)) error {
	idx.mu.Lock()
	idx.rebuilding = true
	idx.mu.Unlock()
	defer func() {
		idx.mu.Lock()
		idx.rebuilding = false
		idx.mu.Unlock()
	}()

	vecs, err := fetch(ctx)
	if err != nil {
		return cerrors.E(cerrors.Index, "semantic.Index.Rebuild", err)
	}

	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.CosineDistance
	for id, v := range vecs {
		g.Add(hnsw.MakeNode(id, v))
	}

	idx.mu.Lock()
	idx.graph = g
	idx.vectors = vecs
	idx.mu.Unlock()

	if err := idx.persist(); err != nil {
		idx.logger.Warn("index rebuild succeeded but persistence failed", "error", err)
	}
	return nil
}

func (idx *Index) persist() error {
	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return cerrors.E(cerrors.Index, "semantic.Index.persist", err)
	}
	idx.mu.RLock()
	vecs := idx.vectors
	idx.mu.RUnlock()

	if err := saveVectors(filepath.Join(idx.dir, vectorsFile), vecs); err != nil {
		return cerrors.E(cerrors.Index, "semantic.Index.persist", err)
	}
	markerPath := filepath.Join(idx.dir, buildMarker)
	return os.WriteFile(markerPath, []byte("1"), 0o644)
}

func saveVectors(path string, vecs map[string][]float32) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(vecs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func loadVectors(path string) (map[string][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var vecs map[string][]float32
	if err := gob.NewDecoder(f).Decode(&vecs); err != nil {
		return nil, err
	}
	return vecs, nil
}
