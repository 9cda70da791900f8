// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"encoding/json"

	"github.com/kraklabs/cortex/pkg/store"
)

// ExtractorVersion is bumped whenever an adapter's symbol shape changes
// in a way re-extraction needs to pick up even when a file's content
// hash hasn't changed (a new Kind split out, a new relationship kind
// added). A manifest built under an older version is treated as fully
// stale.
const ExtractorVersion = "1"

// ManifestEntry is the per-file snapshot the manifest pass persists.
type ManifestEntry struct {
	Hash              string `json:"hash"`
	Language          string `json:"language"`
	SymbolCount       int    `json:"symbol_count"`
	RelationshipCount int    `json:"relationship_count"`
	ExtractorVersion  string `json:"extractor_version"`
}

// Manifest maps a workspace-relative path to its last-indexed snapshot.
// It is the precise counterpart to the hash-only comparison AllFiles
// supports: a manifest also records how many symbols/relationships a
// file produced. The "empty-extraction safety rule" in
// pkg/extract/watcher.go does not read it; that rule checks the
// file's symbols in the store.
type Manifest map[string]ManifestEntry

const manifestMetaKey = "manifest"

// EntryFor builds the manifest entry for one extraction result.
func EntryFor(f store.File, res *ExtractionResult) ManifestEntry {
	return ManifestEntry{
		Hash: f.Hash, Language: f.Language, SymbolCount: len(res.Symbols),
		RelationshipCount: len(res.Relationships) + len(res.Pending), ExtractorVersion: ExtractorVersion,
	}
}

// LoadManifest reads the persisted manifest for workspaceID, or an
// empty one if none has been saved yet.
func LoadManifest(ctx context.Context, st *store.Store, workspaceID string) (Manifest, error) {
	raw, err := st.GetProjectMeta(ctx, workspaceID, manifestMetaKey)
	if err != nil {
		return nil, err
	}
	m := Manifest{}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Manifest{}, nil //nolint:nilerr // a corrupt manifest just forces a full re-scan
	}
	return m, nil
}

// Save persists the manifest.
func (m Manifest) Save(ctx context.Context, st *store.Store, workspaceID string) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return st.SetProjectMeta(ctx, workspaceID, manifestMetaKey, string(raw))
}

// Set records or overwrites one file's entry.
func (m Manifest) Set(path string, e ManifestEntry) { m[path] = e }

// Remove deletes a file's entry, used when a delta reports it deleted.
func (m Manifest) Remove(path string) { delete(m, path) }

// NeedsReextraction reports whether path's on-disk hash or the current
// extractor version has moved past what the manifest recorded, even
// when a delta detector didn't flag the file as changed (version bumps
// affect every file at once, not just ones git or hashing noticed).
func (m Manifest) NeedsReextraction(path, hash string) bool {
	entry, ok := m[path]
	if !ok {
		return true
	}
	return entry.Hash != hash || entry.ExtractorVersion != ExtractorVersion
}
