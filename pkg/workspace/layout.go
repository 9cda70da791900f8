// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspace owns a workspace's on-disk layout and lifecycle:
// create/open/reindex/register-reference/purge, per spec §6. It wires
// together pkg/extract's extraction/resolution passes, pkg/semantic's
// embedding engine, and pkg/store into one coherent reindex pipeline.
package workspace

import (
	"os"
	"path/filepath"
)

// dotDir is the hidden per-workspace directory name, excluded from
// extraction/watching by pkg/extract's watchSkipDirs.
const dotDir = ".cortex"

// Layout resolves every on-disk path under one workspace root's hidden
// directory, matching spec §6's required layout exactly.
type Layout struct {
	Root string // the workspace's source root, not the hidden directory
}

func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) dot() string { return filepath.Join(l.Root, dotDir) }

// DB is the relational database file path (plus SQLite's own WAL/SHM
// side files alongside it).
func (l Layout) DB() string { return filepath.Join(l.dot(), "db", "symbols.db") }

// HNSWDir is the persisted approximate-nearest-neighbor index
// directory: vectors.gob plus the rebuild's build marker.
func (l Layout) HNSWDir() string { return filepath.Join(l.dot(), "index", "hnsw") }

// ModelsDir is the cache root for a named model's weights/tokenizer.
func (l Layout) ModelsDir(modelName string) string {
	return filepath.Join(l.dot(), "models", modelName)
}

func (l Layout) CacheDir() string { return filepath.Join(l.dot(), "cache") }
func (l Layout) LogsDir() string  { return filepath.Join(l.dot(), "logs") }
func (l Layout) ConfigDir() string { return filepath.Join(l.dot(), "config") }

// MemoriesDir holds append-only documentation/memory files, indexed
// like any other content (spec §6).
func (l Layout) MemoriesDir() string { return filepath.Join(l.dot(), ".memories") }

// LockFile is the single-process advisory lock for this workspace.
func (l Layout) LockFile() string { return filepath.Join(l.dot(), "workspace.lock") }

// ConfigFile is the per-workspace YAML config.
func (l Layout) ConfigFile() string { return filepath.Join(l.ConfigDir(), "project.yaml") }

// RegistryFile is the primary+reference workspace registry (spec §6).
func (l Layout) RegistryFile() string { return filepath.Join(l.dot(), "workspaces.json") }

// ensureDirs creates every directory the layout names, so Create/Open
// never has to special-case a missing subdirectory later.
func (l Layout) ensureDirs() error {
	dirs := []string{
		filepath.Dir(l.DB()), l.HNSWDir(), filepath.Join(l.dot(), "models"),
		l.CacheDir(), l.LogsDir(), l.ConfigDir(), l.MemoriesDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}
