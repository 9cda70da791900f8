// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/store"
)

// Manager dispatches files to the adapter selected by extension, owns
// no adapter-local state (adapters are stateless; any performance state
// such as tree-sitter parser pools lives inside each adapter). New
// languages are added purely by registering a new Extractor — nothing
// else in the engine changes (spec §9 "Dynamic dispatch over grammar
// adapters").
type Manager struct {
	byExt map[string]Extractor
}

// NewManager builds a manager with the adapters this repo ships:
// Go, Python, JavaScript/TypeScript (tree-sitter), and a markup adapter
// for Markdown/YAML/JSON/TOML documentation content.
func NewManager() *Manager {
	m := &Manager{byExt: make(map[string]Extractor)}
	goAd := NewGoExtractor()
	pyAd := NewPythonExtractor()
	jsAd := NewJSExtractor()
	docAd := NewDocExtractor()

	m.Register(goAd, ".go")
	m.Register(pyAd, ".py")
	m.Register(jsAd, ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs")
	m.Register(docAd, ".md", ".markdown", ".yaml", ".yml", ".json", ".toml")
	return m
}

// Register associates an adapter with one or more file extensions
// (including the leading dot).
func (m *Manager) Register(e Extractor, exts ...string) {
	for _, ext := range exts {
		m.byExt[ext] = e
	}
}

// ForPath returns the adapter registered for path's extension, or false
// if the file is of an unrecognized type (callers skip it — extraction
// failures are never fatal to the workspace).
func (m *Manager) ForPath(path string) (Extractor, bool) {
	e, ok := m.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// ExtractFile reads path from disk, hashes its content, and dispatches
// to the registered adapter. Returns cerrors.Extract on adapter failure
// — callers must log and skip the file, never abort the workspace.
func (m *Manager) ExtractFile(workspaceID, root, relPath string) (*ExtractionResult, error) {
	e, ok := m.ForPath(relPath)
	if !ok {
		return nil, cerrors.E(cerrors.NotFound, "manager.ExtractFile", fmt.Errorf("no adapter for %s", relPath))
	}
	full := filepath.Join(root, relPath)
	src, err := os.ReadFile(full)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "manager.ExtractFile", err)
	}

	res, err := e.Extract(workspaceID, relPath, src)
	if err != nil {
		return nil, cerrors.E(cerrors.Extract, "manager.ExtractFile", err)
	}
	res.File = store.File{
		WorkspaceID:   workspaceID,
		Path:          relPath,
		Hash:          ContentHash(src),
		Language:      e.Language(),
		Size:          int64(len(src)),
		LastExtracted: 0, // stamped by the caller (watcher/pipeline) with the current time
	}
	return res, nil
}

// ContentHash computes the SHA256 hash used for change detection (spec
// §3 invariant 5).
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
