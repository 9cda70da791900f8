// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/cortex/pkg/store"
)

// Delta is the set of path changes a re-index needs to act on, produced
// either by a git-aware detector or the hash-based fallback. Renamed
// entries are reported as a same-content Added+Deleted pair by the
// hash detector (it has no rename signal to work from); the git
// detector reports true renames so an unchanged symbol set can move
// file paths without a full re-extraction.
type Delta struct {
	Added    []string
	Modified []string
	Deleted  []string
	Renamed  map[string]string // old path -> new path
}

// Detector discovers what changed in a workspace since the last index.
type Detector interface {
	Detect(ctx context.Context) (Delta, error)
}

var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".cortex": true,
	"dist": true, "build": true, "__pycache__": true, ".venv": true,
}

// HashDetector compares the content hash of every file on disk against
// what the store last recorded, with no dependency on version control.
// It is the detector of last resort when the workspace root is not a
// git repository (or git itself is unavailable).
type HashDetector struct {
	st      *store.Store
	root    string
	manager *Manager
	wsID    string
}

func NewHashDetector(st *store.Store, manager *Manager, root, workspaceID string) *HashDetector {
	return &HashDetector{st: st, root: root, manager: manager, wsID: workspaceID}
}

func (d *HashDetector) Detect(ctx context.Context) (Delta, error) {
	var delta Delta

	known, err := d.st.AllFiles(ctx, d.wsID)
	if err != nil {
		return delta, err
	}
	knownHash := make(map[string]string, len(known))
	for _, f := range known {
		knownHash[f.Path] = f.Hash
	}

	seen := map[string]bool{}
	err = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip unreadable entries, don't abort the whole walk
		}
		if entry.IsDir() {
			if watchSkipDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := d.manager.ForPath(path); !ok {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		hash := ContentHash(content)

		if prev, ok := knownHash[rel]; !ok {
			delta.Added = append(delta.Added, rel)
		} else if prev != hash {
			delta.Modified = append(delta.Modified, rel)
		}
		return nil
	})
	if err != nil {
		return delta, err
	}

	for path := range knownHash {
		if !seen[path] {
			delta.Deleted = append(delta.Deleted, path)
		}
	}
	return delta, nil
}

// isVendoredOrHidden reports whether rel should never be watched or
// indexed, independent of extension — used by both detectors and the
// fsnotify watcher so the skip list lives in exactly one place.
func isVendoredOrHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if watchSkipDirs[part] {
			return true
		}
	}
	return false
}
