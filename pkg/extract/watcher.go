// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/store"
)

const debounceWindow = 200 * time.Millisecond

// EmbedJob is handed to Watcher's embedding queue once a file has been
// (re)extracted, decoupling the (possibly slow, GPU-bound) embedding
// pass from the extraction transaction it followed.
type EmbedJob struct {
	WorkspaceID string
	SymbolIDs   []string
}

// Watcher watches a workspace root with fsnotify and keeps the store in
// sync incrementally: one file's worth of events are debounced into a
// single re-extraction, and re-extractions for different files can run
// concurrently while same-file events are always serialized.
type Watcher struct {
	st           *store.Store
	manager      *Manager
	root         string
	workspaceID  string
	workspaceDir string
	logger       *slog.Logger
	embedQueue   chan<- EmbedJob

	mu      sync.Mutex
	timers  map[string]*time.Timer
	writing map[string]*sync.Mutex
}

func NewWatcher(st *store.Store, manager *Manager, root, workspaceID, workspaceDir string, logger *slog.Logger, embedQueue chan<- EmbedJob) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		st: st, manager: manager, root: root, workspaceID: workspaceID, workspaceDir: workspaceDir,
		logger: logger, embedQueue: embedQueue,
		timers: map[string]*time.Timer{}, writing: map[string]*sync.Mutex{},
	}
}

// Run watches until ctx is cancelled. It registers every directory
// under root up front (fsnotify has no recursive mode) and adds newly
// created directories as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return cerrors.E(cerrors.Storage, "extract.Watcher.Run", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		if !entry.IsDir() {
			return nil
		}
		if watchSkipDirs[entry.Name()] {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || isVendoredOrHidden(filepath.ToSlash(rel)) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addTree(fsw, ev.Name)
			return
		}
	}
	if _, ok := w.manager.ForPath(ev.Name); !ok {
		return
	}

	// Debounce per path: each new event for the same file restarts the
	// timer instead of queuing a second re-extraction.
	w.mu.Lock()
	if t, exists := w.timers[ev.Name]; exists {
		t.Stop()
	}
	w.timers[ev.Name] = time.AfterFunc(debounceWindow, func() {
		w.processFile(ctx, ev.Name, ev.Op)
	})
	w.mu.Unlock()
}

func (w *Watcher) fileLock(path string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.writing[path]
	if !ok {
		l = &sync.Mutex{}
		w.writing[path] = l
	}
	return l
}

func (w *Watcher) processFile(ctx context.Context, absPath string, op fsnotify.Op) {
	lock := w.fileLock(absPath)
	lock.Lock()
	defer lock.Unlock()

	rel, err := filepath.Rel(w.root, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if op&fsnotify.Remove != 0 || op&fsnotify.Rename != 0 {
		if _, err := os.Stat(absPath); err != nil {
			if derr := w.st.DeleteFile(ctx, w.workspaceID, rel); derr != nil {
				w.logger.Error("delete file", "path", rel, "err", derr)
			}
			_ = AppendIndexLog(w.workspaceDir, "watch: deleted %s", rel)
			return
		}
	}

	res, err := w.manager.ExtractFile(w.workspaceID, w.root, rel)
	if err != nil {
		w.logger.Error("extract on watch", "path", rel, "err", err)
		_ = AppendIndexLog(w.workspaceDir, "watch: extract failed for %s: %v", rel, err)
		return
	}

	if !w.passesEmptyExtractionSafetyRule(ctx, rel, res) {
		w.logger.Warn("rejecting empty re-extraction", "path", rel)
		_ = AppendIndexLog(w.workspaceDir, "watch: rejected empty re-extraction for %s (previously non-empty)", rel)
		return
	}

	rels, pendingAsRows := SplitRelationships(w.workspaceID, res)
	idents := res.Identifiers
	types := res.TypeInfo
	res.File.LastExtracted = time.Now().Unix()

	if err := w.st.ReplaceFile(ctx, res.File, res.Symbols, append(rels, pendingAsRows...), idents, types); err != nil {
		w.logger.Error("replace file", "path", rel, "err", err)
		return
	}

	_ = AppendIndexLog(w.workspaceDir, "watch: reindexed %s (%d symbols)", rel, len(res.Symbols))

	if w.embedQueue != nil {
		ids := make([]string, len(res.Symbols))
		for i, s := range res.Symbols {
			ids[i] = s.ID
		}
		select {
		case w.embedQueue <- EmbedJob{WorkspaceID: w.workspaceID, SymbolIDs: ids}:
		default:
			w.logger.Warn("embed queue full, dropping job", "path", rel)
		}
	}
}

// passesEmptyExtractionSafetyRule rejects a re-extraction that produced
// zero symbols for a file the store shows previously had some,
// unless the file is genuinely empty on disk — guards against a
// transient parse failure silently wiping out a file's symbols.
func (w *Watcher) passesEmptyExtractionSafetyRule(ctx context.Context, rel string, res *ExtractionResult) bool {
	return PassesEmptyExtractionSafetyRule(ctx, w.st, w.root, w.workspaceID, rel, res)
}

// PassesEmptyExtractionSafetyRule is invariant 9: a re-extraction that
// comes back with zero symbols for a file previously known to have
// some is rejected unless the file is genuinely empty on disk. Shared
// by Watcher's incremental path and pkg/workspace's bulk Reindex path
// so a grammar regression can't silently wipe a file's symbols either
// way.
func PassesEmptyExtractionSafetyRule(ctx context.Context, st *store.Store, root, workspaceID, rel string, res *ExtractionResult) bool {
	if len(res.Symbols) > 0 {
		return true
	}
	info, err := os.Stat(filepath.Join(root, rel))
	if err == nil && info.Size() == 0 {
		return true
	}
	existing, err := st.SymbolsForFile(ctx, workspaceID, rel)
	if err != nil {
		return true // can't check, don't block on a store error
	}
	return len(existing) == 0
}

// SplitRelationships turns a result's resolved and pending edges into
// the single Relationship slice ReplaceFile expects, with pending
// entries carrying ToName instead of ToSymbolID (resolved later by
// Resolver.Resolve).
func SplitRelationships(workspaceID string, res *ExtractionResult) (resolved, pending []store.Relationship) {
	resolved = res.Relationships
	for _, p := range res.Pending {
		pending = append(pending, store.Relationship{
			ID:           store.RelationshipID(workspaceID, p.FromSymbolID, p.ToName, p.Kind, p.Line),
			WorkspaceID:  workspaceID,
			FromSymbolID: p.FromSymbolID,
			ToName:       p.ToName,
			Kind:         p.Kind,
			Confidence:   p.Confidence,
			FilePath:     res.File.Path,
			Line:         p.Line,
		})
	}
	return resolved, pending
}
