// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/extract"
	"github.com/kraklabs/cortex/pkg/ops"
	"github.com/kraklabs/cortex/pkg/semantic"
	"github.com/kraklabs/cortex/pkg/store"
	"github.com/kraklabs/cortex/pkg/traverse"
)

// ReindexOutcome summarizes one Reindex call, mirroring the shape
// extract/indexlog.go already logs per-pass.
type ReindexOutcome struct {
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	FilesRenamed  int
	Resolve       extract.ResolveOutcome
	Implements    int
	Fields        int
	Embedded      int
}

// Workspace is one opened workspace: its layout, store, lock, config,
// and the extraction/embedding machinery wired over them. It is the
// single entry point pkg/ops and cmd/cortex build on.
type Workspace struct {
	ID      string
	Root    string
	Layout  Layout
	Config  Config
	Store   *store.Store
	Manager *extract.Manager
	Engine  *semantic.Engine

	lock   *Lock
	logger *slog.Logger
}

// Create initializes a brand-new workspace at root: lays out the
// .cortex directory, writes its config, opens the store, and runs a
// full initial reindex. root must not already be a cortex workspace.
func Create(ctx context.Context, root string, cfg Config, logger *slog.Logger) (*Workspace, error) {
	root = absOrSelf(root)
	layout := NewLayout(root)
	if _, err := os.Stat(layout.ConfigFile()); err == nil {
		return nil, cerrors.E(cerrors.Other, "workspace.Create",
			fmt.Errorf("%s is already a cortex workspace", root))
	}
	if err := layout.ensureDirs(); err != nil {
		return nil, cerrors.E(cerrors.Storage, "workspace.Create", err)
	}
	if err := SaveConfig(layout.ConfigFile(), cfg); err != nil {
		return nil, err
	}
	ws, err := open(ctx, root, layout, logger)
	if err != nil {
		return nil, err
	}
	reg, err := LoadRegistry(layout.RegistryFile())
	if err != nil {
		ws.Close()
		return nil, err
	}
	reg.Upsert(RegistryEntry{ID: ws.ID, Root: root, Role: store.RolePrimary})
	if err := reg.Save(layout.RegistryFile()); err != nil {
		ws.Close()
		return nil, err
	}
	if err := ws.Store.UpsertWorkspace(ctx, store.Workspace{
		ID: ws.ID, RootPath: root, Role: store.RolePrimary,
	}); err != nil {
		ws.Close()
		return nil, err
	}
	if _, err := ws.Reindex(ctx, nil); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

// Open resumes an existing workspace at root: acquires its lock,
// opens the store, and loads its config. It does not reindex — callers
// that want a fresh scan call Reindex explicitly.
func Open(ctx context.Context, root string, logger *slog.Logger) (*Workspace, error) {
	root = absOrSelf(root)
	layout := NewLayout(root)
	return open(ctx, root, layout, logger)
}

func open(ctx context.Context, root string, layout Layout, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := layout.ensureDirs(); err != nil {
		return nil, cerrors.E(cerrors.Storage, "workspace.Open", err)
	}
	lock, err := AcquireLock(layout.LockFile())
	if err != nil {
		return nil, err
	}
	st, err := store.Open(layout.DB(), logger)
	if err != nil {
		lock.Release()
		return nil, err
	}
	cfg, err := LoadConfig(layout.ConfigFile())
	if err != nil {
		st.Close()
		lock.Release()
		return nil, err
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		st.Close()
		lock.Release()
		return nil, err
	}

	ws := &Workspace{
		ID:      store.WorkspaceID(root),
		Root:    root,
		Layout:  layout,
		Config:  cfg,
		Store:   st,
		Manager: extract.NewManager(),
		lock:    lock,
		logger:  logger,
	}
	ws.Engine = semantic.NewEngine(st, embedder, func(string) string { return layout.HNSWDir() }, logger)
	return ws, nil
}

// newEmbedder constructs the backend cfg.EmbeddingMode selects. Mock
// mode returns a nil Embedder: Engine.EmbedAndStore is simply never
// called for a mock workspace, and CASCADE's semantic stage degrades
// to exact/naming-variant matching only.
func newEmbedder(cfg Config, logger *slog.Logger) (semantic.Embedder, error) {
	switch cfg.EmbeddingMode {
	case EmbeddingModeLocal:
		return semantic.NewLocalEmbedder(semantic.LocalConfig{
			ModelPath: cfg.ModelPath, GPULayers: cfg.GPULayers, Threads: cfg.Threads,
		}, logger)
	case EmbeddingModeStandalone:
		return semantic.NewStandaloneEmbedder(semantic.StandaloneConfig{
			ServerURL: cfg.EmbeddingServerURL, Model: cfg.EmbeddingModel, Dimension: cfg.EmbeddingDimension,
		})
	default:
		return nil, nil
	}
}

// Close releases the store handle and the workspace's process lock.
// It does not remove anything on disk (see Purge).
func (w *Workspace) Close() error {
	var err error
	if w.Engine != nil {
		err = w.Engine.Close()
	}
	if w.Store != nil {
		if cerr := w.Store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if w.lock != nil {
		if lerr := w.lock.Release(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}

// Ops builds a pkg/ops.Engine over this workspace's store and
// cascade/traverse machinery — the single wiring point cmd/cortex uses
// for every read operation. A mock-mode workspace passes a nil
// semantic searcher so cascade's third stage and explore(mode=similar)
// degrade to their text/naming-variant results instead of erroring.
func (w *Workspace) Ops() *ops.Engine {
	var searcher cascade.SemanticSearcher
	if w.Config.EmbeddingMode != EmbeddingModeMock {
		searcher = w.Engine
	}
	cas := cascade.NewEngine(w.Store, searcher)
	trav := traverse.NewEngine(w.Store, cas)
	return ops.NewEngine(w.Store, cas, trav, searcher, w.Manager, w.logger)
}

// ProgressFunc reports Reindex's phase progress, mirroring the
// teacher's pipeline.SetProgressCallback(current, total, phase) shape.
// Any phase may report total==0 for a single-shot, non-incremental step.
type ProgressFunc func(phase string, current, total int)

// Reindex detects what changed since the last pass, re-extracts every
// added/modified file, runs the cross-file resolver passes, embeds any
// newly- or re-extracted symbols, and rebuilds the semantic index.
// The commit recorded by the last pass (project meta "last_indexed_sha"),
// if set and root is a git work tree, lets the detector use git's own
// diff instead of hashing every file. progress may be nil.
func (w *Workspace) Reindex(ctx context.Context, progress ProgressFunc) (ReindexOutcome, error) {
	var out ReindexOutcome
	if progress == nil {
		progress = func(string, int, int) {}
	}

	progress("scan", 0, 1)
	fromSHA, _ := w.Store.GetProjectMeta(ctx, w.ID, "last_indexed_sha")
	detector := extract.NewDetector(w.Store, w.Manager, w.Root, w.ID, fromSHA)
	delta, err := detector.Detect(ctx)
	if err != nil {
		return out, err
	}
	_ = extract.LogDelta(w.Layout.dot(), delta)
	progress("scan", 1, 1)

	manifest, err := extract.LoadManifest(ctx, w.Store, w.ID)
	if err != nil {
		return out, err
	}

	var embedSymbolIDs []string

	for oldPath, newPath := range delta.Renamed {
		if err := w.Store.DeleteFile(ctx, w.ID, oldPath); err != nil {
			return out, err
		}
		manifest.Remove(oldPath)
		delta.Modified = append(delta.Modified, newPath)
		out.FilesRenamed++
	}

	for _, path := range delta.Deleted {
		if err := w.Store.DeleteFile(ctx, w.ID, path); err != nil {
			return out, err
		}
		manifest.Remove(path)
		out.FilesDeleted++
	}

	changed := append(append([]string{}, delta.Added...), delta.Modified...)
	addedSet := make(map[string]bool, len(delta.Added))
	for _, path := range delta.Added {
		addedSet[path] = true
	}
	for i, rel := range changed {
		progress("extract", i+1, len(changed))
		res, err := w.Manager.ExtractFile(w.ID, w.Root, rel)
		if err != nil {
			w.logger.Error("extract failed during reindex", "path", rel, "err", err)
			_ = extract.AppendIndexLog(w.Layout.dot(), "reindex: extract failed for %s: %v", rel, err)
			continue
		}
		if !extract.PassesEmptyExtractionSafetyRule(ctx, w.Store, w.Root, w.ID, rel, res) {
			w.logger.Warn("rejecting empty re-extraction during reindex", "path", rel)
			_ = extract.AppendIndexLog(w.Layout.dot(), "reindex: rejected empty re-extraction for %s (previously non-empty)", rel)
			continue
		}

		res.File.LastExtracted = time.Now().Unix()
		resolved, pending := extract.SplitRelationships(w.ID, res)
		if err := w.Store.ReplaceFile(ctx, res.File, res.Symbols, append(resolved, pending...), res.Identifiers, res.TypeInfo); err != nil {
			return out, err
		}
		manifest.Set(rel, extract.EntryFor(res.File, res))
		for _, sym := range res.Symbols {
			embedSymbolIDs = append(embedSymbolIDs, sym.ID)
		}
		if addedSet[rel] {
			out.FilesAdded++
		} else {
			out.FilesModified++
		}
	}

	progress("resolve", 0, 1)
	resolveOut, err := extract.NewResolver(w.Store).Resolve(ctx, w.ID)
	if err != nil {
		return out, err
	}
	out.Resolve = resolveOut
	_ = extract.LogResolve(w.Layout.dot(), resolveOut)

	implCount, err := extract.NewImplementsResolver(w.Store).Resolve(ctx, w.ID)
	if err != nil {
		return out, err
	}
	out.Implements = implCount

	fieldCount, err := extract.NewFieldResolver(w.Store).Resolve(ctx, w.ID)
	if err != nil {
		return out, err
	}
	out.Fields = fieldCount
	progress("resolve", 1, 1)

	if err := manifest.Save(ctx, w.Store, w.ID); err != nil {
		return out, err
	}

	if len(embedSymbolIDs) > 0 && w.Config.EmbeddingMode != EmbeddingModeMock {
		progress("embed", 0, 1)
		ids, texts, err := w.symbolTextsFor(ctx, embedSymbolIDs)
		if err != nil {
			return out, err
		}
		if err := w.Engine.EmbedAndStore(ctx, w.ID, ids, texts, 0); err != nil {
			return out, err
		}
		if err := w.Engine.RebuildIndex(ctx, w.ID); err != nil {
			return out, err
		}
		out.Embedded = len(ids)
		progress("embed", 1, 1)
	}

	if sha := currentGitSHA(w.Root); sha != "" {
		_ = w.Store.SetProjectMeta(ctx, w.ID, "last_indexed_sha", sha)
	}
	if err := w.Store.UpsertWorkspace(ctx, store.Workspace{
		ID: w.ID, RootPath: w.Root, Role: store.RolePrimary, LastIndexedAt: time.Now().Unix(),
	}); err != nil {
		return out, err
	}

	return out, nil
}

// RegisterReference adds refRoot as a reference workspace: indexed
// alongside the primary workspace for cross-repo navigation, but never
// treated as the primary root for purge/reindex scheduling.
func (w *Workspace) RegisterReference(ctx context.Context, refRoot string) error {
	refRoot = absOrSelf(refRoot)
	refWS, err := Open(ctx, refRoot, w.logger)
	if err != nil {
		return err
	}
	defer refWS.Close()
	if _, err := refWS.Reindex(ctx, nil); err != nil {
		return err
	}

	reg, err := LoadRegistry(w.Layout.RegistryFile())
	if err != nil {
		return err
	}
	reg.Upsert(RegistryEntry{ID: refWS.ID, Root: refRoot, Role: store.RoleReference})
	return reg.Save(w.Layout.RegistryFile())
}

// Purge releases the workspace's lock and removes its entire .cortex
// directory tree, discarding the index and all cached embeddings. The
// source tree itself is never touched.
func (w *Workspace) Purge() error {
	dot := w.Layout.dot()
	if err := w.Close(); err != nil {
		w.logger.Warn("close during purge", "err", err)
	}
	if err := os.RemoveAll(dot); err != nil {
		return cerrors.E(cerrors.Storage, "workspace.Purge", err)
	}
	return nil
}

// Watch runs the incremental fsnotify-backed watcher until ctx is
// cancelled, consuming embed jobs on a background goroutine so a slow
// GPU embedding pass never blocks the extraction path.
func (w *Workspace) Watch(ctx context.Context) error {
	if !w.Config.WatchEnabled {
		return nil
	}
	embedQueue := make(chan extract.EmbedJob, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for job := range embedQueue {
			if w.Config.EmbeddingMode == EmbeddingModeMock {
				continue
			}
			ids, texts, err := w.symbolTextsFor(ctx, job.SymbolIDs)
			if err != nil {
				w.logger.Error("watch embed: symbol texts", "err", err)
				continue
			}
			if err := w.Engine.EmbedAndStore(ctx, job.WorkspaceID, ids, texts, 0); err != nil {
				w.logger.Error("watch embed: embed and store", "err", err)
				continue
			}
			if err := w.Engine.RebuildIndex(ctx, job.WorkspaceID); err != nil {
				w.logger.Error("watch embed: rebuild index", "err", err)
			}
		}
	}()

	watcher := extract.NewWatcher(w.Store, w.Manager, w.Root, w.ID, w.Layout.dot(), w.logger, embedQueue)
	err := watcher.Run(ctx)
	close(embedQueue)
	<-done
	return err
}

// symbolTextsFor builds the embedding input text for each symbol id,
// skipping any that can no longer be found (deleted between
// extraction and embedding) — the returned ids and texts stay aligned
// even when some lookups are skipped.
func (w *Workspace) symbolTextsFor(ctx context.Context, symbolIDs []string) (ids, texts []string, err error) {
	ids = make([]string, 0, len(symbolIDs))
	texts = make([]string, 0, len(symbolIDs))
	for _, id := range symbolIDs {
		sym, err := w.Store.SymbolByID(ctx, id)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		codeContext := extract.CodeContext(w.Root, sym.FilePath, sym.StartLine, sym.EndLine, extract.DefaultContextWindow)
		texts = append(texts, semantic.TextForSymbol(sym.QualifiedName, string(sym.Kind), sym.Signature, sym.Doc, codeContext))
	}
	return ids, texts, nil
}

// currentGitSHA returns root's current HEAD commit, or "" if root is
// not a git work tree (or git is unavailable) — the next Reindex then
// falls back to the hash-based detector.
func currentGitSHA(root string) string {
	if _, err := exec.LookPath("git"); err != nil {
		return ""
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func absOrSelf(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return abs
}
