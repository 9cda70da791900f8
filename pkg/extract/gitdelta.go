// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/store"
)

// GitDetector reads `git diff --name-status` against the last indexed
// commit recorded in project_meta, giving exact add/modify/delete/rename
// signals without hashing every file on disk.
type GitDetector struct {
	root    string
	fromSHA string
	manager *Manager
}

// NewDetector returns the git-aware detector when root is a git work
// tree, git is on PATH, and fromSHA is non-empty; otherwise it falls
// back to the hash-based detector, matching the teacher's
// incremental-mode selection in cmd/cie/watch.go generalized to a
// one-shot (non-watching) re-index.
func NewDetector(st *store.Store, manager *Manager, root, workspaceID, fromSHA string) Detector {
	if fromSHA != "" && isGitRepo(root) {
		return &GitDetector{root: root, fromSHA: fromSHA, manager: manager}
	}
	return NewHashDetector(st, manager, root, workspaceID)
}

func (d *GitDetector) Detect(ctx context.Context) (Delta, error) {
	return GitDiff(ctx, d.root, d.fromSHA, d.manager)
}

func isGitRepo(root string) bool {
	if _, err := exec.LookPath("git"); err != nil {
		return false
	}
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = root
	return cmd.Run() == nil
}

// GitDiff runs `git diff --name-status fromSHA..HEAD` and translates the
// output into a Delta. Renames (R### lines) populate Delta.Renamed;
// everything else is Added/Modified/Deleted per git's status letter.
func GitDiff(ctx context.Context, root, fromSHA string, manager *Manager) (Delta, error) {
	var delta Delta
	delta.Renamed = map[string]string{}

	cmd := exec.CommandContext(ctx, "git", "diff", "--name-status", "-M", fromSHA, "HEAD")
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return delta, cerrors.E(cerrors.Storage, "extract.GitDiff", err)
	}

	for _, line := range strings.Split(out.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		status := fields[0]

		switch {
		case strings.HasPrefix(status, "A"):
			addIfTracked(&delta.Added, fields[1], manager)
		case strings.HasPrefix(status, "M"):
			addIfTracked(&delta.Modified, fields[1], manager)
		case strings.HasPrefix(status, "D"):
			addIfTracked(&delta.Deleted, fields[1], manager)
		case strings.HasPrefix(status, "R"):
			if len(fields) >= 3 {
				delta.Renamed[fields[1]] = fields[2]
			}
		}
	}
	return delta, nil
}

func addIfTracked(list *[]string, path string, manager *Manager) {
	if isVendoredOrHidden(path) {
		return
	}
	if _, ok := manager.ForPath(filepath.FromSlash(path)); ok {
		*list = append(*list, path)
	}
}
