// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AppendIndexLog writes one human-readable line to logs/index.log under
// workspaceDir, creating the file and its parent directory if needed.
// This is deliberately a flat text log rather than structured slog
// output: it's meant to be tailed and read by a person debugging why a
// reindex missed a file, not parsed by anything.
func AppendIndexLog(workspaceDir, format string, args ...any) error {
	dir := filepath.Join(workspaceDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "index.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf(format, args...)
	_, err = fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339), line)
	return err
}

// LogDelta appends a summary line for one detected delta.
func LogDelta(workspaceDir string, d Delta) error {
	return AppendIndexLog(workspaceDir, "delta: +%d added, ~%d modified, -%d deleted, %d renamed",
		len(d.Added), len(d.Modified), len(d.Deleted), len(d.Renamed))
}

// LogResolve appends a summary line for one resolver sweep.
func LogResolve(workspaceDir string, out ResolveOutcome) error {
	return AppendIndexLog(workspaceDir, "resolve: %d considered, %d resolved (%d via naming variant), %d ambiguous",
		out.Considered, out.Resolved, out.Variant, out.Ambiguous)
}
