// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultContextWindow is spec §4.4's default code-context size: 3
// lines before and after a symbol's extent.
const DefaultContextWindow = 3

// CodeContext reads the window lines surrounding [startLine,endLine]
// (1-indexed, inclusive) of root/relPath, for embedding input. It
// returns "" rather than an error when the file can't be read or the
// range is out of bounds — code context is an embedding-quality
// enrichment, never a requirement for a symbol to be embedded at all.
func CodeContext(root, relPath string, startLine, endLine, window int) string {
	if window <= 0 {
		window = DefaultContextWindow
	}
	src, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(src), "\n")
	if len(lines) == 0 {
		return ""
	}

	from := startLine - window
	if from < 1 {
		from = 1
	}
	to := endLine + window
	if to > len(lines) {
		to = len(lines)
	}
	if from > to || from > len(lines) {
		return ""
	}
	return strings.Join(lines[from-1:to], "\n")
}
