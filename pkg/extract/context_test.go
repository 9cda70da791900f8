// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeContextReturnsWindowAroundRange(t *testing.T) {
	dir := t.TempDir()
	lines := []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8", "l9", "l10"}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(joinNL(lines)), 0o644))

	got := CodeContext(dir, "a.go", 5, 6, 2)
	assert.Equal(t, joinNL([]string{"l3", "l4", "l5", "l6", "l7", "l8"}), got)
}

func TestCodeContextClampsToFileBounds(t *testing.T) {
	dir := t.TempDir()
	lines := []string{"l1", "l2", "l3"}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(joinNL(lines)), 0o644))

	got := CodeContext(dir, "a.go", 1, 3, 3)
	assert.Equal(t, joinNL(lines), got)
}

func TestCodeContextReturnsEmptyWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, CodeContext(dir, "missing.go", 1, 2, 3))
}

func joinNL(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
