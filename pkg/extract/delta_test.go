// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

func TestHashDetectorFindsAddedModifiedDeleted(t *testing.T) {
	ctx := context.Background()
	st := openResolverTestStore(t)
	const ws = "ws1"
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.go"), []byte("package main\nfunc A(){}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "change.go"), []byte("package main\nfunc B(){}\n"), 0o644))

	mgr := NewManager()
	keepRes, err := mgr.ExtractFile(ws, root, "keep.go")
	require.NoError(t, err)
	require.NoError(t, st.ReplaceFile(ctx, keepRes.File, keepRes.Symbols, nil, keepRes.Identifiers, keepRes.TypeInfo))

	changeRes, err := mgr.ExtractFile(ws, root, "change.go")
	require.NoError(t, err)
	require.NoError(t, st.ReplaceFile(ctx, changeRes.File, changeRes.Symbols, nil, changeRes.Identifiers, changeRes.TypeInfo))

	goneRes := store.File{WorkspaceID: ws, Path: "gone.go", Hash: "stale", Language: "go", Size: 1, LastExtracted: 1}
	require.NoError(t, st.ReplaceFile(ctx, goneRes, nil, nil, nil, nil))

	require.NoError(t, os.WriteFile(filepath.Join(root, "change.go"), []byte("package main\nfunc B(){}\nfunc C(){}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.go"), []byte("package main\nfunc D(){}\n"), 0o644))

	detector := NewHashDetector(st, mgr, root, ws)
	delta, err := detector.Detect(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"new.go"}, delta.Added)
	assert.ElementsMatch(t, []string{"change.go"}, delta.Modified)
	assert.ElementsMatch(t, []string{"gone.go"}, delta.Deleted)
}
