// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestCreateRunsInitialReindex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc Greet() string { return \"hi\" }\n")

	ws, err := Create(context.Background(), root, DefaultConfig(), nil)
	require.NoError(t, err)
	defer ws.Close()

	syms, err := ws.Store.SymbolsForFile(context.Background(), ws.ID, "main.go")
	require.NoError(t, err)
	assert.NotEmpty(t, syms)

	assert.FileExists(t, NewLayout(root).ConfigFile())
	assert.FileExists(t, NewLayout(root).DB())
}

func TestCreateRejectsExistingWorkspace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc A() {}\n")

	ws, err := Create(context.Background(), root, DefaultConfig(), nil)
	require.NoError(t, err)
	ws.Close()

	_, err = Create(context.Background(), root, DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestOpenFailsWhileAnotherProcessHoldsTheLock(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc A() {}\n")

	ws, err := Create(context.Background(), root, DefaultConfig(), nil)
	require.NoError(t, err)
	defer ws.Close()

	_, err = Open(context.Background(), root, nil)
	assert.Error(t, err)
}

func TestReindexPicksUpNewAndDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n\nfunc A() {}\n")

	ws, err := Create(context.Background(), root, DefaultConfig(), nil)
	require.NoError(t, err)
	defer ws.Close()

	writeFile(t, root, "b.go", "package main\n\nfunc B() {}\n")
	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))

	out, err := ws.Reindex(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.FilesAdded)
	assert.Equal(t, 1, out.FilesDeleted)

	bSyms, err := ws.Store.SymbolsForFile(context.Background(), ws.ID, "b.go")
	require.NoError(t, err)
	assert.NotEmpty(t, bSyms)

	aSyms, err := ws.Store.SymbolsForFile(context.Background(), ws.ID, "a.go")
	require.NoError(t, err)
	assert.Empty(t, aSyms)
}

func TestRegisterReferenceAddsRegistryEntry(t *testing.T) {
	primaryRoot := t.TempDir()
	writeFile(t, primaryRoot, "main.go", "package main\n\nfunc A() {}\n")
	ws, err := Create(context.Background(), primaryRoot, DefaultConfig(), nil)
	require.NoError(t, err)
	defer ws.Close()

	refRoot := t.TempDir()
	writeFile(t, refRoot, "lib.go", "package lib\n\nfunc B() {}\n")

	require.NoError(t, ws.RegisterReference(context.Background(), refRoot))

	reg, err := LoadRegistry(ws.Layout.RegistryFile())
	require.NoError(t, err)
	require.Len(t, reg.Entries, 2)
	assert.Equal(t, store.RoleReference, reg.Entries[1].Role)
	assert.Equal(t, refRoot, reg.Entries[1].Root)
}

func TestPurgeRemovesDotCortexButNotSourceTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc A() {}\n")
	ws, err := Create(context.Background(), root, DefaultConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, ws.Purge())

	assert.NoDirExists(t, NewLayout(root).dot())
	assert.FileExists(t, filepath.Join(root, "main.go"))
}
