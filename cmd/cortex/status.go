// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/internal/ui"
	"github.com/kraklabs/cortex/pkg/store"
	"github.com/kraklabs/cortex/pkg/workspace"
)

// statusResult is status's JSON output shape.
type statusResult struct {
	WorkspaceID   string         `json:"workspace_id"`
	Root          string         `json:"root"`
	Files         int            `json:"files"`
	Symbols       int            `json:"symbols"`
	Relationships int            `json:"relationships"`
	Identifiers   int            `json:"identifiers"`
	Embeddings    int            `json:"embeddings"`
	SymbolsByKind map[string]int `json:"symbols_by_kind"`
}

// runStatus executes the 'status' command: counts the workspace's
// indexed files, symbols, relationships, identifiers, and embeddings.
func runStatus(args []string, root string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cortex status [options]

Description:
  Show index statistics for the workspace: how many files, symbols,
  relationships, identifiers, and embeddings are currently stored.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx := cmdContext()
	ws, err := workspace.Open(ctx, root, nil)
	if err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}
	defer ws.Close()

	counts, err := ws.Store.WorkspaceCounts(ctx, ws.ID)
	if err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}

	result := statusResult{
		WorkspaceID:   ws.ID,
		Root:          ws.Root,
		Files:         counts.Files,
		Symbols:       counts.Symbols,
		Relationships: counts.Relationships,
		Identifiers:   counts.Identifiers,
		Embeddings:    counts.Embeddings,
		SymbolsByKind: kindCountsToStrings(counts.SymbolsByKind),
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			cerrors.FatalError(globals.Quiet, err)
		}
		return
	}

	printStatus(result)
}

func kindCountsToStrings(m map[store.Kind]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func printStatus(r statusResult) {
	ui.Header("Workspace Status")
	fmt.Printf("%s %s\n", ui.Label("Workspace"), r.WorkspaceID)
	fmt.Printf("%s %s\n", ui.Label("Root"), r.Root)
	fmt.Println()
	fmt.Printf("%s %s\n", ui.Label("Files"), ui.CountText(r.Files))
	fmt.Printf("%s %s\n", ui.Label("Symbols"), ui.CountText(r.Symbols))
	fmt.Printf("%s %s\n", ui.Label("Relationships"), ui.CountText(r.Relationships))
	fmt.Printf("%s %s\n", ui.Label("Identifiers"), ui.CountText(r.Identifiers))
	fmt.Printf("%s %s\n", ui.Label("Embeddings"), ui.CountText(r.Embeddings))

	if len(r.SymbolsByKind) > 0 {
		fmt.Println()
		ui.SubHeader("Symbols by kind:")
		for kind, n := range r.SymbolsByKind {
			fmt.Printf("  %-16s %s\n", kind, ui.CountText(n))
		}
	}
}
