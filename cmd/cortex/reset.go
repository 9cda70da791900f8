// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/internal/ui"
	"github.com/kraklabs/cortex/pkg/workspace"
)

// runReset executes the 'reset' command: deletes a workspace's entire
// .cortex directory, discarding its index and all cached embeddings.
func runReset(args []string, root string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cortex reset [options]

Description:
  WARNING: this is a destructive operation. Removes the workspace's
  .cortex directory entirely: the symbol/relationship index, cached
  embeddings, and indexing checkpoints. The source tree is never
  touched, and you'll need to run 'cortex init' again afterward.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		cerrors.FatalError(globals.Quiet, fmt.Errorf("the --yes flag is required to confirm this destructive operation"))
	}

	ctx := cmdContext()
	ws, err := workspace.Open(ctx, root, nil)
	if err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}

	if err := ws.Purge(); err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}

	ui.Success("Reset complete. All local indexed data has been deleted.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  cortex init    Recreate the workspace and reindex")
}
