// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/internal/ui"
	"github.com/kraklabs/cortex/pkg/workspace"
)

// runWatch executes the 'watch' command: runs the incremental,
// fsnotify-backed watcher until interrupted, debouncing bursts of changes
// to a file into a single re-extraction of that file.
func runWatch(args []string, root string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cortex watch [options]

Description:
  Watch the workspace root for file changes and reindex incrementally,
  debouncing bursts of edits to a file into one re-extraction of that
  file. Runs until interrupted
  (Ctrl-C).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signalContext()
	defer cancel()

	ws, err := workspace.Open(ctx, root, logger)
	if err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}
	defer ws.Close()

	if !ws.Config.WatchEnabled {
		ui.Warning("watch_enabled is false in .cortex/config/project.yaml; nothing to do")
		return
	}

	ui.Successf("Watching %s for changes (Ctrl-C to stop)", ws.Root)
	if err := ws.Watch(ctx); err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}
	ui.Info("Watch stopped.")
}
