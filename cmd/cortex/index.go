// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/internal/metrics"
	"github.com/kraklabs/cortex/internal/ui"
	"github.com/kraklabs/cortex/pkg/workspace"
)

// runIndex executes the 'index' command: detects what changed in root
// since the last pass and brings the workspace's index up to date.
//
// Flags:
//   - --full: clear the git-SHA checkpoint so the detector falls back
//     to hashing every file instead of trusting the last indexed commit
//   - --debug: enable debug-level structured logging
//   - --metrics-addr: serve Prometheus metrics on this address while indexing
func runIndex(args []string, root string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force a full reindex, ignoring the last-indexed checkpoint")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cortex index [options]

Description:
  Bring the workspace's index up to date: detect added, modified,
  deleted, and renamed files since the last pass, re-extract their
  symbols and relationships, and re-embed anything that changed.

  Runs incrementally by default. Use --full to ignore the last-indexed
  git checkpoint and re-hash every file.

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

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ws, err := workspace.Open(ctx, root, logger)
	if err != nil {
		metrics.ReindexTotal.WithLabelValues("error").Inc()
		cerrors.FatalError(globals.Quiet, err)
	}
	defer ws.Close()

	if *full {
		if err := ws.Store.SetProjectMeta(ctx, ws.ID, "last_indexed_sha", ""); err != nil {
			cerrors.FatalError(globals.Quiet, err)
		}
	}

	var bar *progressBar
	progress := func(phase string, current, total int) {
		if globals.Quiet {
			return
		}
		bar = reportProgress(bar, phase, current, total)
	}

	start := time.Now()
	out, err := ws.Reindex(ctx, progress)
	if bar != nil {
		bar.finish()
	}
	metrics.ReindexDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ReindexTotal.WithLabelValues("error").Inc()
		cerrors.FatalError(globals.Quiet, err)
	}
	metrics.ReindexTotal.WithLabelValues("ok").Inc()
	metrics.FilesIndexed.WithLabelValues("added").Add(float64(out.FilesAdded))
	metrics.FilesIndexed.WithLabelValues("modified").Add(float64(out.FilesModified))
	metrics.FilesIndexed.WithLabelValues("deleted").Add(float64(out.FilesDeleted))
	metrics.FilesIndexed.WithLabelValues("renamed").Add(float64(out.FilesRenamed))
	metrics.SymbolsEmbedded.Add(float64(out.Embedded))

	printReindexResult(out, time.Since(start))
}

func printReindexResult(out workspace.ReindexOutcome, elapsed time.Duration) {
	if out.FilesAdded == 0 && out.FilesModified == 0 && out.FilesDeleted == 0 && out.FilesRenamed == 0 {
		ui.Header("Index Up to Date")
		ui.Success("Nothing changed since the last pass.")
		return
	}

	ui.Header("Indexing Complete")
	fmt.Printf("%s %s\n", ui.Label("Files added"), ui.CountText(out.FilesAdded))
	fmt.Printf("%s %s\n", ui.Label("Files modified"), ui.CountText(out.FilesModified))
	fmt.Printf("%s %s\n", ui.Label("Files deleted"), ui.CountText(out.FilesDeleted))
	fmt.Printf("%s %s\n", ui.Label("Files renamed"), ui.CountText(out.FilesRenamed))
	fmt.Printf("%s %s\n", ui.Label("Relationships resolved"), ui.CountText(out.Resolve.Resolved))
	fmt.Printf("%s %s\n", ui.Label("Implements edges"), ui.CountText(out.Implements))
	fmt.Printf("%s %s\n", ui.Label("Field edges"), ui.CountText(out.Fields))
	fmt.Printf("%s %s\n", ui.Label("Symbols embedded"), ui.CountText(out.Embedded))
	fmt.Println()
	fmt.Printf("%s %s\n", ui.Label("Elapsed"), ui.DimText(elapsed.Round(time.Millisecond).String()))
}
