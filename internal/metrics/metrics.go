// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes cortex's indexing counters over the default
// Prometheus registry, served by cmd/cortex index --metrics-addr.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReindexTotal counts completed Reindex passes, labeled by outcome
	// ("ok" or "error").
	ReindexTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_reindex_total",
		Help: "Total number of workspace reindex passes, by outcome.",
	}, []string{"outcome"})

	// FilesIndexed counts files added, modified, deleted, and renamed
	// across all reindex passes, labeled by change kind.
	FilesIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_files_indexed_total",
		Help: "Total number of files processed during reindex, by change kind.",
	}, []string{"change"})

	// SymbolsEmbedded counts symbols sent to the embedder across all
	// reindex passes.
	SymbolsEmbedded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cortex_symbols_embedded_total",
		Help: "Total number of symbols embedded during reindex.",
	})

	// ReindexDuration observes wall-clock time per reindex pass.
	ReindexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cortex_reindex_duration_seconds",
		Help:    "Wall-clock duration of a full Reindex call.",
		Buckets: prometheus.DefBuckets,
	})
)
