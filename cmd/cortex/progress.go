// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// progressBar wraps a schollz/progressbar/v3 bar for one Reindex phase,
// swapped out each time the phase name changes.
type progressBar struct {
	phase string
	bar   *progressbar.ProgressBar
}

func phaseLabel(phase string) string {
	switch phase {
	case "scan":
		return "Scanning for changes"
	case "extract":
		return "Extracting symbols"
	case "resolve":
		return "Resolving relationships"
	case "embed":
		return "Generating embeddings"
	default:
		return phase
	}
}

// reportProgress renders one Reindex progress callback, starting a new
// bar whenever the phase changes and finishing the previous one.
func reportProgress(cur *progressBar, phase string, current, total int) *progressBar {
	if cur == nil || cur.phase != phase {
		if cur != nil {
			_ = cur.bar.Finish()
		}
		cur = &progressBar{
			phase: phase,
			bar: progressbar.NewOptions(total,
				progressbar.OptionSetDescription(phaseLabel(phase)),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			),
		}
	}
	_ = cur.bar.Set(current)
	return cur
}

func (p *progressBar) finish() {
	if p != nil && p.bar != nil {
		_ = p.bar.Finish()
	}
}
