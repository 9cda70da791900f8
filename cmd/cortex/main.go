// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the cortex CLI: indexing a workspace and
// querying its code-intelligence index.
//
// Usage:
//
//	cortex init                   Create .cortex/config/project.yaml configuration
//	cortex index                  Index the current repository
//	cortex status [--json]        Show workspace index statistics
//	cortex query <op> [args]      Run one read operation against the index
//	cortex watch                  Watch the tree and reindex incrementally
//	cortex reset                  Remove a workspace's index data
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cortex/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the flags that apply to every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to the workspace root (default: current directory)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	// Stop parsing at the first non-flag argument so subcommand flags
	// like "reset --yes" reach the subcommand's own flag set.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cortex - workspace code intelligence

cortex indexes a source tree into a symbol/relationship/identifier
model and exposes navigation and search operations over it.

Usage:
  cortex <command> [options]

Commands:
  init      Create .cortex/config/project.yaml configuration
  index     Index the current repository
  status    Show workspace index statistics
  query     Run one read operation against the index
  watch     Watch the tree and reindex incrementally
  reset     Remove a workspace's index data (destructive!)

Global Options:
  --json            Output in JSON format
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  -c, --config      Path to the workspace root
  -V, --version     Show version and exit

Examples:
  cortex init
  cortex index --full
  cortex status --json
  cortex query goto --symbol HandleRequest
  cortex watch

For detailed command help: cortex <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cortex version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	root := *configPath
	if root == "" {
		root = "."
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, root, globals)
	case "index":
		runIndex(cmdArgs, root, globals)
	case "status":
		runStatus(cmdArgs, root, globals)
	case "query":
		runQuery(cmdArgs, root, globals)
	case "watch":
		runWatch(cmdArgs, root, globals)
	case "reset":
		runReset(cmdArgs, root, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
