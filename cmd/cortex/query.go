// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/ops"
	"github.com/kraklabs/cortex/pkg/traverse"
	"github.com/kraklabs/cortex/pkg/workspace"
)

// runQuery executes the 'query' command: runs one of pkg/ops.Engine's
// typed operations against the workspace's index and prints its
// response envelope. There is no query language here (unlike a
// Datalog-backed engine) — each operation is its own flag-driven
// subcommand, since pkg/ops already exposes a fixed, typed operation
// set rather than an open query surface.
func runQuery(args []string, root string, globals GlobalFlags) {
	if len(args) == 0 {
		printQueryUsage()
		os.Exit(1)
	}
	op := args[0]
	opArgs := args[1:]

	ctx := cmdContext()
	ws, err := workspace.Open(ctx, root, nil)
	if err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}
	defer ws.Close()

	eng := ws.Ops()

	var resp ops.Response
	switch op {
	case "search":
		resp, err = runSearchQuery(ctx, eng, ws.ID, opArgs)
	case "goto":
		resp, err = runGotoQuery(ctx, eng, ws.ID, opArgs)
	case "refs":
		resp, err = runRefsQuery(ctx, eng, ws.ID, opArgs)
	case "symbols_for_file":
		resp, err = runSymbolsForFileQuery(ctx, eng, ws.ID, opArgs)
	case "trace":
		resp, err = runTraceQuery(ctx, eng, ws.ID, opArgs)
	case "explore":
		resp, err = runExploreQuery(ctx, eng, ws.ID, opArgs)
	case "find_logic":
		resp, err = runFindLogicQuery(ctx, eng, ws.ID, opArgs)
	case "history":
		resp, err = runHistoryQuery(ctx, eng, ws.ID, ws.Root, opArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown operation: %s\n", op)
		printQueryUsage()
		os.Exit(1)
	}
	if err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}

	printQueryResponse(resp, globals)
}

func printQueryUsage() {
	fmt.Fprintf(os.Stderr, `Usage: cortex query <operation> [options]

Operations:
  search --text <query> [--mode text|semantic|hybrid] [--limit N]
  goto --symbol <name> [--context-file <path>] [--line N]
  refs --symbol <name> [--include-definition] [--limit N]
  symbols_for_file --file <path> [--target <name>] [--limit N]
  trace --symbol <name> [--direction upstream|downstream|both] [--max-depth N]
  explore --mode logic|similar|dependencies [--text <query>] [--symbol <name>] [--limit N]
  find_logic --text <query> [--limit N] [--min-score F]
  history --symbol <name> [--snippet <code>] [--commit-limit N]

Every operation prints a JSON response envelope (summary, payload,
next_actions, truncated/total/returned) to stdout.
`)
}

func runSearchQuery(ctx context.Context, eng *ops.Engine, workspaceID string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	text := fs.String("text", "", "Search text")
	mode := fs.String("mode", string(ops.SearchModeText), "text, semantic, or hybrid")
	limit := fs.Int("limit", 20, "Max results")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.Search(ctx, workspaceID, *text, ops.SearchMode(*mode), *limit)
}

func runGotoQuery(ctx context.Context, eng *ops.Engine, workspaceID string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("goto", flag.ExitOnError)
	symbol := fs.String("symbol", "", "Symbol name")
	contextFile := fs.String("context-file", "", "File the caller was looking at, to break ties")
	line := fs.Int("line", 0, "Line the caller was looking at, to break ties")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.Goto(ctx, workspaceID, *symbol, *contextFile, *line)
}

func runRefsQuery(ctx context.Context, eng *ops.Engine, workspaceID string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("refs", flag.ExitOnError)
	symbol := fs.String("symbol", "", "Symbol name")
	includeDef := fs.Bool("include-definition", false, "Include the symbol's own definition in the results")
	limit := fs.Int("limit", 50, "Max results")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.Refs(ctx, workspaceID, *symbol, *includeDef, *limit)
}

func runSymbolsForFileQuery(ctx context.Context, eng *ops.Engine, workspaceID string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("symbols_for_file", flag.ExitOnError)
	file := fs.String("file", "", "File path, relative to the workspace root")
	target := fs.String("target", "", "Only return the symbol with this name")
	limit := fs.Int("limit", 200, "Max results")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.SymbolsForFile(ctx, workspaceID, *file, *limit, *target)
}

func runTraceQuery(ctx context.Context, eng *ops.Engine, workspaceID string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	symbol := fs.String("symbol", "", "Symbol name to trace from")
	direction := fs.String("direction", string(traverse.DirectionDownstream), "upstream, downstream, or both")
	maxDepth := fs.Int("max-depth", 3, "Max BFS depth")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.Trace(ctx, workspaceID, *symbol, traverse.Direction(*direction), *maxDepth)
}

func runExploreQuery(ctx context.Context, eng *ops.Engine, workspaceID string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("explore", flag.ExitOnError)
	mode := fs.String("mode", string(ops.ExploreModeLogic), "logic, similar, or dependencies")
	text := fs.String("text", "", "Domain query text (mode=logic)")
	symbol := fs.String("symbol", "", "Symbol name (mode=similar or mode=dependencies)")
	limit := fs.Int("limit", 20, "Max results")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.Explore(ctx, workspaceID, ops.ExploreMode(*mode), *text, *symbol, *limit)
}

func runFindLogicQuery(ctx context.Context, eng *ops.Engine, workspaceID string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("find_logic", flag.ExitOnError)
	text := fs.String("text", "", "Domain query text")
	limit := fs.Int("limit", 20, "Max results")
	minScore := fs.Float64("min-score", 0, "Minimum candidate score (0 = operation default)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.FindLogic(ctx, workspaceID, *text, *limit, *minScore)
}

func runHistoryQuery(ctx context.Context, eng *ops.Engine, workspaceID, root string, args []string) (ops.Response, error) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	symbol := fs.String("symbol", "", "Symbol name")
	snippet := fs.String("snippet", "", "Code snippet to find the introducing commit for")
	commitLimit := fs.Int("commit-limit", 10, "Max commits in the line-range log")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return eng.History(ctx, workspaceID, root, *symbol, *snippet, *commitLimit)
}

func printQueryResponse(resp ops.Response, globals GlobalFlags) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}
}
