// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/internal/ui"
	"github.com/kraklabs/cortex/pkg/workspace"
)

// initFlags holds the parsed flags for the init command.
type initFlags struct {
	nonInteractive bool
	embeddingMode  string
	modelPath      string
	serverURL      string
	embeddingModel string
	noWatch        bool
}

// runInit creates a new workspace at root: writes .cortex/config/project.yaml
// and runs the first full index.
func runInit(args []string, root string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cfg := workspace.DefaultConfig()
	reader := bufio.NewReader(os.Stdin)
	if !flags.nonInteractive {
		runInteractiveInit(reader, &cfg)
	} else {
		applyInitFlags(&cfg, flags)
	}
	cfg.WatchEnabled = !flags.noWatch

	ui.Header("Indexing workspace")
	ws, err := workspace.Create(cmdContext(), root, cfg, nil)
	if err != nil {
		cerrors.FatalError(globals.Quiet, err)
	}
	defer ws.Close()

	ui.Successf("Created workspace %s", ws.Layout.ConfigFile())
	ui.SubHeader("Next steps:")
	fmt.Printf("  1. Run '%s' to verify indexing\n", ui.Cyan.Sprint("cortex status"))
	fmt.Printf("  2. Run '%s' to query the index\n", ui.Cyan.Sprint("cortex query search --text <query>"))
	fmt.Printf("  3. Run '%s' to keep the index fresh while editing\n", ui.Cyan.Sprint("cortex watch"))
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults/flags only)")
	fs.StringVar(&f.embeddingMode, "embedding-mode", string(workspace.EmbeddingModeMock), "Embedding backend: mock, local, standalone")
	fs.StringVar(&f.modelPath, "model-path", "", "Local GGUF model path (embedding-mode=local)")
	fs.StringVar(&f.serverURL, "embedding-server-url", "", "Embedding server URL (embedding-mode=standalone)")
	fs.StringVar(&f.embeddingModel, "embedding-model", "", "Embedding model name (embedding-mode=standalone)")
	fs.BoolVar(&f.noWatch, "no-watch", false, "Disable the background file watcher by default")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cortex init [options]

Description:
  Create a .cortex/config/project.yaml configuration file for the current
  repository and run the first full index.

  By default, runs in interactive mode with prompts for each setting.
  Use -y for non-interactive mode with flags/defaults only.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func applyInitFlags(cfg *workspace.Config, f initFlags) {
	cfg.EmbeddingMode = workspace.EmbeddingMode(f.embeddingMode)
	cfg.ModelPath = f.modelPath
	cfg.EmbeddingServerURL = f.serverURL
	cfg.EmbeddingModel = f.embeddingModel
}

func runInteractiveInit(reader *bufio.Reader, cfg *workspace.Config) {
	ui.Header("cortex workspace configuration")
	fmt.Println()

	ui.Info("Embedding modes: mock (no model, exact/naming-variant matching only), local, standalone")
	mode := prompt(reader, "Embedding mode", string(cfg.EmbeddingMode))
	cfg.EmbeddingMode = workspace.EmbeddingMode(mode)

	switch cfg.EmbeddingMode {
	case workspace.EmbeddingModeLocal:
		cfg.ModelPath = prompt(reader, "Local model path", cfg.ModelPath)
	case workspace.EmbeddingModeStandalone:
		cfg.EmbeddingServerURL = prompt(reader, "Embedding server URL", cfg.EmbeddingServerURL)
		cfg.EmbeddingModel = prompt(reader, "Embedding model name", cfg.EmbeddingModel)
	}
	fmt.Println()
}

func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}
