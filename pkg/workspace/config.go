// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"os"

	"gopkg.in/yaml.v3"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// EmbeddingMode selects which pkg/semantic embedder backend a
// workspace runs: an in-process llama.cpp model, or a remote Ollama
// server.
type EmbeddingMode string

const (
	EmbeddingModeLocal      EmbeddingMode = "local"
	EmbeddingModeStandalone EmbeddingMode = "standalone"
	EmbeddingModeMock       EmbeddingMode = "mock" // no embeddings; CASCADE skips the semantic stage
)

// Config is a workspace's project.yaml: its embedding backend choice
// and the knobs pkg/semantic needs to construct one.
type Config struct {
	EmbeddingMode EmbeddingMode `yaml:"embedding_mode"`

	// Local mode (pkg/semantic.LocalConfig).
	ModelPath string `yaml:"model_path,omitempty"`
	GPULayers int    `yaml:"gpu_layers,omitempty"`
	Threads   int    `yaml:"threads,omitempty"`

	// Standalone mode (pkg/semantic.StandaloneConfig).
	EmbeddingServerURL string `yaml:"embedding_server_url,omitempty"`
	EmbeddingModel     string `yaml:"embedding_model,omitempty"`
	EmbeddingDimension int    `yaml:"embedding_dimension,omitempty"`

	WatchEnabled bool `yaml:"watch_enabled"`
}

// DefaultConfig returns a safe-for-tests configuration: no embedding
// backend configured, so CASCADE falls back to exact/naming-variant
// matching only — mirroring the teacher's "mock provider" testing
// default.
func DefaultConfig() Config {
	return Config{EmbeddingMode: EmbeddingModeMock, WatchEnabled: true}
}

// LoadConfig reads path's YAML config, returning DefaultConfig if the
// file doesn't exist yet (a freshly created workspace has none).
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, cerrors.E(cerrors.Storage, "workspace.LoadConfig", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, cerrors.E(cerrors.Storage, "workspace.LoadConfig", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return cerrors.E(cerrors.Storage, "workspace.SaveConfig", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cerrors.E(cerrors.Storage, "workspace.SaveConfig", err)
	}
	return nil
}
