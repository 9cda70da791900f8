// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// StandaloneConfig configures the remote-API embedder: an Ollama server
// reachable over HTTP, used when a workspace has no local GPU/llama.cpp
// model configured (spec's "standalone mode").
type StandaloneConfig struct {
	ServerURL string
	Model     string
	Dimension int
}

// StandaloneEmbedder embeds via a remote Ollama server through
// langchaingo, for workspaces running without an in-process model.
type StandaloneEmbedder struct {
	embedder embeddings.Embedder
	dim      int
}

// NewStandaloneEmbedder dials an Ollama server and wraps it in
// langchaingo's generic embeddings.Embedder, the same pattern used for
// any langchaingo-supported LLM client.
func NewStandaloneEmbedder(cfg StandaloneConfig) (*StandaloneEmbedder, error) {
	if cfg.ServerURL == "" {
		return nil, cerrors.E(cerrors.Embedding, "semantic.NewStandaloneEmbedder", fmt.Errorf("server URL is required"))
	}
	if cfg.Model == "" {
		return nil, cerrors.E(cerrors.Embedding, "semantic.NewStandaloneEmbedder", fmt.Errorf("model name is required"))
	}

	client, err := ollama.New(ollama.WithServerURL(cfg.ServerURL), ollama.WithModel(cfg.Model))
	if err != nil {
		return nil, cerrors.E(cerrors.Embedding, "semantic.NewStandaloneEmbedder", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, cerrors.E(cerrors.Embedding, "semantic.NewStandaloneEmbedder", err)
	}

	return &StandaloneEmbedder{embedder: embedder, dim: cfg.Dimension}, nil
}

func (e *StandaloneEmbedder) Dimension() int { return e.dim }

// Embed sends texts to the remote server as one embedding-documents
// call. There is no GPU/CPU distinction here — the execution-provider
// state machine in execprovider.go governs the local embedder only.
func (e *StandaloneEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, cerrors.E(cerrors.Embedding, "semantic.StandaloneEmbedder.Embed", err)
	}
	return vecs, nil
}

func (e *StandaloneEmbedder) Close() error { return nil }
