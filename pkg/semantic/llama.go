// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"context"
	"log/slog"

	llama "github.com/go-skynet/go-llama.cpp"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// LocalConfig configures the on-box llama.cpp-backed embedder: a GGUF
// embedding model run either on GPU (when GPULayers > 0) or pure CPU.
type LocalConfig struct {
	ModelPath string
	GPULayers int
	Threads   int
	BatchSize int // preferred GPU batch size before [50,250] clamp
}

// LocalEmbedder runs embeddings in-process via go-llama.cpp, with the
// device-fallback state machine in execprovider.go handling a one-shot
// GPU->CPU demotion if the GPU context fails to produce embeddings.
type LocalEmbedder struct {
	cfg    LocalConfig
	gpu    *llama.LLama
	cpu    *llama.LLama
	device *DeviceState
	dim    int
	logger *slog.Logger
}

// NewLocalEmbedder loads the model once for GPU (if configured) and
// lazily loads a second CPU-only context only if/when the GPU path
// fails, avoiding the cost of holding two loaded contexts for the
// common case where the GPU never fails.
func NewLocalEmbedder(cfg LocalConfig, logger *slog.Logger) (*LocalEmbedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []llama.ModelOption{llama.SetContext(2048), llama.EnableEmbeddings}
	useGPU := cfg.GPULayers > 0
	if useGPU {
		opts = append(opts, llama.SetGPULayers(cfg.GPULayers))
	}
	model, err := llama.New(cfg.ModelPath, opts...)
	if err != nil {
		return nil, cerrors.E(cerrors.DeviceFailure, "semantic.NewLocalEmbedder", err)
	}

	e := &LocalEmbedder{
		cfg:    cfg,
		device: NewDeviceState(useGPU, cfg.BatchSize, logger),
		logger: logger,
	}
	if useGPU {
		e.gpu = model
	} else {
		e.cpu = model
	}

	probe, err := model.Embeddings("probe")
	if err != nil {
		return nil, cerrors.E(cerrors.Embedding, "semantic.NewLocalEmbedder", err)
	}
	e.dim = len(probe)
	return e, nil
}

func (e *LocalEmbedder) Dimension() int { return e.dim }

// Embed runs one batch of texts through the active device's llama.cpp
// context, one Embeddings() call per text (go-llama.cpp has no native
// batched-embedding call), falling back to a lazily-loaded CPU context
// on the first GPU failure.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	err := WithDeviceFallback(ctx, e.device, func(ctx context.Context, device Device) error {
		model, err := e.modelFor(device)
		if err != nil {
			return err
		}
		for i, t := range texts {
			v, err := model.Embeddings(t)
			if err != nil {
				return err
			}
			out[i] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// modelFor returns the loaded context for device, lazily loading a
// CPU-only context the first time the GPU path is abandoned.
func (e *LocalEmbedder) modelFor(device Device) (*llama.LLama, error) {
	if device == DeviceGPU {
		return e.gpu, nil
	}
	if e.cpu != nil {
		return e.cpu, nil
	}
	model, err := llama.New(e.cfg.ModelPath, llama.SetContext(2048), llama.EnableEmbeddings)
	if err != nil {
		return nil, cerrors.E(cerrors.DeviceFailure, "semantic.LocalEmbedder.modelFor", err)
	}
	e.cpu = model
	return model, nil
}

func (e *LocalEmbedder) Close() error {
	if e.gpu != nil {
		e.gpu.Free()
	}
	if e.cpu != nil {
		e.cpu.Free()
	}
	return nil
}
