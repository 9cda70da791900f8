// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"context"
	"log/slog"
	"sync"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// Device identifies the compute backend an embedder is currently using.
type Device string

const (
	DeviceGPU Device = "gpu"
	DeviceCPU Device = "cpu"
)

// batch size bounds per spec §4.4: a GPU-backed embedder batches
// [50,250] items at a time; CPU always uses a fixed 100. Larger GPU
// batches amortize kernel launch overhead but risk VRAM exhaustion on
// long inputs, hence the clamp instead of a single constant.
const (
	gpuBatchMin = 50
	gpuBatchMax = 250
	cpuBatch    = 100
)

// clampGPUBatch bounds a requested GPU batch size to [gpuBatchMin, gpuBatchMax].
func clampGPUBatch(requested int) int {
	if requested < gpuBatchMin {
		return gpuBatchMin
	}
	if requested > gpuBatchMax {
		return gpuBatchMax
	}
	return requested
}

// DeviceState tracks the embedding engine's compute backend across the
// lifetime of one workspace's embedder. It starts on GPU (when the
// caller asked for one) and falls back to CPU exactly once, permanently,
// the first time a GPU operation fails — spec §4.4's "one-shot CPU
// reinit" rule: a workspace that has already fallen back never retries
// the GPU, since a device that just failed is unlikely to recover
// mid-session and retrying it would re-pay the failure's latency on
// every subsequent call.
type DeviceState struct {
	mu           sync.Mutex
	current      Device
	fellBack     bool
	requestedGPU int
	logger       *slog.Logger
}

// NewDeviceState builds device-selection state. requestGPU indicates
// whether the caller configured a GPU execution provider at all;
// requestedBatch is the caller's preferred GPU batch size before
// clamping.
func NewDeviceState(requestGPU bool, requestedBatch int, logger *slog.Logger) *DeviceState {
	if logger == nil {
		logger = slog.Default()
	}
	d := DeviceCPU
	if requestGPU {
		d = DeviceGPU
	}
	return &DeviceState{current: d, requestedGPU: requestedBatch, logger: logger}
}

// Device returns the current compute backend.
func (s *DeviceState) Device() Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// BatchSize returns the batch size to use for the current device.
func (s *DeviceState) BatchSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == DeviceGPU {
		return clampGPUBatch(s.requestedGPU)
	}
	return cpuBatch
}

// ReportDeviceFailure records a GPU failure and permanently falls back
// to CPU if this is the first failure seen. It reports whether the
// state transitioned (i.e. whether the caller should retry the failed
// operation on CPU).
func (s *DeviceState) ReportDeviceFailure(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != DeviceGPU || s.fellBack {
		return false
	}
	s.current = DeviceCPU
	s.fellBack = true
	s.logger.Warn("embedding device failure, falling back to cpu", "error", err)
	return true
}

// WithDeviceFallback runs op on the current device; if it fails while
// on GPU, it reports the failure and retries once on CPU. Both the
// llama.cpp-backed local embedder and any future accelerated standalone
// client route their Embed calls through this so the one-shot fallback
// rule lives in one place.
func WithDeviceFallback(ctx context.Context, s *DeviceState, op func(ctx context.Context, device Device) error) error {
	device := s.Device()
	err := op(ctx, device)
	if err == nil {
		return nil
	}
	if device != DeviceGPU {
		return cerrors.E(cerrors.DeviceFailure, "semantic.WithDeviceFallback", err)
	}
	if !s.ReportDeviceFailure(err) {
		return cerrors.E(cerrors.DeviceFailure, "semantic.WithDeviceFallback", err)
	}
	if retryErr := op(ctx, DeviceCPU); retryErr != nil {
		return cerrors.E(cerrors.DeviceFailure, "semantic.WithDeviceFallback", retryErr)
	}
	return nil
}
