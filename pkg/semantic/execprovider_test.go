// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampGPUBatch(t *testing.T) {
	assert.Equal(t, gpuBatchMin, clampGPUBatch(1))
	assert.Equal(t, gpuBatchMax, clampGPUBatch(9999))
	assert.Equal(t, 120, clampGPUBatch(120))
}

func TestDeviceStateBatchSizeByDevice(t *testing.T) {
	s := NewDeviceState(true, 300, nil)
	assert.Equal(t, DeviceGPU, s.Device())
	assert.Equal(t, gpuBatchMax, s.BatchSize())

	s2 := NewDeviceState(false, 300, nil)
	assert.Equal(t, DeviceCPU, s2.Device())
	assert.Equal(t, cpuBatch, s2.BatchSize())
}

func TestReportDeviceFailureFallsBackOnce(t *testing.T) {
	s := NewDeviceState(true, 100, nil)
	assert.True(t, s.ReportDeviceFailure(errors.New("boom")))
	assert.Equal(t, DeviceCPU, s.Device())
	assert.False(t, s.ReportDeviceFailure(errors.New("boom again")), "second failure is a no-op, already on cpu")
}

func TestWithDeviceFallbackRetriesOnCPU(t *testing.T) {
	s := NewDeviceState(true, 100, nil)
	calls := []Device{}
	err := WithDeviceFallback(context.Background(), s, func(ctx context.Context, device Device) error {
		calls = append(calls, device)
		if device == DeviceGPU {
			return errors.New("gpu context failed")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Device{DeviceGPU, DeviceCPU}, calls)
	assert.Equal(t, DeviceCPU, s.Device())
}

func TestWithDeviceFallbackReturnsErrorWhenCPUAlsoFails(t *testing.T) {
	s := NewDeviceState(true, 100, nil)
	err := WithDeviceFallback(context.Background(), s, func(ctx context.Context, device Device) error {
		return errors.New("cpu failed too")
	})
	assert.Error(t, err)
}
