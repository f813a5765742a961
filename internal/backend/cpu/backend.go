// Package cpu implements the CPU compute backend using im2col and BLAS.
package cpu

import (
	"github.com/convkit-ml/convkit/internal/parallel"
	"github.com/convkit-ml/convkit/internal/tensor"
)

// CPUBackend implements tensor operations on CPU. Convolutions are lowered
// to a GEMM via im2col; the im2col transform runs in parallel over the batch.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}
