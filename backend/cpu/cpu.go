// Copyright 2025 The ConvKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU compute backend.
package cpu

import (
	internalcpu "github.com/convkit-ml/convkit/internal/backend/cpu"
	"github.com/convkit-ml/convkit/internal/tensor"
)

// Backend is the CPU backend implementation.
//
// Convolutions are lowered to a single BLAS matrix multiply via im2col;
// the im2col transform runs in parallel over the batch.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/convkit-ml/convkit/backend/cpu"
//	    "github.com/convkit-ml/convkit/tensor"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{1, 28, 28, 1}, backend)
func New() *Backend {
	return internalcpu.New()
}
