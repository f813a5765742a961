// Copyright 2025 The ConvKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor data in ConvKit.
//
// The package defines the core types layers operate on:
//   - Tensor[T, B]: high-level generic tensor with type safety
//   - RawTensor: low-level flat buffer for backend implementations
//   - Backend: interface for device-specific compute implementations
//   - Shape, DataType, Device: core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{1, 28, 28, 3}, backend)
package tensor

import (
	"github.com/convkit-ml/convkit/internal/tensor"
)

// DType is a constraint for tensor data types.
// Supported types: float32, float64.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// CPU is the only device currently implemented.
const CPU Device = tensor.CPU

// Shape represents the dimensions of a tensor.
// Example: Shape{1, 28, 28, 3} is a single 28x28 RGB image in NHWC layout.
type Shape = tensor.Shape

// DimUnknown marks a dimension whose extent is not yet known, such as the
// batch dimension during shape inference.
const DimUnknown = tensor.DimUnknown

// Backend is the interface compute backends implement.
type Backend = tensor.Backend

// ConvParams carries the resolved parameters of one convolution call.
type ConvParams = tensor.ConvParams

// PoolParams carries the resolved parameters of one pooling call.
type PoolParams = tensor.PoolParams

// RawTensor is the untyped flat buffer backends compute on.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized raw tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Tensor is a generic type-safe tensor.
//
// T is the element type (float32 or float64) and B the backend
// implementation.
//
// Example:
//
//	backend := cpu.New()
//	x, err := tensor.FromSlice(pixels, tensor.Shape{1, 28, 28, 1}, backend)
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// New wraps a raw tensor in a typed tensor. The raw dtype must match T.
func New[T DType, B Backend](raw *RawTensor, backend B) *Tensor[T, B] {
	return tensor.New[T](raw, backend)
}

// FromSlice creates a tensor holding a copy of data reshaped to shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, backend B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, backend)
}

// Zeros creates a zero-filled tensor.
func Zeros[T DType, B Backend](shape Shape, backend B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, backend)
}

// Ones creates a one-filled tensor.
func Ones[T DType, B Backend](shape Shape, backend B) *Tensor[T, B] {
	return tensor.Ones[T](shape, backend)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, backend B) *Tensor[T, B] {
	return tensor.Full(shape, value, backend)
}
