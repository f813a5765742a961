// Copyright 2025 The ConvKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for ConvKit's neural network layers.
//
// Layers are configured up front and allocate their weights lazily the
// first time they see an input, so the input channel count never has to be
// spelled out in the configuration.
//
// Example:
//
//	backend := cpu.New()
//	conv, err := nn.NewConv2D(nn.Conv2DConfig{
//	    Filters:    32,
//	    KernelSize: [2]int{3, 3},
//	    Padding:    nn.PaddingSame,
//	    Activation: "relu",
//	}, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	output, err := conv.Forward(input) // input [N, H, W, C]
package nn

import (
	"math/rand"

	"github.com/convkit-ml/convkit/internal/nn"
	"github.com/convkit-ml/convkit/internal/tensor"
)

// Sentinel errors returned by layer constructors and operations. Wrapped
// errors carry detail; match with errors.Is.
var (
	ErrInvalidConfiguration = nn.ErrInvalidConfiguration
	ErrUnknownActivation    = nn.ErrUnknownActivation
	ErrShapeMismatch        = nn.ErrShapeMismatch
	ErrInvalidShape         = nn.ErrInvalidShape
)

// Padding selects how a sliding-window layer treats input borders.
type Padding = nn.Padding

// Recognized padding modes.
const (
	PaddingValid Padding = nn.PaddingValid
	PaddingSame  Padding = nn.PaddingSame
)

// DataLayout selects the axis ordering of rank-4 tensors.
type DataLayout = nn.DataLayout

// Recognized data layouts.
const (
	ChannelsLast  DataLayout = nn.ChannelsLast  // [batch, height, width, channels]
	ChannelsFirst DataLayout = nn.ChannelsFirst // [batch, channels, height, width]
)

// Layer is the common interface of all layers.
type Layer[B tensor.Backend] = nn.Layer[B]

// Parameter represents a trainable tensor owned by a layer.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Activation is a named elementwise function applied to a layer's output.
type Activation = nn.Activation

// GetActivation resolves an activation by name. The empty string resolves
// to the identity; an unknown name fails with ErrUnknownActivation.
func GetActivation(name string) (Activation, error) {
	return nn.GetActivation(name)
}

// ActivationNames returns the sorted names of all registered activations.
func ActivationNames() []string {
	return nn.ActivationNames()
}

// Layers

// Conv2DConfig is the construction-time configuration of a Conv2D layer.
type Conv2DConfig = nn.Conv2DConfig

// Conv2D is a 2D convolution layer with lazily-built weights.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates an unbuilt Conv2D layer from its configuration.
//
// Example:
//
//	backend := cpu.New()
//	conv, err := nn.NewConv2D(nn.Conv2DConfig{Filters: 32, KernelSize: [2]int{3, 3}}, backend)
func NewConv2D[B tensor.Backend](cfg Conv2DConfig, backend B) (*Conv2D[B], error) {
	return nn.NewConv2D(cfg, backend)
}

// FromConfig reconstructs an unbuilt Conv2D layer from a configuration
// produced by its Config method. Weights do not round-trip.
func FromConfig[B tensor.Backend](cfg Conv2DConfig, backend B) (*Conv2D[B], error) {
	return nn.FromConfig(cfg, backend)
}

// MaxPool2DConfig is the construction-time configuration of a MaxPool2D layer.
type MaxPool2DConfig = nn.MaxPool2DConfig

// MaxPool2D is a 2D max pooling layer.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a MaxPool2D layer from its configuration.
func NewMaxPool2D[B tensor.Backend](cfg MaxPool2DConfig, backend B) (*MaxPool2D[B], error) {
	return nn.NewMaxPool2D(cfg, backend)
}

// Sequential chains layers so each layer's output feeds the next.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a Sequential container over the given layers.
//
// Example:
//
//	model := nn.NewSequential(conv1, pool, conv2)
//	output, err := model.Forward(input)
func NewSequential[B tensor.Backend](layers ...Layer[B]) *Sequential[B] {
	return nn.NewSequential(layers...)
}

// Initializers

// GlorotUniform initializes weights with the Glorot/Xavier uniform
// distribution: U(-limit, limit) where limit = sqrt(6 / (fan_in + fan_out)).
func GlorotUniform[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.GlorotUniform(fanIn, fanOut, shape, rng, backend)
}

// Zeros creates a zero-filled tensor. Commonly used for bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}
