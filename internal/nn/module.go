// Package nn implements neural network layers with a
// configure/build/forward lifecycle.
//
// Layers are constructed from an immutable configuration and allocate their
// weights lazily, on the first forward pass that observes a concrete input
// shape (or on an explicit Build). The package provides:
//   - Layer interface: the capability set every layer implements
//   - Conv2D: 2D convolution with valid/same padding, stride and dilation
//   - MaxPool2D: 2D max pooling under the same output-shape law
//   - Sequential: container chaining layers output-to-input
//   - Activation registry: named pointwise functions
//   - Parameter: trainable tensors exposed to an external optimizer
package nn

import (
	"github.com/convkit-ml/convkit/internal/tensor"
)

// Layer is the interface every layer implements.
//
// The lifecycle is two-state: unbuilt -> built, transitioned exactly once
// by Build (called explicitly or implicitly by the first Forward).
// Configuration is immutable after construction; only weight values change.
type Layer[B tensor.Backend] interface {
	// Build allocates the layer's weights for the given input shape.
	// Calling Build again with the same shape characteristics is a no-op;
	// calling it with conflicting ones fails with ErrShapeMismatch.
	Build(inputShape tensor.Shape) error

	// Forward computes the layer's output. If the layer is not yet built,
	// Build is invoked implicitly with the input's shape.
	Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)

	// OutputShape computes the output shape for an input shape without
	// running the layer. A batch dimension of tensor.DimUnknown is
	// propagated rather than rejected.
	OutputShape(inputShape tensor.Shape) (tensor.Shape, error)

	// Parameters returns all trainable parameters of this layer.
	// Layers without weights return nil.
	Parameters() []*Parameter[B]
}
