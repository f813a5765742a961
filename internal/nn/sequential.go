package nn

import (
	"fmt"

	"github.com/convkit-ml/convkit/internal/tensor"
)

// Sequential chains layers so that each layer's output feeds the next
// layer's input. This is the composition surface a host framework uses to
// assemble models out of layers.
//
// Example:
//
//	conv1, _ := nn.NewConv2D(nn.Conv2DConfig{Filters: 32, KernelSize: [2]int{3, 3}, Activation: "relu"}, backend)
//	pool, _ := nn.NewMaxPool2D(nn.MaxPool2DConfig{PoolSize: [2]int{2, 2}}, backend)
//	conv2, _ := nn.NewConv2D(nn.Conv2DConfig{Filters: 64, KernelSize: [2]int{3, 3}, Activation: "relu"}, backend)
//	model := nn.NewSequential(conv1, pool, conv2)
//
//	output, err := model.Forward(input)
type Sequential[B tensor.Backend] struct {
	layers []Layer[B]
}

// NewSequential creates a Sequential container over the given layers.
func NewSequential[B tensor.Backend](layers ...Layer[B]) *Sequential[B] {
	return &Sequential[B]{layers: layers}
}

// Build builds every layer, propagating each layer's output shape into the
// next layer's build.
func (s *Sequential[B]) Build(inputShape tensor.Shape) error {
	shape := inputShape
	for i, layer := range s.layers {
		if err := layer.Build(shape); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		next, err := layer.OutputShape(shape)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		shape = next
	}
	return nil
}

// Forward applies all layers in sequence. Unbuilt layers build themselves
// lazily as tensors flow through.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	output := input
	for i, layer := range s.layers {
		next, err := layer.Forward(output)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		output = next
	}
	return output, nil
}

// OutputShape computes the shape produced by the full chain for an input
// shape, without running any layer.
func (s *Sequential[B]) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	shape := inputShape
	for i, layer := range s.layers {
		next, err := layer.OutputShape(shape)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		shape = next
	}
	return shape, nil
}

// Parameters returns the trainable parameters of all layers, in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, layer := range s.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// Add appends a layer to the chain.
func (s *Sequential[B]) Add(layer Layer[B]) {
	s.layers = append(s.layers, layer)
}

// Len returns the number of layers.
func (s *Sequential[B]) Len() int {
	return len(s.layers)
}

// Layer returns the layer at the given index.
// Panics if index is out of bounds.
func (s *Sequential[B]) Layer(index int) Layer[B] {
	if index < 0 || index >= len(s.layers) {
		panic("Sequential.Layer: index out of bounds")
	}
	return s.layers[index]
}
