package nn

import (
	"fmt"

	"github.com/convkit-ml/convkit/internal/tensor"
)

// MaxPool2DConfig configures a MaxPool2D layer. Zero-value Strides default
// to the pool size (non-overlapping pooling); zero-value Padding and
// DataLayout default to valid and channels-last.
type MaxPool2DConfig struct {
	PoolSize   [2]int     `json:"pool_size"`
	Strides    [2]int     `json:"strides"`
	Padding    Padding    `json:"padding"`
	DataLayout DataLayout `json:"data_layout"`
}

func (c MaxPool2DConfig) withDefaults() MaxPool2DConfig {
	if c.Strides == ([2]int{}) {
		c.Strides = c.PoolSize
	}
	if c.Padding == "" {
		c.Padding = PaddingValid
	}
	if c.DataLayout == "" {
		c.DataLayout = ChannelsLast
	}
	return c
}

func (c MaxPool2DConfig) validate() error {
	if c.PoolSize[0] <= 0 || c.PoolSize[1] <= 0 {
		return fmt.Errorf("%w: pool size must be positive, got (%d, %d)", ErrInvalidConfiguration, c.PoolSize[0], c.PoolSize[1])
	}
	if c.Strides[0] <= 0 || c.Strides[1] <= 0 {
		return fmt.Errorf("%w: strides must be positive, got (%d, %d)", ErrInvalidConfiguration, c.Strides[0], c.Strides[1])
	}
	if err := c.Padding.validate(); err != nil {
		return err
	}
	return c.DataLayout.validate()
}

// MaxPool2D is a 2D max pooling layer.
//
// It has no learnable parameters and follows the same valid/same
// output-shape law as Conv2D (with unit dilation). Under same padding,
// out-of-bounds positions are skipped rather than read as zeros, so padding
// never wins the max.
type MaxPool2D[B tensor.Backend] struct {
	cfg     MaxPool2DConfig
	backend B
}

// NewMaxPool2D creates a MaxPool2D layer from its configuration.
func NewMaxPool2D[B tensor.Backend](cfg MaxPool2DConfig, backend B) (*MaxPool2D[B], error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MaxPool2D[B]{cfg: cfg, backend: backend}, nil
}

// Build validates the input shape; pooling allocates no weights.
func (m *MaxPool2D[B]) Build(inputShape tensor.Shape) error {
	if len(inputShape) != 4 {
		return fmt.Errorf("%w: maxpool2d expects a 4D input shape, got %v", ErrShapeMismatch, inputShape)
	}
	return nil
}

// Forward runs max pooling on a rank-4 input in the configured layout.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	inputShape := input.Shape()
	if err := m.Build(inputShape); err != nil {
		return nil, err
	}

	hAxis, wAxis := m.cfg.DataLayout.spatialAxes()
	inH, inW := inputShape[hAxis], inputShape[wAxis]

	p := tensor.PoolParams{
		KernelH:       m.cfg.PoolSize[0],
		KernelW:       m.cfg.PoolSize[1],
		StrideH:       m.cfg.Strides[0],
		StrideW:       m.cfg.Strides[1],
		ChannelsFirst: m.cfg.DataLayout == ChannelsFirst,
	}

	if m.cfg.Padding == PaddingSame {
		p.PadTop, p.PadBottom = samePadding(inH, p.KernelH, p.StrideH, 1)
		p.PadLeft, p.PadRight = samePadding(inW, p.KernelW, p.StrideW, 1)
	} else {
		if _, err := convOutputLength(inH, p.KernelH, p.StrideH, 1, PaddingValid); err != nil {
			return nil, err
		}
		if _, err := convOutputLength(inW, p.KernelW, p.StrideW, 1, PaddingValid); err != nil {
			return nil, err
		}
	}

	raw, err := m.backend.MaxPool2D(input.Raw(), p)
	if err != nil {
		return nil, fmt.Errorf("maxpool2d forward: %w", err)
	}
	return tensor.New[float32, B](raw, m.backend), nil
}

// OutputShape computes the output shape without running the layer.
// The batch dimension may be tensor.DimUnknown and is propagated.
func (m *MaxPool2D[B]) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	if len(inputShape) != 4 {
		return nil, fmt.Errorf("%w: maxpool2d expects a 4D input shape, got %v", ErrShapeMismatch, inputShape)
	}

	hAxis, wAxis := m.cfg.DataLayout.spatialAxes()
	inH, inW := inputShape[hAxis], inputShape[wAxis]
	if inH <= 0 || inW <= 0 {
		return nil, fmt.Errorf("%w: spatial extents must be known and positive, got %dx%d", ErrInvalidShape, inH, inW)
	}

	outH, err := convOutputLength(inH, m.cfg.PoolSize[0], m.cfg.Strides[0], 1, m.cfg.Padding)
	if err != nil {
		return nil, err
	}
	outW, err := convOutputLength(inW, m.cfg.PoolSize[1], m.cfg.Strides[1], 1, m.cfg.Padding)
	if err != nil {
		return nil, err
	}

	batch := inputShape[0]
	channels := inputShape[m.cfg.DataLayout.channelAxis()]
	if m.cfg.DataLayout == ChannelsFirst {
		return tensor.Shape{batch, channels, outH, outW}, nil
	}
	return tensor.Shape{batch, outH, outW, channels}, nil
}

// Parameters returns nil; pooling has no trainable parameters.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// Config returns the layer's configuration with defaults applied.
func (m *MaxPool2D[B]) Config() MaxPool2DConfig {
	return m.cfg
}

// String returns a human-readable description of the layer.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(pool_size=(%d, %d), strides=(%d, %d), padding=%s, layout=%s)",
		m.cfg.PoolSize[0], m.cfg.PoolSize[1],
		m.cfg.Strides[0], m.cfg.Strides[1],
		m.cfg.Padding, m.cfg.DataLayout)
}
