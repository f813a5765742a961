package nn

import (
	"fmt"
	"math/rand"

	"github.com/convkit-ml/convkit/internal/tensor"
)

// Conv2DConfig is the immutable construction-time configuration of a Conv2D
// layer. The zero values of Strides, DilationRate, Padding, Activation and
// DataLayout select the usual defaults: unit strides and dilation, valid
// padding, identity activation, channels-last layout.
//
// The struct round-trips through JSON; the activation is serialized by name.
type Conv2DConfig struct {
	Filters      int        `json:"filters"`
	KernelSize   [2]int     `json:"kernel_size"`
	Strides      [2]int     `json:"strides"`
	Padding      Padding    `json:"padding"`
	Activation   string     `json:"activation"`
	DilationRate [2]int     `json:"dilation_rate"`
	DataLayout   DataLayout `json:"data_layout"`
}

// withDefaults returns the config with zero-value fields replaced by their
// defaults. Partially-set pairs are left alone and rejected by validate.
func (c Conv2DConfig) withDefaults() Conv2DConfig {
	if c.Strides == ([2]int{}) {
		c.Strides = [2]int{1, 1}
	}
	if c.DilationRate == ([2]int{}) {
		c.DilationRate = [2]int{1, 1}
	}
	if c.Padding == "" {
		c.Padding = PaddingValid
	}
	if c.DataLayout == "" {
		c.DataLayout = ChannelsLast
	}
	return c
}

// validate checks the configuration. It does not touch the activation name;
// that is resolved separately so the caller can distinguish
// ErrUnknownActivation from ErrInvalidConfiguration.
func (c Conv2DConfig) validate() error {
	if c.Filters <= 0 {
		return fmt.Errorf("%w: filters must be positive, got %d", ErrInvalidConfiguration, c.Filters)
	}
	if c.KernelSize[0] <= 0 || c.KernelSize[1] <= 0 {
		return fmt.Errorf("%w: kernel size must be positive, got (%d, %d)", ErrInvalidConfiguration, c.KernelSize[0], c.KernelSize[1])
	}
	if c.Strides[0] <= 0 || c.Strides[1] <= 0 {
		return fmt.Errorf("%w: strides must be positive, got (%d, %d)", ErrInvalidConfiguration, c.Strides[0], c.Strides[1])
	}
	if c.DilationRate[0] <= 0 || c.DilationRate[1] <= 0 {
		return fmt.Errorf("%w: dilation rate must be positive, got (%d, %d)", ErrInvalidConfiguration, c.DilationRate[0], c.DilationRate[1])
	}
	if err := c.Padding.validate(); err != nil {
		return err
	}
	return c.DataLayout.validate()
}

// Conv2D is a 2D convolution layer.
//
// It owns two learnable tensors: a kernel of shape
// [kernel_h, kernel_w, in_channels, filters] and a bias of shape [filters].
// Since in_channels is only known once an input is seen, both are allocated
// lazily by Build (invoked explicitly or by the first Forward) and their
// shapes are frozen from then on.
//
// Forward computes a cross-correlation (no kernel flip) with the configured
// strides, dilation and padding, adds the bias, and applies the configured
// activation elementwise.
//
// Example:
//
//	conv, err := nn.NewConv2D(nn.Conv2DConfig{
//	    Filters:    32,
//	    KernelSize: [2]int{3, 3},
//	    Activation: "relu",
//	}, backend)
//	...
//	output, err := conv.Forward(input) // input [N, H, W, C]
//
// Build and Forward must not race each other on one instance; Forward calls
// on an already-built layer are safe to run concurrently.
type Conv2D[B tensor.Backend] struct {
	cfg Conv2DConfig
	act Activation
	rng *rand.Rand

	kernel     *Parameter[B] // [kernel_h, kernel_w, in_channels, filters]
	bias       *Parameter[B] // [filters]
	inChannels int
	built      bool

	backend B
}

// NewConv2D creates an unbuilt Conv2D layer from its configuration.
//
// The configuration is validated and the activation name resolved up front;
// no weights are allocated until Build.
func NewConv2D[B tensor.Backend](cfg Conv2DConfig, backend B) (*Conv2D[B], error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	act, err := GetActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}

	return &Conv2D[B]{
		cfg:     cfg,
		act:     act,
		rng:     rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // weight init is not security-critical
		backend: backend,
	}, nil
}

// FromConfig reconstructs an unbuilt Conv2D layer from a configuration
// produced by Config. Weights are freshly initialized on build, so only the
// layer's behavior, not its weight values, round-trips.
func FromConfig[B tensor.Backend](cfg Conv2DConfig, backend B) (*Conv2D[B], error) {
	return NewConv2D(cfg, backend)
}

// SetRand replaces the random source used for weight initialization.
// It has no effect once the layer is built.
func (c *Conv2D[B]) SetRand(rng *rand.Rand) {
	c.rng = rng
}

// Build allocates the kernel and bias for the given input shape.
//
// The kernel is Glorot-uniform initialized with
// fan_in = kernel_h*kernel_w*in_channels and
// fan_out = kernel_h*kernel_w*filters; the bias starts at zero.
//
// Building twice with the same channel count is a no-op; a different
// channel count after weights exist fails with ErrShapeMismatch
// (rebuilding is not supported).
func (c *Conv2D[B]) Build(inputShape tensor.Shape) error {
	if len(inputShape) != 4 {
		return fmt.Errorf("%w: conv2d expects a 4D input shape, got %v", ErrShapeMismatch, inputShape)
	}

	inChannels := inputShape[c.cfg.DataLayout.channelAxis()]
	if inChannels <= 0 {
		return fmt.Errorf("%w: input channel count must be known and positive, got %d", ErrShapeMismatch, inChannels)
	}

	if c.built {
		if inChannels == c.inChannels {
			return nil
		}
		return fmt.Errorf("%w: layer built for %d input channels, got %d", ErrShapeMismatch, c.inChannels, inChannels)
	}

	kh, kw := c.cfg.KernelSize[0], c.cfg.KernelSize[1]
	kernelShape := tensor.Shape{kh, kw, inChannels, c.cfg.Filters}
	fanIn := kh * kw * inChannels
	fanOut := kh * kw * c.cfg.Filters

	c.kernel = NewParameter("conv2d.kernel", GlorotUniform(fanIn, fanOut, kernelShape, c.rng, c.backend))
	c.bias = NewParameter("conv2d.bias", Zeros(tensor.Shape{c.cfg.Filters}, c.backend))
	c.inChannels = inChannels
	c.built = true
	return nil
}

// Forward runs the layer on a rank-4 input in the configured layout.
//
// An unbuilt layer is built implicitly from the input's channel count.
// An input whose rank is not 4 or whose channel count disagrees with the
// built weights fails with ErrShapeMismatch.
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		return nil, fmt.Errorf("%w: conv2d expects a 4D input, got %dD", ErrShapeMismatch, len(inputShape))
	}

	if !c.built {
		if err := c.Build(inputShape); err != nil {
			return nil, err
		}
	}
	if got := inputShape[c.cfg.DataLayout.channelAxis()]; got != c.inChannels {
		return nil, fmt.Errorf("%w: layer built for %d input channels, got %d", ErrShapeMismatch, c.inChannels, got)
	}

	params, err := c.convParams(inputShape)
	if err != nil {
		return nil, err
	}

	raw, err := c.backend.Conv2D(input.Raw(), c.kernel.Tensor().Raw(), params)
	if err != nil {
		return nil, fmt.Errorf("conv2d forward: %w", err)
	}

	raw, err = c.backend.BiasAdd(raw, c.bias.Tensor().Raw(), c.cfg.DataLayout == ChannelsFirst)
	if err != nil {
		return nil, fmt.Errorf("conv2d forward: %w", err)
	}

	output := tensor.New[float32, B](raw, c.backend)
	c.act.Apply(output.Data())
	return output, nil
}

// convParams resolves the layer configuration against a concrete input
// shape, turning the padding mode into explicit per-edge amounts.
func (c *Conv2D[B]) convParams(inputShape tensor.Shape) (tensor.ConvParams, error) {
	hAxis, wAxis := c.cfg.DataLayout.spatialAxes()
	inH, inW := inputShape[hAxis], inputShape[wAxis]

	p := tensor.ConvParams{
		StrideH:       c.cfg.Strides[0],
		StrideW:       c.cfg.Strides[1],
		DilationH:     c.cfg.DilationRate[0],
		DilationW:     c.cfg.DilationRate[1],
		ChannelsFirst: c.cfg.DataLayout == ChannelsFirst,
	}

	if c.cfg.Padding == PaddingSame {
		p.PadTop, p.PadBottom = samePadding(inH, c.cfg.KernelSize[0], p.StrideH, p.DilationH)
		p.PadLeft, p.PadRight = samePadding(inW, c.cfg.KernelSize[1], p.StrideW, p.DilationW)
		return p, nil
	}

	// Valid padding: surface an oversized kernel as ErrInvalidShape before
	// handing off to the backend.
	if _, err := convOutputLength(inH, c.cfg.KernelSize[0], p.StrideH, p.DilationH, PaddingValid); err != nil {
		return tensor.ConvParams{}, err
	}
	if _, err := convOutputLength(inW, c.cfg.KernelSize[1], p.StrideW, p.DilationW, PaddingValid); err != nil {
		return tensor.ConvParams{}, err
	}
	return p, nil
}

// OutputShape computes the output shape for an input shape without running
// the layer. For each spatial axis:
//
//	valid: floor((input - (kernel-1)*dilation - 1) / stride) + 1
//	same:  ceil(input / stride)
//
// The batch dimension may be tensor.DimUnknown and is propagated as such.
// The channel count of the output is always the configured filter count.
func (c *Conv2D[B]) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	if len(inputShape) != 4 {
		return nil, fmt.Errorf("%w: conv2d expects a 4D input shape, got %v", ErrShapeMismatch, inputShape)
	}

	hAxis, wAxis := c.cfg.DataLayout.spatialAxes()
	inH, inW := inputShape[hAxis], inputShape[wAxis]
	if inH <= 0 || inW <= 0 {
		return nil, fmt.Errorf("%w: spatial extents must be known and positive, got %dx%d", ErrInvalidShape, inH, inW)
	}

	outH, err := convOutputLength(inH, c.cfg.KernelSize[0], c.cfg.Strides[0], c.cfg.DilationRate[0], c.cfg.Padding)
	if err != nil {
		return nil, err
	}
	outW, err := convOutputLength(inW, c.cfg.KernelSize[1], c.cfg.Strides[1], c.cfg.DilationRate[1], c.cfg.Padding)
	if err != nil {
		return nil, err
	}

	batch := inputShape[0]
	if c.cfg.DataLayout == ChannelsFirst {
		return tensor.Shape{batch, c.cfg.Filters, outH, outW}, nil
	}
	return tensor.Shape{batch, outH, outW, c.cfg.Filters}, nil
}

// Parameters returns the kernel and bias, or nil before the layer is built.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if !c.built {
		return nil
	}
	return []*Parameter[B]{c.kernel, c.bias}
}

// Config returns the layer's configuration with defaults applied.
// Reconstructing a layer from it yields an equivalent unbuilt layer;
// weight values are not part of the configuration.
func (c *Conv2D[B]) Config() Conv2DConfig {
	cfg := c.cfg
	cfg.Activation = c.act.Name()
	return cfg
}

// Built reports whether the weights have been allocated.
func (c *Conv2D[B]) Built() bool {
	return c.built
}

// InChannels returns the input channel count the layer was built for,
// or 0 if unbuilt.
func (c *Conv2D[B]) InChannels() int {
	return c.inChannels
}

// Kernel returns the kernel parameter, or nil before build.
func (c *Conv2D[B]) Kernel() *Parameter[B] {
	return c.kernel
}

// Bias returns the bias parameter, or nil before build.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// String returns a human-readable description of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(filters=%d, kernel_size=(%d, %d), strides=(%d, %d), padding=%s, activation=%s, dilation_rate=(%d, %d), layout=%s)",
		c.cfg.Filters,
		c.cfg.KernelSize[0], c.cfg.KernelSize[1],
		c.cfg.Strides[0], c.cfg.Strides[1],
		c.cfg.Padding, c.act.Name(),
		c.cfg.DilationRate[0], c.cfg.DilationRate[1],
		c.cfg.DataLayout)
}
