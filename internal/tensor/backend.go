package tensor

// ConvParams describes one concrete 2D cross-correlation.
//
// Padding amounts are explicit per edge; the layer translates its padding
// mode (valid/same) into these numbers before calling the backend, so the
// backend itself stays policy-free.
type ConvParams struct {
	StrideH, StrideW     int
	DilationH, DilationW int

	PadTop, PadBottom int
	PadLeft, PadRight int

	// ChannelsFirst selects NCHW input/output layout instead of NHWC.
	// The kernel layout is always HWIO: [kernel_h, kernel_w, in_channels, filters].
	ChannelsFirst bool
}

// PoolParams describes one concrete 2D pooling pass.
// Out-of-bounds window positions are skipped, not padded with values.
type PoolParams struct {
	KernelH, KernelW int
	StrideH, StrideW int

	PadTop, PadBottom int
	PadLeft, PadRight int

	ChannelsFirst bool
}

// Backend defines the compute operations layers rely on.
//
// Implementations must be reentrant: concurrent calls with distinct or
// shared (read-only) tensors are safe, and no scratch state is retained
// between calls.
type Backend interface {
	// Conv2D performs a strided, dilated 2D cross-correlation.
	//
	// Input:  [batch, height, width, in_channels] (NHWC) or NCHW per params.
	// Kernel: [kernel_h, kernel_w, in_channels, filters] (HWIO).
	// Output: [batch, out_h, out_w, filters] in the input's layout.
	Conv2D(input, kernel *RawTensor, p ConvParams) (*RawTensor, error)

	// BiasAdd adds a rank-1 bias along the channel axis of a rank-4 tensor,
	// broadcasting over batch and both spatial axes. Returns a new tensor.
	BiasAdd(x, bias *RawTensor, channelsFirst bool) (*RawTensor, error)

	// MaxPool2D performs 2D max pooling.
	MaxPool2D(input *RawTensor, p PoolParams) (*RawTensor, error)

	// Metadata
	Name() string
	Device() Device
}
