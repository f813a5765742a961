package nn

import "fmt"

// Padding selects how a sliding-window layer treats input borders.
type Padding string

// Recognized padding modes.
const (
	// PaddingValid keeps only window positions fully inside the input;
	// the output shrinks.
	PaddingValid Padding = "valid"

	// PaddingSame zero-pads the input symmetrically so the output spatial
	// extent is ceil(input / stride). When the total padding is odd, the
	// extra row/column goes to the bottom/right.
	PaddingSame Padding = "same"
)

// validate rejects anything but the two recognized modes.
func (p Padding) validate() error {
	switch p {
	case PaddingValid, PaddingSame:
		return nil
	default:
		return fmt.Errorf("%w: padding %q (want %q or %q)", ErrInvalidConfiguration, string(p), PaddingValid, PaddingSame)
	}
}

// DataLayout selects the axis ordering of rank-4 tensors.
//
// The layout is an explicit per-layer configuration value, not a
// process-wide setting, so a layer stays a pure function of its config.
type DataLayout string

// Recognized data layouts.
const (
	ChannelsLast  DataLayout = "channels_last"  // [batch, height, width, channels]
	ChannelsFirst DataLayout = "channels_first" // [batch, channels, height, width]
)

func (l DataLayout) validate() error {
	switch l {
	case ChannelsLast, ChannelsFirst:
		return nil
	default:
		return fmt.Errorf("%w: data layout %q (want %q or %q)", ErrInvalidConfiguration, string(l), ChannelsLast, ChannelsFirst)
	}
}

// channelAxis returns the channel axis index for rank-4 tensors.
func (l DataLayout) channelAxis() int {
	if l == ChannelsFirst {
		return 1
	}
	return 3
}

// spatialAxes returns the (height, width) axis indices for rank-4 tensors.
func (l DataLayout) spatialAxes() (int, int) {
	if l == ChannelsFirst {
		return 2, 3
	}
	return 1, 2
}

// convOutputLength computes the output extent of one spatial axis.
//
//	valid: floor((input - (kernel-1)*dilation - 1) / stride) + 1
//	same:  ceil(input / stride)
//
// A non-positive valid extent fails with ErrInvalidShape.
func convOutputLength(input, kernel, stride, dilation int, padding Padding) (int, error) {
	if padding == PaddingSame {
		return (input + stride - 1) / stride, nil
	}

	effectiveKernel := (kernel-1)*dilation + 1
	if input < effectiveKernel {
		// Checked before dividing: Go's integer division truncates toward
		// zero, so a negative numerator would round up to extent 1.
		return 0, fmt.Errorf("%w: kernel %d (dilation %d) exceeds input extent %d under valid padding",
			ErrInvalidShape, kernel, dilation, input)
	}
	return (input-effectiveKernel)/stride + 1, nil
}

// samePadding computes the explicit (before, after) zero padding that makes
// the output extent equal ceil(input / stride) for the given window.
func samePadding(input, kernel, stride, dilation int) (before, after int) {
	out := (input + stride - 1) / stride
	effectiveKernel := (kernel-1)*dilation + 1

	total := (out-1)*stride + effectiveKernel - input
	if total < 0 {
		total = 0
	}
	before = total / 2
	after = total - before
	return before, after
}
