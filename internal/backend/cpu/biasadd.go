package cpu

import (
	"fmt"

	"github.com/convkit-ml/convkit/internal/tensor"
)

// BiasAdd adds a rank-1 bias along the channel axis of a rank-4 tensor,
// broadcasting over the batch and both spatial axes.
func (cpu *CPUBackend) BiasAdd(x, bias *tensor.RawTensor, channelsFirst bool) (*tensor.RawTensor, error) {
	xShape := x.Shape()
	biasShape := bias.Shape()

	if len(xShape) != 4 {
		return nil, fmt.Errorf("biasadd: input must be 4D, got %dD", len(xShape))
	}
	if len(biasShape) != 1 {
		return nil, fmt.Errorf("biasadd: bias must be 1D, got %dD", len(biasShape))
	}
	if x.DType() != bias.DType() {
		return nil, fmt.Errorf("biasadd: input dtype %s != bias dtype %s", x.DType(), bias.DType())
	}

	channelAxis := 3
	if channelsFirst {
		channelAxis = 1
	}
	channels := xShape[channelAxis]
	if biasShape[0] != channels {
		return nil, fmt.Errorf("biasadd: bias length %d != channel count %d", biasShape[0], channels)
	}

	result := x.Clone()

	switch x.DType() {
	case tensor.Float32:
		biasAddFloat32(result.AsFloat32(), bias.AsFloat32(), xShape, channelsFirst)
	case tensor.Float64:
		biasAddFloat64(result.AsFloat64(), bias.AsFloat64(), xShape, channelsFirst)
	default:
		return nil, fmt.Errorf("biasadd: unsupported dtype %s", x.DType())
	}

	return result, nil
}

func biasAddFloat32(data, bias []float32, shape tensor.Shape, channelsFirst bool) {
	if channelsFirst {
		// [N, C, H, W]: each channel is a contiguous plane.
		plane := shape[2] * shape[3]
		idx := 0
		for n := 0; n < shape[0]; n++ {
			for c := 0; c < shape[1]; c++ {
				b := bias[c]
				for i := 0; i < plane; i++ {
					data[idx] += b
					idx++
				}
			}
		}
		return
	}

	// [N, H, W, C]: channels are innermost.
	channels := shape[3]
	for i := range data {
		data[i] += bias[i%channels]
	}
}

func biasAddFloat64(data, bias []float64, shape tensor.Shape, channelsFirst bool) {
	if channelsFirst {
		plane := shape[2] * shape[3]
		idx := 0
		for n := 0; n < shape[0]; n++ {
			for c := 0; c < shape[1]; c++ {
				b := bias[c]
				for i := 0; i < plane; i++ {
					data[idx] += b
					idx++
				}
			}
		}
		return
	}

	channels := shape[3]
	for i := range data {
		data[i] += bias[i%channels]
	}
}
