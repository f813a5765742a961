package cpu

import (
	"fmt"
	"math"

	"github.com/convkit-ml/convkit/internal/tensor"
)

// MaxPool2D performs 2D max pooling.
//
// Pooling has no learnable parameters: each output element is the maximum
// over one kernel window. Window positions that fall outside the input
// (under nonzero padding) are skipped rather than treated as zeros, so
// padding never contributes a value.
//
// Input shape:  [batch, height, width, channels] (or NCHW per params)
// Output shape: [batch, out_h, out_w, channels] in the input's layout
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, p tensor.PoolParams) (*tensor.RawTensor, error) {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		return nil, fmt.Errorf("maxpool2d: input must be 4D, got %dD", len(inputShape))
	}
	if p.KernelH <= 0 || p.KernelW <= 0 {
		return nil, fmt.Errorf("maxpool2d: invalid kernel size (%d, %d)", p.KernelH, p.KernelW)
	}
	if p.StrideH <= 0 || p.StrideW <= 0 {
		return nil, fmt.Errorf("maxpool2d: invalid strides (%d, %d)", p.StrideH, p.StrideW)
	}

	N, H, W, C := splitInputShape(inputShape, p.ChannelsFirst)

	HOut := (H+p.PadTop+p.PadBottom-p.KernelH)/p.StrideH + 1
	WOut := (W+p.PadLeft+p.PadRight-p.KernelW)/p.StrideW + 1
	if HOut <= 0 || WOut <= 0 {
		return nil, fmt.Errorf("maxpool2d: non-positive output extent %dx%d (input %dx%d, kernel %dx%d, stride %dx%d)",
			HOut, WOut, H, W, p.KernelH, p.KernelW, p.StrideH, p.StrideW)
	}

	outShape := tensor.Shape{N, HOut, WOut, C}
	if p.ChannelsFirst {
		outShape = tensor.Shape{N, C, HOut, WOut}
	}
	output, err := tensor.NewRaw(outShape, input.DType(), cpu.device)
	if err != nil {
		return nil, fmt.Errorf("maxpool2d: %w", err)
	}

	d := convDims{N: N, H: H, W: W, CIn: C, HOut: HOut, WOut: WOut}

	switch input.DType() {
	case tensor.Float32:
		maxpool2dFloat32(output.AsFloat32(), input.AsFloat32(), d, p)
	case tensor.Float64:
		maxpool2dFloat64(output.AsFloat64(), input.AsFloat64(), d, p)
	default:
		return nil, fmt.Errorf("maxpool2d: unsupported dtype %s", input.DType())
	}

	return output, nil
}

func maxpool2dFloat32(outputData, inputData []float32, d convDims, p tensor.PoolParams) {
	outIdx := func(n, oh, ow, c int) int {
		if p.ChannelsFirst {
			return ((n*d.CIn+c)*d.HOut+oh)*d.WOut + ow
		}
		return ((n*d.HOut+oh)*d.WOut+ow)*d.CIn + c
	}

	for n := 0; n < d.N; n++ {
		for oh := 0; oh < d.HOut; oh++ {
			hStart := oh*p.StrideH - p.PadTop
			for ow := 0; ow < d.WOut; ow++ {
				wStart := ow*p.StrideW - p.PadLeft
				for c := 0; c < d.CIn; c++ {
					maxVal := float32(math.Inf(-1))
					for kh := 0; kh < p.KernelH; kh++ {
						h := hStart + kh
						if h < 0 || h >= d.H {
							continue
						}
						for kw := 0; kw < p.KernelW; kw++ {
							w := wStart + kw
							if w < 0 || w >= d.W {
								continue
							}
							v := inputData[inputIndex(n, h, w, c, d, p.ChannelsFirst)]
							if v > maxVal {
								maxVal = v
							}
						}
					}
					outputData[outIdx(n, oh, ow, c)] = maxVal
				}
			}
		}
	}
}

func maxpool2dFloat64(outputData, inputData []float64, d convDims, p tensor.PoolParams) {
	outIdx := func(n, oh, ow, c int) int {
		if p.ChannelsFirst {
			return ((n*d.CIn+c)*d.HOut+oh)*d.WOut + ow
		}
		return ((n*d.HOut+oh)*d.WOut+ow)*d.CIn + c
	}

	for n := 0; n < d.N; n++ {
		for oh := 0; oh < d.HOut; oh++ {
			hStart := oh*p.StrideH - p.PadTop
			for ow := 0; ow < d.WOut; ow++ {
				wStart := ow*p.StrideW - p.PadLeft
				for c := 0; c < d.CIn; c++ {
					maxVal := math.Inf(-1)
					for kh := 0; kh < p.KernelH; kh++ {
						h := hStart + kh
						if h < 0 || h >= d.H {
							continue
						}
						for kw := 0; kw < p.KernelW; kw++ {
							w := wStart + kw
							if w < 0 || w >= d.W {
								continue
							}
							v := inputData[inputIndex(n, h, w, c, d, p.ChannelsFirst)]
							if v > maxVal {
								maxVal = v
							}
						}
					}
					outputData[outIdx(n, oh, ow, c)] = maxVal
				}
			}
		}
	}
}
