package nn

import (
	"math"
	"math/rand"

	"github.com/convkit-ml/convkit/internal/tensor"
)

// GlorotUniform initializes weights with the Glorot/Xavier uniform
// distribution: U(-limit, limit) where limit = sqrt(6 / (fan_in + fan_out)).
//
// This variance-scaling scheme keeps activation and gradient magnitudes
// roughly constant across layers.
func GlorotUniform[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros[float32](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * limit)
	}
	return t
}

// Zeros creates a zero-filled tensor. Commonly used for bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}
