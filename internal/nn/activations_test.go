package nn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActivation(t *testing.T) {
	relu, err := GetActivation("relu")
	require.NoError(t, err)
	assert.Equal(t, "relu", relu.Name())
	assert.False(t, relu.IsIdentity())

	data := []float32{-2, -0.5, 0, 1, 3}
	relu.Apply(data)
	assert.Equal(t, []float32{0, 0, 0, 1, 3}, data)
}

func TestGetActivation_Identity(t *testing.T) {
	for _, name := range []string{"", "linear"} {
		act, err := GetActivation(name)
		require.NoError(t, err)
		assert.True(t, act.IsIdentity())
		assert.Equal(t, "linear", act.Name())

		data := []float32{-1, 2, 3}
		act.Apply(data)
		assert.Equal(t, []float32{-1, 2, 3}, data)
	}
}

func TestGetActivation_Unknown(t *testing.T) {
	_, err := GetActivation("gelu6")
	assert.True(t, errors.Is(err, ErrUnknownActivation))
	assert.Contains(t, err.Error(), "gelu6")
}

func TestActivation_Sigmoid(t *testing.T) {
	sigmoid, err := GetActivation("sigmoid")
	require.NoError(t, err)

	data := []float32{0}
	sigmoid.Apply(data)
	assert.InDelta(t, 0.5, data[0], 1e-6)

	data = []float32{-100, 100}
	sigmoid.Apply(data)
	assert.InDelta(t, 0, data[0], 1e-6)
	assert.InDelta(t, 1, data[1], 1e-6)
}

func TestActivation_LeakyRelu(t *testing.T) {
	leaky, err := GetActivation("leaky_relu")
	require.NoError(t, err)

	data := []float32{-10, 5}
	leaky.Apply(data)
	assert.InDelta(t, -0.1, data[0], 1e-6)
	assert.Equal(t, float32(5), data[1])
}

func TestActivation_Softplus(t *testing.T) {
	softplus, err := GetActivation("softplus")
	require.NoError(t, err)

	data := []float32{0}
	softplus.Apply(data)
	assert.InDelta(t, 0.6931472, data[0], 1e-6)

	// Large inputs approach the identity and must not overflow to +Inf.
	data = []float32{100, 1000, -100}
	softplus.Apply(data)
	assert.Equal(t, float32(100), data[0])
	assert.Equal(t, float32(1000), data[1])
	assert.InDelta(t, 0, data[2], 1e-6)
}

func TestActivationNames(t *testing.T) {
	names := ActivationNames()
	assert.Equal(t, []string{"leaky_relu", "linear", "relu", "sigmoid", "softplus", "tanh"}, names)
}
