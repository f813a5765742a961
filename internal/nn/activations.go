package nn

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
)

// Activation is a named elementwise function applied to a layer's output.
//
// The zero value is the identity ("linear") activation, which leaves the
// output untouched.
type Activation struct {
	name string
	fn   func(float32) float32
}

// Name returns the registered name of the activation ("linear" for identity).
func (a Activation) Name() string {
	if a.name == "" {
		return "linear"
	}
	return a.name
}

// IsIdentity reports whether applying the activation is a no-op.
func (a Activation) IsIdentity() bool {
	return a.fn == nil
}

// Apply evaluates the activation elementwise, in place.
func (a Activation) Apply(data []float32) {
	if a.fn == nil {
		return
	}
	for i, v := range data {
		data[i] = a.fn(v)
	}
}

// activations maps names to their pointwise functions. "linear" maps to nil,
// the identity.
var activations = map[string]func(float32) float32{
	"linear": nil,
	"relu": func(x float32) float32 {
		if x > 0 {
			return x
		}
		return 0
	},
	"leaky_relu": func(x float32) float32 {
		if x > 0 {
			return x
		}
		return 0.01 * x
	},
	"sigmoid": func(x float32) float32 {
		return 1 / (1 + math32.Exp(-x))
	},
	"tanh":     math32.Tanh,
	"softplus": func(x float32) float32 {
		// log(1+exp(x)) overflows for large x; shift the exponent negative.
		if x > 0 {
			return x + math32.Log1p(math32.Exp(-x))
		}
		return math32.Log1p(math32.Exp(x))
	},
}

// GetActivation resolves an activation by name.
//
// The empty string resolves to the identity activation; an unknown name
// fails with ErrUnknownActivation.
func GetActivation(name string) (Activation, error) {
	if name == "" {
		return Activation{}, nil
	}
	fn, ok := activations[name]
	if !ok {
		return Activation{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownActivation, name, ActivationNames())
	}
	return Activation{name: name, fn: fn}, nil
}

// ActivationNames returns the sorted names of all registered activations.
func ActivationNames() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
