package cpu

import (
	"testing"

	"github.com/convkit-ml/convkit/internal/tensor"
)

func TestBiasAdd_ChannelsLast(t *testing.T) {
	backend := New()

	x := newRawF32(t, tensor.Shape{1, 2, 2, 2}, []float32{1, 1, 2, 2, 3, 3, 4, 4})
	bias := newRawF32(t, tensor.Shape{2}, []float32{10, 20})

	out, err := backend.BiasAdd(x, bias, false)
	if err != nil {
		t.Fatalf("BiasAdd: %v", err)
	}

	assertF32(t, out.AsFloat32(), []float32{11, 21, 12, 22, 13, 23, 14, 24})

	// Input is untouched.
	assertF32(t, x.AsFloat32(), []float32{1, 1, 2, 2, 3, 3, 4, 4})
}

func TestBiasAdd_ChannelsFirst(t *testing.T) {
	backend := New()

	x := newRawF32(t, tensor.Shape{1, 2, 2, 2}, []float32{1, 2, 3, 4, 1, 2, 3, 4})
	bias := newRawF32(t, tensor.Shape{2}, []float32{10, 20})

	out, err := backend.BiasAdd(x, bias, true)
	if err != nil {
		t.Fatalf("BiasAdd: %v", err)
	}

	assertF32(t, out.AsFloat32(), []float32{11, 12, 13, 14, 21, 22, 23, 24})
}

func TestBiasAdd_Errors(t *testing.T) {
	backend := New()

	x := newRawF32(t, tensor.Shape{1, 2, 2, 2}, make([]float32, 8))

	t.Run("WrongBiasLength", func(t *testing.T) {
		bias := newRawF32(t, tensor.Shape{3}, []float32{1, 2, 3})
		if _, err := backend.BiasAdd(x, bias, false); err == nil {
			t.Error("expected error for bias length mismatch")
		}
	})

	t.Run("WrongRank", func(t *testing.T) {
		bias := newRawF32(t, tensor.Shape{2}, []float32{1, 2})
		bad := newRawF32(t, tensor.Shape{2, 2}, make([]float32, 4))
		if _, err := backend.BiasAdd(bad, bias, false); err == nil {
			t.Error("expected error for 2D input")
		}
	})
}
