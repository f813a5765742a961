package nn

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/convkit-ml/convkit/internal/backend/cpu"
	"github.com/convkit-ml/convkit/internal/tensor"
)

func newTestConv(t *testing.T, cfg Conv2DConfig) *Conv2D[*cpu.CPUBackend] {
	t.Helper()
	conv, err := NewConv2D(cfg, cpu.New())
	if err != nil {
		t.Fatalf("NewConv2D: %v", err)
	}
	conv.SetRand(rand.New(rand.NewSource(42)))
	return conv
}

func imageTensor(t *testing.T, shape tensor.Shape, data []float32) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	tt, err := tensor.FromSlice(data, shape, cpu.New())
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return tt
}

func rampData(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i + 1)
	}
	return data
}

func TestNewConv2D_ConfigValidation(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name string
		cfg  Conv2DConfig
		want error
	}{
		{"ZeroFilters", Conv2DConfig{Filters: 0, KernelSize: [2]int{3, 3}}, ErrInvalidConfiguration},
		{"NegativeFilters", Conv2DConfig{Filters: -4, KernelSize: [2]int{3, 3}}, ErrInvalidConfiguration},
		{"ZeroKernel", Conv2DConfig{Filters: 8, KernelSize: [2]int{0, 3}}, ErrInvalidConfiguration},
		{"NegativeStride", Conv2DConfig{Filters: 8, KernelSize: [2]int{3, 3}, Strides: [2]int{-1, 1}}, ErrInvalidConfiguration},
		{"ZeroDilation", Conv2DConfig{Filters: 8, KernelSize: [2]int{3, 3}, DilationRate: [2]int{0, 1}}, ErrInvalidConfiguration},
		{"BadPadding", Conv2DConfig{Filters: 8, KernelSize: [2]int{3, 3}, Padding: "causal"}, ErrInvalidConfiguration},
		{"BadLayout", Conv2DConfig{Filters: 8, KernelSize: [2]int{3, 3}, DataLayout: "channels_middle"}, ErrInvalidConfiguration},
		{"BadActivation", Conv2DConfig{Filters: 8, KernelSize: [2]int{3, 3}, Activation: "swoosh"}, ErrUnknownActivation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConv2D(tt.cfg, backend)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConv2D_LazyBuild(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 2, KernelSize: [2]int{3, 3}})

	if conv.Built() {
		t.Fatal("layer built before seeing an input")
	}
	if conv.Parameters() != nil {
		t.Fatal("parameters exist before build")
	}

	input := imageTensor(t, tensor.Shape{1, 5, 5, 3}, rampData(75))
	if _, err := conv.Forward(input); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if !conv.Built() {
		t.Fatal("forward did not build the layer")
	}
	if conv.InChannels() != 3 {
		t.Fatalf("InChannels = %d, want 3", conv.InChannels())
	}
	if !conv.Kernel().Tensor().Shape().Equal(tensor.Shape{3, 3, 3, 2}) {
		t.Fatalf("kernel shape %v, want [3 3 3 2]", conv.Kernel().Tensor().Shape())
	}
	if !conv.Bias().Tensor().Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("bias shape %v, want [2]", conv.Bias().Tensor().Shape())
	}
	if got := len(conv.Parameters()); got != 2 {
		t.Fatalf("len(Parameters) = %d, want 2", got)
	}
}

func TestConv2D_BuildIdempotent(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 4, KernelSize: [2]int{2, 2}})

	if err := conv.Build(tensor.Shape{1, 8, 8, 3}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	before := append([]float32(nil), conv.Kernel().Tensor().Data()...)

	// Same channel count: no-op, weights untouched.
	if err := conv.Build(tensor.Shape{7, 16, 16, 3}); err != nil {
		t.Fatalf("rebuild with same channels: %v", err)
	}
	after := conv.Kernel().Tensor().Data()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("weight %d changed on no-op rebuild", i)
		}
	}

	// Different channel count: rejected.
	err := conv.Build(tensor.Shape{1, 8, 8, 5})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("rebuild with different channels: got %v, want ErrShapeMismatch", err)
	}
}

func TestConv2D_BuildErrors(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 4, KernelSize: [2]int{2, 2}})

	if err := conv.Build(tensor.Shape{8, 8, 3}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("3D shape: got %v, want ErrShapeMismatch", err)
	}
	if err := conv.Build(tensor.Shape{1, 8, 8, tensor.DimUnknown}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("unknown channels: got %v, want ErrShapeMismatch", err)
	}
}

func TestConv2D_ForwardChannelMismatch(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 2, KernelSize: [2]int{2, 2}})

	if err := conv.Build(tensor.Shape{1, 4, 4, 3}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	input := imageTensor(t, tensor.Shape{1, 4, 4, 2}, rampData(32))
	_, err := conv.Forward(input)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("got %v, want ErrShapeMismatch", err)
	}
}

// Fixed weights, hand-computed expectation: 2x2 kernel [1,2;3,4] over a 4x4
// ramp input with bias 10.
func TestConv2D_ForwardKnownValues(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 1, KernelSize: [2]int{2, 2}})

	if err := conv.Build(tensor.Shape{1, 4, 4, 1}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	copy(conv.Kernel().Tensor().Data(), []float32{1, 2, 3, 4})
	conv.Bias().Tensor().Data()[0] = 10

	input := imageTensor(t, tensor.Shape{1, 4, 4, 1}, rampData(16))
	out, err := conv.Forward(input)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if !out.Shape().Equal(tensor.Shape{1, 3, 3, 1}) {
		t.Fatalf("output shape %v, want [1 3 3 1]", out.Shape())
	}
	want := []float32{54, 64, 74, 94, 104, 114, 134, 144, 154}
	for i, v := range out.Data() {
		if v != want[i] {
			t.Fatalf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestConv2D_ActivationApplied(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 1, KernelSize: [2]int{1, 1}, Activation: "relu"})

	if err := conv.Build(tensor.Shape{1, 2, 2, 1}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	conv.Kernel().Tensor().Data()[0] = 1

	input := imageTensor(t, tensor.Shape{1, 2, 2, 1}, []float32{-3, -1, 2, 5})
	out, err := conv.Forward(input)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	want := []float32{0, 0, 2, 5}
	for i, v := range out.Data() {
		if v != want[i] {
			t.Fatalf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestConv2D_ForwardDeterministic(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 3, KernelSize: [2]int{3, 3}, Padding: PaddingSame, Activation: "tanh"})

	input := imageTensor(t, tensor.Shape{2, 6, 6, 2}, rampData(144))

	first, err := conv.Forward(input)
	if err != nil {
		t.Fatalf("first Forward: %v", err)
	}
	second, err := conv.Forward(input)
	if err != nil {
		t.Fatalf("second Forward: %v", err)
	}

	a, b := first.Data(), second.Data()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("element %d differs between identical forwards: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestConv2D_ForwardShapeMatchesOutputShape(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Conv2DConfig
		input tensor.Shape
		want  tensor.Shape
	}{
		{
			"ValidImageNet",
			Conv2DConfig{Filters: 32, KernelSize: [2]int{3, 3}},
			tensor.Shape{1, 224, 224, 3},
			tensor.Shape{1, 222, 222, 32},
		},
		{
			"SameImageNet",
			Conv2DConfig{Filters: 32, KernelSize: [2]int{3, 3}, Padding: PaddingSame},
			tensor.Shape{1, 224, 224, 3},
			tensor.Shape{1, 224, 224, 32},
		},
		{
			"SameStride2",
			Conv2DConfig{Filters: 4, KernelSize: [2]int{3, 3}, Strides: [2]int{2, 2}, Padding: PaddingSame},
			tensor.Shape{2, 7, 7, 1},
			tensor.Shape{2, 4, 4, 4},
		},
		{
			"ValidDilated",
			Conv2DConfig{Filters: 2, KernelSize: [2]int{3, 3}, DilationRate: [2]int{2, 2}},
			tensor.Shape{1, 9, 9, 1},
			tensor.Shape{1, 5, 5, 2},
		},
		{
			"KernelEqualsInput",
			Conv2DConfig{Filters: 2, KernelSize: [2]int{5, 5}},
			tensor.Shape{1, 5, 5, 1},
			tensor.Shape{1, 1, 1, 2},
		},
		{
			"ChannelsFirst",
			Conv2DConfig{Filters: 6, KernelSize: [2]int{3, 3}, DataLayout: ChannelsFirst},
			tensor.Shape{1, 2, 8, 8},
			tensor.Shape{1, 6, 6, 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := newTestConv(t, tt.cfg)

			predicted, err := conv.OutputShape(tt.input)
			if err != nil {
				t.Fatalf("OutputShape: %v", err)
			}
			if !predicted.Equal(tt.want) {
				t.Fatalf("OutputShape = %v, want %v", predicted, tt.want)
			}

			input := imageTensor(t, tt.input, rampData(tt.input.NumElements()))
			out, err := conv.Forward(input)
			if err != nil {
				t.Fatalf("Forward: %v", err)
			}
			if !out.Shape().Equal(predicted) {
				t.Fatalf("Forward shape %v disagrees with OutputShape %v", out.Shape(), predicted)
			}
		})
	}
}

func TestConv2D_OutputShapeUnknownBatch(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 16, KernelSize: [2]int{3, 3}, Padding: PaddingSame})

	out, err := conv.OutputShape(tensor.Shape{tensor.DimUnknown, 28, 28, 1})
	if err != nil {
		t.Fatalf("OutputShape: %v", err)
	}
	if !out.Equal(tensor.Shape{tensor.DimUnknown, 28, 28, 16}) {
		t.Fatalf("OutputShape = %v, want [-1 28 28 16]", out)
	}
}

func TestConv2D_OutputShapeErrors(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 2, KernelSize: [2]int{7, 7}})

	// Kernel larger than input under valid padding.
	if _, err := conv.OutputShape(tensor.Shape{1, 5, 5, 1}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("oversized kernel: got %v, want ErrInvalidShape", err)
	}
	if _, err := conv.OutputShape(tensor.Shape{5, 5, 1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("3D shape: got %v, want ErrShapeMismatch", err)
	}
	if _, err := conv.OutputShape(tensor.Shape{1, tensor.DimUnknown, 5, 1}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("unknown height: got %v, want ErrInvalidShape", err)
	}

	// Forward on an undersized input surfaces the same error.
	input := imageTensor(t, tensor.Shape{1, 5, 5, 1}, rampData(25))
	if _, err := conv.Forward(input); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("forward with oversized kernel: got %v, want ErrInvalidShape", err)
	}
}

func TestConv2D_StridedKernelLargerThanInput(t *testing.T) {
	// With stride 2 the truncating division would report a phantom 1x1
	// extent for an oversized kernel; it must fail instead.
	conv := newTestConv(t, Conv2DConfig{Filters: 1, KernelSize: [2]int{5, 5}, Strides: [2]int{2, 2}})

	if _, err := conv.OutputShape(tensor.Shape{1, 4, 4, 1}); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("OutputShape: got %v, want ErrInvalidShape", err)
	}

	input := imageTensor(t, tensor.Shape{1, 4, 4, 1}, rampData(16))
	if _, err := conv.Forward(input); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("Forward: got %v, want ErrInvalidShape", err)
	}
}

func TestConv2D_DilatedKernelLargerThanInput(t *testing.T) {
	// 3x3 kernel at dilation 3 covers 7 positions; a 6x6 input is too small.
	conv := newTestConv(t, Conv2DConfig{Filters: 1, KernelSize: [2]int{3, 3}, DilationRate: [2]int{3, 3}})

	if _, err := conv.OutputShape(tensor.Shape{1, 6, 6, 1}); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("got %v, want ErrInvalidShape", err)
	}
}

func TestConv2D_GlorotInitBounds(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 8, KernelSize: [2]int{3, 3}})

	if err := conv.Build(tensor.Shape{1, 10, 10, 4}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// limit = sqrt(6 / (3*3*4 + 3*3*8)) = sqrt(6/108)
	limit := float32(0.2357023)
	sawNonzero := false
	for i, v := range conv.Kernel().Tensor().Data() {
		if v < -limit || v > limit {
			t.Fatalf("kernel weight %d = %v outside [-%v, %v]", i, v, limit, limit)
		}
		if v != 0 {
			sawNonzero = true
		}
	}
	if !sawNonzero {
		t.Fatal("kernel initialized to all zeros")
	}
	for i, v := range conv.Bias().Tensor().Data() {
		if v != 0 {
			t.Fatalf("bias element %d = %v, want 0", i, v)
		}
	}
}

func TestConv2D_String(t *testing.T) {
	conv := newTestConv(t, Conv2DConfig{Filters: 32, KernelSize: [2]int{3, 3}, Activation: "relu"})

	want := "Conv2D(filters=32, kernel_size=(3, 3), strides=(1, 1), padding=valid, activation=relu, dilation_rate=(1, 1), layout=channels_last)"
	if got := conv.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
