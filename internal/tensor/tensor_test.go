package tensor

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/samcharles93/pseudocpp/internal/safetensors"
)

func gemmNaive(C, A, B *Mat) {
	for i := 0; i < A.R; i++ {
		for j := 0; j < B.C; j++ {
			var sum float32
			for kk := 0; kk < A.C; kk++ {
				sum += A.Row(i)[kk] * B.Row(kk)[j]
			}
			C.Row(i)[j] = sum
		}
	}
}

func maxAbsDiff(a, b []float32) float64 {
	var maxAbs float64
	for i := range a {
		d := math.Abs(float64(a[i] - b[i]))
		if d > maxAbs {
			maxAbs = d
		}
	}
	return maxAbs
}

func TestGemmMatchesNaive(t *testing.T) {
	t.Parallel()
	for _, shape := range [][3]int{{1, 8, 5}, {50, 70, 45}, {64, 128, 96}} {
		A := NewMat(shape[0], shape[1])
		B := NewMat(shape[1], shape[2])
		C0 := NewMat(shape[0], shape[2])
		C1 := NewMat(shape[0], shape[2])
		FillRand(&A, 1, 0.02)
		FillRand(&B, 2, 0.02)
		// stale values must be overwritten
		FillRand(&C1, 3, 1)

		gemmNaive(&C0, &A, &B)
		Gemm(&C1, &A, &B)

		if maxAbs := maxAbsDiff(C0.Data, C1.Data); maxAbs > 1e-5 {
			t.Fatalf("shape %v: max abs diff %g", shape, maxAbs)
		}
	}
}

func TestGemmDimensionMismatchPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	A := NewMat(2, 3)
	B := NewMat(4, 2)
	C := NewMat(2, 2)
	Gemm(&C, &A, &B)
}

func TestLinearAddsBias(t *testing.T) {
	t.Parallel()
	x := NewMatFromData(2, 2, []float32{1, 2, 3, 4})
	w := NewMatFromData(2, 3, []float32{1, 0, 1, 0, 1, 1})
	dst := NewMat(2, 3)
	Linear(&dst, &x, &w, []float32{10, 20, 30})

	want := []float32{11, 22, 33, 13, 24, 37}
	for i := range want {
		if dst.Data[i] != want[i] {
			t.Fatalf("dst[%d] = %f, want %f", i, dst.Data[i], want[i])
		}
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	t.Parallel()
	x := []float32{1, 2, 3, 1000}
	Softmax(x)
	var sum float64
	for _, v := range x {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("sum = %f", sum)
	}
	if x[3] < 0.99 {
		t.Fatalf("largest input should dominate, got %f", x[3])
	}
}

func TestLayerNorm(t *testing.T) {
	t.Parallel()
	src := []float32{1, 2, 3, 4}
	dst := make([]float32, 4)
	LayerNorm(dst, src, []float32{1, 1, 1, 1}, []float32{0, 0, 0, 0}, 1e-6)

	var mean, variance float64
	for _, v := range dst {
		mean += float64(v)
	}
	mean /= 4
	for _, v := range dst {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	variance /= 4
	if math.Abs(mean) > 1e-5 || math.Abs(variance-1) > 1e-3 {
		t.Fatalf("mean %f variance %f", mean, variance)
	}

	LayerNorm(dst, src, []float32{2, 2, 2, 2}, []float32{1, 1, 1, 1}, 1e-6)
	if dst[0] >= dst[3] || dst[1] > 1 || dst[2] < 1 {
		t.Fatalf("gamma/beta not applied: %v", dst)
	}
}

func TestReLU(t *testing.T) {
	t.Parallel()
	x := []float32{-1, 0, 2, -0.5}
	ReLU(x)
	want := []float32{0, 0, 2, 0}
	for i := range want {
		if x[i] != want[i] {
			t.Fatalf("x[%d] = %f, want %f", i, x[i], want[i])
		}
	}
}

func TestArgmax(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   []float32
		want int
	}{
		{nil, -1},
		{[]float32{0.1, 0.9, 0.3}, 1},
		{[]float32{0.5, 0.5, 0.1}, 0},
		{[]float32{-3, -1, -1}, 1},
		{[]float32{float32(math.Inf(-1)), -1}, 1},
	}
	for _, tc := range tests {
		if got := Argmax(tc.in); got != tc.want {
			t.Errorf("Argmax(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPositionalEncoding(t *testing.T) {
	t.Parallel()
	pe := PositionalEncoding(3, 4)
	row0 := pe.Row(0)
	// position 0: sin(0)=0 on even columns, cos(0)=1 on odd
	if row0[0] != 0 || row0[1] != 1 || row0[2] != 0 || row0[3] != 1 {
		t.Fatalf("row 0 = %v", row0)
	}
	row1 := pe.Row(1)
	if math.Abs(float64(row1[0])-math.Sin(1)) > 1e-6 {
		t.Fatalf("row 1 col 0 = %f", row1[0])
	}
	if math.Abs(float64(row1[3])-math.Cos(0.01)) > 1e-6 {
		t.Fatalf("row 1 col 3 = %f", row1[3])
	}
}

func TestLoadSafetensorsShapes(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "w.safetensors")
	err := safetensors.SaveF32(path, map[string]safetensors.Tensor{
		"w": {Shape: []int{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}},
		"b": {Shape: []int{3}, Data: []float32{7, 8, 9}},
	}, nil)
	if err != nil {
		t.Fatalf("SaveF32: %v", err)
	}
	st, err := safetensors.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()

	m, err := LoadSafetensorsMat(st, "w", 2, 3)
	if err != nil {
		t.Fatalf("LoadSafetensorsMat: %v", err)
	}
	if m.Row(1)[2] != 6 {
		t.Fatalf("m[1][2] = %f", m.Row(1)[2])
	}
	if _, err := LoadSafetensorsMat(st, "w", 3, 2); err == nil {
		t.Fatal("expected shape mismatch")
	}
	v, err := LoadSafetensorsVec(st, "b", 3)
	if err != nil || v[2] != 9 {
		t.Fatalf("LoadSafetensorsVec: %v %v", v, err)
	}
}
