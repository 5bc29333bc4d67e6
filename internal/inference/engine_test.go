package inference

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const (
	testVocab = 10
	testSOS   = 10
	testEOS   = 11
)

// scriptModel returns, for every decoder position, a distribution whose
// argmax is pick(len(dec)).
type scriptModel struct {
	pick  func(decLen int) int
	calls int
}

func (m *scriptModel) Infer(_ context.Context, _ []int, dec []int) ([][]float32, error) {
	m.calls++
	rows := make([][]float32, len(dec))
	for i := range rows {
		row := make([]float32, testVocab+2)
		row[m.pick(i+1)] = 1
		rows[i] = row
	}
	return rows, nil
}

type fixedRowModel struct {
	row []float32
}

func (m fixedRowModel) Infer(_ context.Context, _ []int, dec []int) ([][]float32, error) {
	rows := make([][]float32, len(dec))
	for i := range rows {
		rows[i] = m.row
	}
	return rows, nil
}

type errModel struct{ err error }

func (m errModel) Infer(context.Context, []int, []int) ([][]float32, error) { return nil, m.err }

type panicModel struct{}

func (panicModel) Infer(context.Context, []int, []int) ([][]float32, error) { panic("infer boom") }

type emptyModel struct{ rows [][]float32 }

func (m emptyModel) Infer(context.Context, []int, []int) ([][]float32, error) { return m.rows, nil }

func TestGreedyStopsOnFirstEOS(t *testing.T) {
	t.Parallel()
	m := &scriptModel{pick: func(int) int { return testEOS }}
	res, err := Greedy(context.Background(), m, []int{testSOS, 1, testEOS}, testSOS, testEOS, MaxLength)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if len(res.Tokens) != 1 || res.Tokens[0] != testSOS {
		t.Fatalf("expected [SOS], got %v", res.Tokens)
	}
	if res.Truncated {
		t.Fatal("result should not be truncated")
	}
	if m.calls != 1 {
		t.Fatalf("expected one model call, got %d", m.calls)
	}
	if res.Stats.Steps != 1 || res.Stats.TokensGenerated != 0 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if got := res.Generated(); len(got) != 0 {
		t.Fatalf("expected no generated tokens, got %v", got)
	}
}

func TestGreedyTruncatesWithoutEOS(t *testing.T) {
	t.Parallel()
	m := &scriptModel{pick: func(int) int { return 5 }}
	res, err := Greedy(context.Background(), m, []int{testSOS, testEOS}, testSOS, testEOS, MaxLength)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if !res.Truncated {
		t.Fatal("expected truncated result")
	}
	if len(res.Tokens) != MaxLength+1 {
		t.Fatalf("expected %d tokens, got %d", MaxLength+1, len(res.Tokens))
	}
	for i, id := range res.Generated() {
		if id != 5 {
			t.Fatalf("token %d = %d, want 5", i, id)
		}
	}
	if m.calls != MaxLength {
		t.Fatalf("expected %d model calls, got %d", MaxLength, m.calls)
	}
	if res.Stats.TokensGenerated != MaxLength {
		t.Fatalf("TokensGenerated = %d", res.Stats.TokensGenerated)
	}
}

func TestGreedyStopsMidway(t *testing.T) {
	t.Parallel()
	script := []int{3, 7, 2, testEOS}
	m := &scriptModel{pick: func(n int) int { return script[min(n, len(script))-1] }}
	res, err := Greedy(context.Background(), m, []int{testSOS, testEOS}, testSOS, testEOS, MaxLength)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	want := []int{testSOS, 3, 7, 2}
	if len(res.Tokens) != len(want) {
		t.Fatalf("got %v, want %v", res.Tokens, want)
	}
	for i := range want {
		if res.Tokens[i] != want[i] {
			t.Fatalf("got %v, want %v", res.Tokens, want)
		}
	}
	if res.Truncated {
		t.Fatal("unexpected truncation")
	}
}

func TestGreedyLengthBound(t *testing.T) {
	t.Parallel()
	for _, steps := range []int{0, 1, 5, MaxLength} {
		m := &scriptModel{pick: func(int) int { return 1 }}
		res, err := Greedy(context.Background(), m, []int{testSOS}, testSOS, testEOS, steps)
		if err != nil {
			t.Fatalf("Greedy(%d): %v", steps, err)
		}
		if len(res.Tokens) > steps+1 {
			t.Fatalf("Greedy(%d) produced %d tokens", steps, len(res.Tokens))
		}
		if !res.Truncated {
			t.Fatalf("Greedy(%d) should be truncated", steps)
		}
	}
}

func TestGreedyTieBreaksToLowestID(t *testing.T) {
	t.Parallel()
	row := make([]float32, testVocab+2)
	row[4] = 0.5
	row[2] = 0.5
	row[testEOS] = 0.1
	res, err := Greedy(context.Background(), fixedRowModel{row: row}, []int{testSOS}, testSOS, testEOS, 3)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	for _, id := range res.Generated() {
		if id != 2 {
			t.Fatalf("tie should resolve to id 2, got %d", id)
		}
	}
}

func TestGreedyDeterministic(t *testing.T) {
	t.Parallel()
	script := []int{4, 4, 9, 1, testEOS}
	newModel := func() *scriptModel {
		return &scriptModel{pick: func(n int) int { return script[min(n, len(script))-1] }}
	}
	a, err := Greedy(context.Background(), newModel(), []int{testSOS}, testSOS, testEOS, MaxLength)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	b, err := Greedy(context.Background(), newModel(), []int{testSOS}, testSOS, testEOS, MaxLength)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if len(a.Tokens) != len(b.Tokens) {
		t.Fatalf("lengths differ: %v vs %v", a.Tokens, b.Tokens)
	}
	for i := range a.Tokens {
		if a.Tokens[i] != b.Tokens[i] {
			t.Fatalf("runs differ: %v vs %v", a.Tokens, b.Tokens)
		}
	}
}

func TestGreedyWrapsModelErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("backend down")
	_, err := Greedy(context.Background(), errModel{err: boom}, []int{testSOS}, testSOS, testEOS, MaxLength)
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestGreedyConvertsPanic(t *testing.T) {
	t.Parallel()
	_, err := Greedy(context.Background(), panicModel{}, []int{testSOS}, testSOS, testEOS, MaxLength)
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	if !strings.Contains(err.Error(), "panic in Infer") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGreedyRejectsEmptyDistributions(t *testing.T) {
	t.Parallel()
	tests := map[string][][]float32{
		"no positions": nil,
		"empty row":    {{}},
	}
	for name, rows := range tests {
		_, err := Greedy(context.Background(), emptyModel{rows: rows}, []int{testSOS}, testSOS, testEOS, MaxLength)
		if !errors.Is(err, ErrInference) {
			t.Fatalf("%s: expected ErrInference, got %v", name, err)
		}
	}
}

func TestGreedyInvalidArguments(t *testing.T) {
	t.Parallel()
	if _, err := Greedy(context.Background(), nil, nil, testSOS, testEOS, 1); !errors.Is(err, ErrInference) {
		t.Fatalf("nil model: %v", err)
	}
	m := &scriptModel{pick: func(int) int { return 1 }}
	if _, err := Greedy(context.Background(), m, nil, testSOS, testEOS, -1); !errors.Is(err, ErrInference) {
		t.Fatalf("negative bound: %v", err)
	}
}
