package model

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/samcharles93/pseudocpp/internal/tensor"
)

type dense struct {
	kernel *tensor.Mat // (in x out)
	bias   []float32
}

func (d dense) apply(x *tensor.Mat) tensor.Mat {
	out := tensor.NewMat(x.R, d.kernel.C)
	tensor.Linear(&out, x, d.kernel, d.bias)
	return out
}

type layerNorm struct {
	gamma, beta []float32
}

// applyResidual computes norm(x + residual) into x.
func (n layerNorm) applyResidual(x, residual *tensor.Mat) {
	for i := 0; i < x.R; i++ {
		row := x.Row(i)
		tensor.Add(row, residual.Row(i))
		tensor.LayerNorm(row, row, n.gamma, n.beta, layerNormEps)
	}
}

type attention struct {
	query, key, value, output dense
}

type feedForward struct {
	hidden, output dense
}

func (f feedForward) apply(x *tensor.Mat) tensor.Mat {
	h := f.hidden.apply(x)
	tensor.ReLU(h.Data)
	return f.output.apply(&h)
}

type encoderLayer struct {
	selfAttn attention
	norm1    layerNorm
	ffn      feedForward
	norm2    layerNorm
}

type decoderLayer struct {
	selfAttn  attention
	norm1     layerNorm
	crossAttn attention
	norm2     layerNorm
	ffn       feedForward
	norm3     layerNorm
}

// Transformer is a post-norm encoder-decoder Transformer evaluated on the
// CPU. Weights are read-only after construction, so Infer may be called
// concurrently.
type Transformer struct {
	cfg Config

	encEmbedding *tensor.Mat
	decEmbedding *tensor.Mat
	encoder      []encoderLayer
	decoder      []decoderLayer
	final        dense

	peMu sync.RWMutex
	pe   tensor.Mat
}

// Config returns the model shape.
func (t *Transformer) Config() Config { return t.cfg }

// Infer runs the encoder over enc and the decoder over dec and returns the
// logits for every decoder position.
func (t *Transformer) Infer(ctx context.Context, enc, dec []int) ([][]float32, error) {
	if len(enc) == 0 || len(dec) == 0 {
		return nil, fmt.Errorf("empty input: encoder %d tokens, decoder %d tokens", len(enc), len(dec))
	}
	if err := checkIDs("encoder", enc, t.cfg.InputVocab); err != nil {
		return nil, err
	}
	if err := checkIDs("decoder", dec, t.cfg.OutputVocab); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encOut := t.encode(enc)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x := t.decode(dec, enc, &encOut)
	logits := t.final.apply(&x)

	out := make([][]float32, logits.R)
	for i := range out {
		out[i] = logits.Row(i)
	}
	return out, nil
}

func checkIDs(side string, ids []int, size int) error {
	for i, id := range ids {
		if id < 0 || id >= size {
			return fmt.Errorf("%s token %d at position %d outside [0, %d)", side, id, i, size)
		}
	}
	return nil
}

func (t *Transformer) encode(enc []int) tensor.Mat {
	x := t.embed(t.encEmbedding, enc)
	padded := paddingMask(enc)
	for i := range t.encoder {
		l := &t.encoder[i]
		attn := t.attend(&l.selfAttn, &x, &x, func(_, j int) bool { return padded[j] })
		l.norm1.applyResidual(&attn, &x)
		ffn := l.ffn.apply(&attn)
		l.norm2.applyResidual(&ffn, &attn)
		x = ffn
	}
	return x
}

func (t *Transformer) decode(dec, enc []int, encOut *tensor.Mat) tensor.Mat {
	x := t.embed(t.decEmbedding, dec)
	decPadded := paddingMask(dec)
	encPadded := paddingMask(enc)
	lookAhead := func(i, j int) bool { return j > i || decPadded[j] }
	crossMask := func(_, j int) bool { return encPadded[j] }
	for i := range t.decoder {
		l := &t.decoder[i]
		a1 := t.attend(&l.selfAttn, &x, &x, lookAhead)
		l.norm1.applyResidual(&a1, &x)
		a2 := t.attend(&l.crossAttn, &a1, encOut, crossMask)
		l.norm2.applyResidual(&a2, &a1)
		ffn := l.ffn.apply(&a2)
		l.norm3.applyResidual(&ffn, &a2)
		x = ffn
	}
	return x
}

// embed looks up ids, scales by sqrt(d_model) and adds positions.
func (t *Transformer) embed(table *tensor.Mat, ids []int) tensor.Mat {
	d := t.cfg.DModel
	scale := float32(math.Sqrt(float64(d)))
	pe := t.positions(len(ids))
	x := tensor.NewMat(len(ids), d)
	for i, id := range ids {
		row := x.Row(i)
		copy(row, table.Row(id))
		tensor.Scale(row, scale)
		tensor.Add(row, pe.Row(i))
	}
	return x
}

// positions returns a positional table with at least n rows, growing the
// cached table when needed.
func (t *Transformer) positions(n int) *tensor.Mat {
	t.peMu.RLock()
	if t.pe.R >= n {
		pe := t.pe
		t.peMu.RUnlock()
		return &pe
	}
	t.peMu.RUnlock()

	t.peMu.Lock()
	defer t.peMu.Unlock()
	if t.pe.R < n {
		rows := max(n, 2*t.pe.R, 128)
		pe := tensor.PositionalEncoding(rows, t.cfg.DModel)
		t.pe = pe
	}
	pe := t.pe
	return &pe
}

// attend runs multi-head scaled dot-product attention of q over kv.
// blocked(i, j) excludes key j from query i.
func (t *Transformer) attend(a *attention, q, kv *tensor.Mat, blocked func(i, j int) bool) tensor.Mat {
	Q := a.query.apply(q)
	K := a.key.apply(kv)
	V := a.value.apply(kv)

	depth := t.cfg.headDim()
	scale := float32(1 / math.Sqrt(float64(depth)))
	ctxOut := tensor.NewMat(Q.R, t.cfg.DModel)
	scores := make([]float32, K.R)
	for h := 0; h < t.cfg.NHeads; h++ {
		lo, hi := h*depth, (h+1)*depth
		for i := 0; i < Q.R; i++ {
			qi := Q.Row(i)[lo:hi]
			for j := 0; j < K.R; j++ {
				scores[j] = tensor.Dot(qi, K.Row(j)[lo:hi]) * scale
				if blocked(i, j) {
					scores[j] += maskPenalty
				}
			}
			tensor.Softmax(scores)
			out := ctxOut.Row(i)[lo:hi]
			for j, p := range scores {
				vj := V.Row(j)[lo:hi]
				for k := range out {
					out[k] += p * vj[k]
				}
			}
		}
	}
	return a.output.apply(&ctxOut)
}

func paddingMask(ids []int) []bool {
	m := make([]bool, len(ids))
	for i, id := range ids {
		m[i] = id == 0
	}
	return m
}
