package model

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/samcharles93/pseudocpp/internal/logger"
	"github.com/samcharles93/pseudocpp/internal/safetensors"
	"github.com/samcharles93/pseudocpp/internal/tensor"
	"github.com/samcharles93/pseudocpp/internal/tokenizer"
)

type param struct {
	name  string
	shape []int
	data  []float32
}

func newDense(in, out int) dense {
	m := tensor.NewMat(in, out)
	return dense{kernel: &m, bias: make([]float32, out)}
}

func newLayerNorm(d int) layerNorm {
	gamma := make([]float32, d)
	for i := range gamma {
		gamma[i] = 1
	}
	return layerNorm{gamma: gamma, beta: make([]float32, d)}
}

func newAttention(d int) attention {
	return attention{query: newDense(d, d), key: newDense(d, d), value: newDense(d, d), output: newDense(d, d)}
}

func newFeedForward(d, units int) feedForward {
	return feedForward{hidden: newDense(d, units), output: newDense(units, d)}
}

// newTransformer allocates a model of shape cfg with zero weights and unit
// layer-norm scales.
func newTransformer(cfg Config) *Transformer {
	d := cfg.DModel
	enc := tensor.NewMat(cfg.InputVocab, d)
	dec := tensor.NewMat(cfg.OutputVocab, d)
	t := &Transformer{
		cfg:          cfg,
		encEmbedding: &enc,
		decEmbedding: &dec,
		encoder:      make([]encoderLayer, cfg.NLayers),
		decoder:      make([]decoderLayer, cfg.NLayers),
		final:        newDense(d, cfg.OutputVocab),
	}
	for i := range t.encoder {
		t.encoder[i] = encoderLayer{
			selfAttn: newAttention(d),
			norm1:    newLayerNorm(d),
			ffn:      newFeedForward(d, cfg.FFNUnits),
			norm2:    newLayerNorm(d),
		}
	}
	for i := range t.decoder {
		t.decoder[i] = decoderLayer{
			selfAttn:  newAttention(d),
			norm1:     newLayerNorm(d),
			crossAttn: newAttention(d),
			norm2:     newLayerNorm(d),
			ffn:       newFeedForward(d, cfg.FFNUnits),
			norm3:     newLayerNorm(d),
		}
	}
	return t
}

// params lists every weight with its checkpoint name and shape.
func (t *Transformer) params() []param {
	var ps []param
	addDense := func(prefix string, d dense) {
		ps = append(ps,
			param{prefix + "/kernel", []int{d.kernel.R, d.kernel.C}, d.kernel.Data},
			param{prefix + "/bias", []int{len(d.bias)}, d.bias},
		)
	}
	addNorm := func(prefix string, n layerNorm) {
		ps = append(ps,
			param{prefix + "/gamma", []int{len(n.gamma)}, n.gamma},
			param{prefix + "/beta", []int{len(n.beta)}, n.beta},
		)
	}
	addAttn := func(prefix string, a attention) {
		addDense(prefix+"/query", a.query)
		addDense(prefix+"/key", a.key)
		addDense(prefix+"/value", a.value)
		addDense(prefix+"/output", a.output)
	}
	addFFN := func(prefix string, f feedForward) {
		addDense(prefix+"/dense_1", f.hidden)
		addDense(prefix+"/dense_2", f.output)
	}

	ps = append(ps, param{"encoder/embedding", []int{t.encEmbedding.R, t.encEmbedding.C}, t.encEmbedding.Data})
	for i, l := range t.encoder {
		p := fmt.Sprintf("encoder/layer_%d", i)
		addAttn(p+"/self_attention", l.selfAttn)
		addNorm(p+"/norm_1", l.norm1)
		addFFN(p+"/ffn", l.ffn)
		addNorm(p+"/norm_2", l.norm2)
	}
	ps = append(ps, param{"decoder/embedding", []int{t.decEmbedding.R, t.decEmbedding.C}, t.decEmbedding.Data})
	for i, l := range t.decoder {
		p := fmt.Sprintf("decoder/layer_%d", i)
		addAttn(p+"/self_attention", l.selfAttn)
		addNorm(p+"/norm_1", l.norm1)
		addAttn(p+"/cross_attention", l.crossAttn)
		addNorm(p+"/norm_2", l.norm2)
		addFFN(p+"/ffn", l.ffn)
		addNorm(p+"/norm_3", l.norm3)
	}
	addDense("output", t.final)
	return ps
}

// read loads p from st, checking it has p's shape.
func (p param) read(st *safetensors.File) ([]float32, error) {
	switch len(p.shape) {
	case 1:
		return tensor.LoadSafetensorsVec(st, p.name, p.shape[0])
	case 2:
		m, err := tensor.LoadSafetensorsMat(st, p.name, p.shape[0], p.shape[1])
		if err != nil {
			return nil, err
		}
		return m.Data, nil
	default:
		return nil, fmt.Errorf("%s: unsupported rank %d", p.name, len(p.shape))
	}
}

// Load reads Transformer weights of shape cfg from a safetensors file.
// Missing tensors and shape mismatches are reported as
// tokenizer.ResourceLoadError.
func Load(ctx context.Context, path string, cfg Config) (*Transformer, error) {
	log := logger.FromContext(ctx)
	if err := cfg.Validate(); err != nil {
		return nil, &tokenizer.ResourceLoadError{Path: path, Err: err}
	}
	st, err := safetensors.Open(path)
	if err != nil {
		return nil, &tokenizer.ResourceLoadError{Path: path, Err: err}
	}
	defer func() { _ = st.Close() }()

	t := newTransformer(cfg)
	var count int64
	for _, p := range t.params() {
		vals, err := p.read(st)
		if err != nil {
			return nil, &tokenizer.ResourceLoadError{Path: path, Err: err}
		}
		copy(p.data, vals)
		count += int64(len(vals))
	}
	if extra := len(st.Tensors) - len(t.params()); extra > 0 {
		log.Warn("weights file has unused tensors", "path", path, "count", extra)
	}
	log.Info("loaded transformer weights",
		"path", path,
		"size", humanize.Bytes(uint64(st.Size)),
		"params", humanize.Comma(count),
		"d_model", cfg.DModel,
		"layers", cfg.NLayers,
	)
	return t, nil
}

// NewRandom builds a Transformer with reproducible random weights. It is
// used to produce fixtures and smoke-test the pipeline without a checkpoint.
func NewRandom(cfg Config, seed int64) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := newTransformer(cfg)
	for i, p := range t.params() {
		if len(p.shape) == 1 {
			// biases and norms keep their neutral initial values
			continue
		}
		m := tensor.NewMatFromData(p.shape[0], p.shape[1], p.data)
		tensor.FillRand(&m, seed+int64(i), float32(2/float64(p.shape[0])))
	}
	return t, nil
}

// Save writes the model weights to path in the format Load reads.
func (t *Transformer) Save(path string) error {
	tensors := make(map[string]safetensors.Tensor)
	for _, p := range t.params() {
		tensors[p.name] = safetensors.Tensor{Shape: p.shape, Data: p.data}
	}
	meta := map[string]string{
		"d_model":   fmt.Sprint(t.cfg.DModel),
		"n_layers":  fmt.Sprint(t.cfg.NLayers),
		"ffn_units": fmt.Sprint(t.cfg.FFNUnits),
		"n_heads":   fmt.Sprint(t.cfg.NHeads),
	}
	return safetensors.SaveF32(path, tensors, meta)
}
