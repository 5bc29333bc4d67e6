package model

import (
	"fmt"
)

// Config is the shape of an encoder-decoder Transformer.
type Config struct {
	DModel   int
	NLayers  int
	FFNUnits int
	NHeads   int
	// DropoutRate is recorded for compatibility with training checkpoints;
	// inference never applies dropout.
	DropoutRate float64

	// InputVocab and OutputVocab are extended vocabulary sizes: the
	// tokenizer vocabulary plus SOS and EOS.
	InputVocab  int
	OutputVocab int
}

const (
	DefaultDModel      = 512
	DefaultNLayers     = 4
	DefaultFFNUnits    = 512
	DefaultNHeads      = 8
	DefaultDropoutRate = 0.1

	layerNormEps = 1e-6
	maskPenalty  = -1e9
)

// DefaultConfig returns the default shape with vocabulary sizes unset.
func DefaultConfig() Config {
	return Config{
		DModel:      DefaultDModel,
		NLayers:     DefaultNLayers,
		FFNUnits:    DefaultFFNUnits,
		NHeads:      DefaultNHeads,
		DropoutRate: DefaultDropoutRate,
	}
}

// Validate checks that cfg describes a buildable model.
func (cfg Config) Validate() error {
	switch {
	case cfg.DModel <= 0:
		return fmt.Errorf("d_model must be positive, got %d", cfg.DModel)
	case cfg.NLayers <= 0:
		return fmt.Errorf("n_layers must be positive, got %d", cfg.NLayers)
	case cfg.FFNUnits <= 0:
		return fmt.Errorf("ffn_units must be positive, got %d", cfg.FFNUnits)
	case cfg.NHeads <= 0:
		return fmt.Errorf("n_heads must be positive, got %d", cfg.NHeads)
	case cfg.DModel%cfg.NHeads != 0:
		return fmt.Errorf("d_model %d is not divisible by n_heads %d", cfg.DModel, cfg.NHeads)
	case cfg.DropoutRate < 0 || cfg.DropoutRate >= 1:
		return fmt.Errorf("dropout_rate must be in [0, 1), got %g", cfg.DropoutRate)
	case cfg.InputVocab <= 2:
		return fmt.Errorf("input vocabulary size %d is too small", cfg.InputVocab)
	case cfg.OutputVocab <= 2:
		return fmt.Errorf("output vocabulary size %d is too small", cfg.OutputVocab)
	}
	return nil
}

func (cfg Config) headDim() int { return cfg.DModel / cfg.NHeads }
