package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/samcharles93/pseudocpp/internal/logger"
	"github.com/samcharles93/pseudocpp/internal/model"
	"github.com/samcharles93/pseudocpp/internal/tokenizer"
)

// ErrWeightsExist is returned by InitWeights when it would overwrite a
// checkpoint without being asked to.
var ErrWeightsExist = errors.New("weights file already exists")

// InitWeights writes a randomly initialised checkpoint to cfg.Weights, sized
// to the vocabularies at cfg.InputVocab and cfg.OutputVocab. The same seed
// always yields the same file.
func InitWeights(ctx context.Context, cfg DirectionConfig, seed int64, overwrite bool) error {
	log := logger.FromContext(ctx).With("direction", string(cfg.Direction))
	if !cfg.Direction.Valid() {
		return fmt.Errorf("unknown direction %q", cfg.Direction)
	}
	if !overwrite {
		if _, err := os.Stat(cfg.Weights); err == nil {
			return fmt.Errorf("%w: %s", ErrWeightsExist, cfg.Weights)
		}
	}

	in, err := tokenizer.Load(cfg.InputVocab)
	if err != nil {
		return err
	}
	out, err := tokenizer.Load(cfg.OutputVocab)
	if err != nil {
		return err
	}
	mcfg := cfg.Model
	mcfg.InputVocab = tokenizer.ExtendedSize(in)
	mcfg.OutputVocab = tokenizer.ExtendedSize(out)

	m, err := model.NewRandom(mcfg, seed)
	if err != nil {
		return fmt.Errorf("init %s: %w", cfg.Direction, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Weights), 0o755); err != nil {
		return &tokenizer.ResourceLoadError{Path: cfg.Weights, Err: err}
	}
	if err := m.Save(cfg.Weights); err != nil {
		return &tokenizer.ResourceLoadError{Path: cfg.Weights, Err: err}
	}

	size := "unknown size"
	if fi, err := os.Stat(cfg.Weights); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	log.Info("wrote random weights", "path", cfg.Weights, "seed", seed, "size", size,
		"input_vocab", mcfg.InputVocab, "output_vocab", mcfg.OutputVocab)
	return nil
}
