package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/samcharles93/pseudocpp/internal/inference"
	"github.com/samcharles93/pseudocpp/internal/logger"
	"github.com/samcharles93/pseudocpp/internal/model"
	"github.com/samcharles93/pseudocpp/internal/tokenizer"
)

const (
	BackendNative = "native"
	BackendRemote = "remote"

	// EnvModelsDir overrides the default models directory.
	EnvModelsDir = "PSEUDOCPP_MODELS_DIR"

	weightsExt      = ".safetensors"
	inputVocabName  = "tokenizer_inputs.subwords"
	outputVocabName = "tokenizer_outputs.subwords"
)

// Fetcher retrieves missing artifacts, for example by running
// "git lfs pull" in dir.
type Fetcher func(ctx context.Context, dir string, argv []string) error

// DirectionConfig locates the artifacts of one direction and describes the
// model that reads them.
type DirectionConfig struct {
	Direction   Direction
	Weights     string
	InputVocab  string
	OutputVocab string
	Model       model.Config
	MaxLength   int

	Backend   string
	RemoteURL string

	// FetchCommand runs once in FetchDir when Weights does not exist.
	FetchCommand []string
	FetchDir     string
	Fetch        Fetcher
}

// DefaultDirectionConfig lays out the artifacts of d under modelsDir:
// <modelsDir>/<pseudoToCode|codeToPseudo>/{<name>.safetensors,
// tokenizer_inputs.subwords, tokenizer_outputs.subwords}.
func DefaultDirectionConfig(modelsDir string, d Direction) DirectionConfig {
	dir := filepath.Join(modelsDir, d.DirName())
	return DirectionConfig{
		Direction:   d,
		Weights:     filepath.Join(dir, d.DirName()+weightsExt),
		InputVocab:  filepath.Join(dir, inputVocabName),
		OutputVocab: filepath.Join(dir, outputVocabName),
		Model:       model.DefaultConfig(),
		MaxLength:   inference.MaxLength,
		Backend:     BackendNative,
		FetchDir:    modelsDir,
	}
}

// ResolveModelsDir picks the models directory: the explicit value, then
// $PSEUDOCPP_MODELS_DIR, then "models".
func ResolveModelsDir(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModelsDir)); v != "" {
		return v
	}
	return "models"
}

// Open loads the tokenizers and model of one direction. It never fails:
// a missing or corrupt artifact yields a translator whose every call
// returns an error text.
func Open(ctx context.Context, cfg DirectionConfig) *Translator {
	base := logger.FromContext(ctx)
	log := base.With("direction", string(cfg.Direction))
	if !cfg.Direction.Valid() {
		return unavailable(cfg.Direction, fmt.Errorf("unknown direction %q", cfg.Direction), base)
	}

	in, err := tokenizer.Load(cfg.InputVocab)
	if err != nil {
		log.Error("error loading input vocabulary", "path", cfg.InputVocab, "error", err)
		return unavailable(cfg.Direction, err, base)
	}
	out, err := tokenizer.Load(cfg.OutputVocab)
	if err != nil {
		log.Error("error loading output vocabulary", "path", cfg.OutputVocab, "error", err)
		return unavailable(cfg.Direction, err, base)
	}

	mcfg := cfg.Model
	mcfg.InputVocab = tokenizer.ExtendedSize(in)
	mcfg.OutputVocab = tokenizer.ExtendedSize(out)

	m, err := openModel(ctx, cfg, mcfg)
	if err != nil {
		log.Error("error loading model", "error", err)
		m = model.Unavailable{Err: err}
	}
	return New(cfg.Direction, in, out, m, cfg.MaxLength, base)
}

func openModel(ctx context.Context, cfg DirectionConfig, mcfg model.Config) (model.Model, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNative:
	case BackendRemote:
		if strings.TrimSpace(cfg.RemoteURL) == "" {
			return nil, errors.New("remote backend requires remote_url")
		}
		return model.Serialize(model.NewRemote(cfg.RemoteURL, mcfg.OutputVocab)), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (expected %s or %s)", cfg.Backend, BackendNative, BackendRemote)
	}

	if err := ensureWeights(ctx, cfg); err != nil {
		return nil, err
	}
	t, err := model.Load(ctx, cfg.Weights, mcfg)
	if err != nil {
		return nil, err
	}
	return model.Serialize(t), nil
}

// ensureWeights runs the fetch command when the weights file is missing.
func ensureWeights(ctx context.Context, cfg DirectionConfig) error {
	if _, err := os.Stat(cfg.Weights); err == nil || len(cfg.FetchCommand) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)
	fetch := cfg.Fetch
	if fetch == nil {
		fetch = ExecFetcher
	}
	log.Info("weights missing, fetching artifacts", "path", cfg.Weights, "command", strings.Join(cfg.FetchCommand, " "))
	if err := fetch(ctx, cfg.FetchDir, cfg.FetchCommand); err != nil {
		return &tokenizer.ResourceLoadError{Path: cfg.Weights, Err: fmt.Errorf("fetch artifacts: %w", err)}
	}
	return nil
}

// ExecFetcher runs argv as a subprocess in dir.
func ExecFetcher(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return errors.New("fetch command is empty")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", argv[0], err)
		}
		return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
	}
	return nil
}
