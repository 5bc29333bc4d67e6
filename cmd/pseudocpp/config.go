package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/pseudocpp/internal/translate"
)

// defaultFetchCommand retrieves LFS-tracked weights next to the vocabularies.
var defaultFetchCommand = []string{"git", "lfs", "pull"}

// Config represents the pseudocpp configuration file
// (~/.config/pseudocpp/config.yaml). Numeric fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	ModelsDir string `yaml:"models_dir"`
	MaxLength *int64 `yaml:"max_length"`

	// Backend
	Backend      string   `yaml:"backend"`
	RemoteURL    string   `yaml:"remote_url"`
	FetchCommand []string `yaml:"fetch_command"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`

	PseudoToCode *DirectionOverride `yaml:"pseudo_to_code"`
	CodeToPseudo *DirectionOverride `yaml:"code_to_pseudo"`
}

// DirectionOverride replaces artifact paths or model shape for one
// direction.
type DirectionOverride struct {
	Weights     string `yaml:"weights"`
	InputVocab  string `yaml:"input_vocab"`
	OutputVocab string `yaml:"output_vocab"`
	Backend     string `yaml:"backend"`
	RemoteURL   string `yaml:"remote_url"`

	DModel      *int     `yaml:"d_model"`
	NLayers     *int     `yaml:"n_layers"`
	FFNUnits    *int     `yaml:"ffn_units"`
	NHeads      *int     `yaml:"n_heads"`
	DropoutRate *float64 `yaml:"dropout_rate"`
}

func (cfg Config) override(d translate.Direction) *DirectionOverride {
	switch d {
	case translate.PseudoToCode:
		return cfg.PseudoToCode
	case translate.CodeToPseudo:
		return cfg.CodeToPseudo
	default:
		return nil
	}
}

func (o *DirectionOverride) apply(dc *translate.DirectionConfig) {
	if o == nil {
		return
	}
	if o.Weights != "" {
		dc.Weights = o.Weights
	}
	if o.InputVocab != "" {
		dc.InputVocab = o.InputVocab
	}
	if o.OutputVocab != "" {
		dc.OutputVocab = o.OutputVocab
	}
	if o.Backend != "" {
		dc.Backend = o.Backend
	}
	if o.RemoteURL != "" {
		dc.RemoteURL = o.RemoteURL
	}
	if o.DModel != nil {
		dc.Model.DModel = *o.DModel
	}
	if o.NLayers != nil {
		dc.Model.NLayers = *o.NLayers
	}
	if o.FFNUnits != nil {
		dc.Model.FFNUnits = *o.FFNUnits
	}
	if o.NHeads != nil {
		dc.Model.NHeads = *o.NHeads
	}
	if o.DropoutRate != nil {
		dc.Model.DropoutRate = *o.DropoutRate
	}
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pseudocpp", "config.yaml")
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyModelConfig applies config file defaults to model flags when the
// corresponding CLI flag was not explicitly set.
func applyModelConfig(c *cli.Command, cfg Config, o *modelOptions) {
	if cfg.ModelsDir != "" && !c.IsSet("models-dir") {
		o.ModelsDir = cfg.ModelsDir
	}
	if cfg.MaxLength != nil && !c.IsSet("max-length") {
		o.MaxLength = *cfg.MaxLength
	}
	if cfg.Backend != "" && !c.IsSet("backend") {
		o.Backend = cfg.Backend
	}
	if cfg.RemoteURL != "" && !c.IsSet("remote-url") {
		o.RemoteURL = cfg.RemoteURL
	}
	if len(cfg.FetchCommand) > 0 && !c.IsSet("fetch") {
		o.Fetch = true
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// directionConfigs resolves the artifact layout of every direction from the
// model flags and the config file overrides.
func directionConfigs(cfg Config, o modelOptions) []translate.DirectionConfig {
	dir := translate.ResolveModelsDir(o.ModelsDir)
	out := make([]translate.DirectionConfig, 0, len(translate.Directions()))
	for _, d := range translate.Directions() {
		dc := translate.DefaultDirectionConfig(dir, d)
		if o.MaxLength > 0 {
			dc.MaxLength = int(o.MaxLength)
		}
		if o.Backend != "" {
			dc.Backend = o.Backend
		}
		dc.RemoteURL = o.RemoteURL
		if o.Fetch {
			dc.FetchCommand = defaultFetchCommand
			if len(cfg.FetchCommand) > 0 {
				dc.FetchCommand = cfg.FetchCommand
			}
		}
		cfg.override(d).apply(&dc)
		out = append(out, dc)
	}
	return out
}
