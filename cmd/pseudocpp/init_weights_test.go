package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/pseudocpp/internal/logger"
	"github.com/samcharles93/pseudocpp/internal/tokenizer"
	"github.com/samcharles93/pseudocpp/internal/translate"
)

// smallModelsDir lays out vocabularies for both directions and returns
// configs whose model shape is small enough to write quickly.
func smallModelsDir(t *testing.T) []translate.DirectionConfig {
	t.Helper()
	dModel, nLayers, ffn, heads := 8, 1, 16, 2
	small := &DirectionOverride{DModel: &dModel, NLayers: &nLayers, FFNUnits: &ffn, NHeads: &heads}
	configs := directionConfigs(Config{PseudoToCode: small, CodeToPseudo: small}, modelOptions{ModelsDir: t.TempDir()})

	tok, err := tokenizer.NewSubword([]string{"int_", "main", "(", ")", "read_", "n"})
	if err != nil {
		t.Fatalf("NewSubword() error = %v", err)
	}
	for _, dc := range configs {
		if err := os.MkdirAll(filepath.Dir(dc.InputVocab), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		for _, path := range []string{dc.InputVocab, dc.OutputVocab} {
			if err := tokenizer.SaveSubwords(path, tok); err != nil {
				t.Fatalf("SaveSubwords(%s) error = %v", path, err)
			}
		}
	}
	return configs
}

func TestInitWeightsSingleDirection(t *testing.T) {
	t.Parallel()

	ctx := logger.WithContext(context.Background(), logger.Discard())
	configs := smallModelsDir(t)

	var out bytes.Buffer
	if err := initWeights(ctx, &out, configs, "code", 3, false); err != nil {
		t.Fatalf("initWeights() error = %v", err)
	}
	p2c, c2p := configs[0], configs[1]
	if _, err := os.Stat(p2c.Weights); err != nil {
		t.Fatalf("pseudo-to-code weights not written: %v", err)
	}
	if _, err := os.Stat(c2p.Weights); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("code-to-pseudo weights should not exist, stat err = %v", err)
	}
	if !strings.Contains(out.String(), p2c.Weights) {
		t.Fatalf("output %q does not name %s", out.String(), p2c.Weights)
	}

	if err := initWeights(ctx, &out, configs, "code", 3, false); !errors.Is(err, translate.ErrWeightsExist) {
		t.Fatalf("rerun without force: error = %v, want ErrWeightsExist", err)
	}
	if err := initWeights(ctx, &out, configs, "", 3, true); err != nil {
		t.Fatalf("initWeights(force) error = %v", err)
	}
	if _, err := os.Stat(c2p.Weights); err != nil {
		t.Fatalf("code-to-pseudo weights not written: %v", err)
	}

	svc := translate.NewService(configs...)
	svc.Warm(ctx)
	for _, st := range svc.Status() {
		if !st.Available {
			t.Fatalf("%s unavailable after init-weights: %s", st.Direction, st.Error)
		}
	}
}

func TestInitWeightsUnknownDirection(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := initWeights(context.Background(), &out, nil, "sideways", 1, false)
	if err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}

func TestServeFlagNames(t *testing.T) {
	t.Parallel()

	names := map[string]bool{}
	for _, f := range serveCmd().Flags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	if !names["read-header-timeout"] {
		t.Fatalf("serve is missing --read-header-timeout")
	}
	if names["read-timeout"] {
		t.Fatalf("serve still exposes --read-timeout")
	}
}
