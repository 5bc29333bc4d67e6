// Package inference runs greedy autoregressive decoding over a sequence
// model.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/samcharles93/pseudocpp/internal/model"
	"github.com/samcharles93/pseudocpp/internal/tensor"
)

// Greedy decodes from m starting with [sos]. Each step scores the current
// decoder sequence, takes the highest-scoring id of the last position
// (lowest id on ties), and stops before appending eos. When maxSteps ids
// have been appended without eos the result is marked Truncated.
//
// ctx is handed to the model only; the loop itself runs to completion.
func Greedy(ctx context.Context, m model.Model, enc []int, sos, eos, maxSteps int) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: model is required", ErrInference)
	}
	if maxSteps < 0 {
		return nil, fmt.Errorf("%w: negative step bound %d", ErrInference, maxSteps)
	}

	res := &Result{Tokens: make([]int, 1, maxSteps+1)}
	res.Tokens[0] = sos

	start := time.Now()
	defer func() {
		res.Stats.Duration = time.Since(start)
		if res.Stats.Duration.Seconds() > 0 {
			res.Stats.TPS = float64(res.Stats.TokensGenerated) / res.Stats.Duration.Seconds()
		}
	}()

	for step := 0; step < maxSteps; step++ {
		res.Stats.Steps++
		logits, err := safeInfer(ctx, m, enc, res.Tokens)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrInference, step, err)
		}
		if len(logits) == 0 {
			return nil, fmt.Errorf("%w: step %d: model returned no positions", ErrInference, step)
		}
		last := logits[len(logits)-1]
		if len(last) == 0 {
			return nil, fmt.Errorf("%w: step %d: empty distribution", ErrInference, step)
		}

		next := tensor.Argmax(last)
		if next == eos {
			return res, nil
		}
		res.Tokens = append(res.Tokens, next)
		res.Stats.TokensGenerated++
	}
	res.Truncated = true
	return res, nil
}

func safeInfer(ctx context.Context, m model.Model, enc, dec []int) (logits [][]float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Infer: %v", rec)
		}
	}()
	// a model that appends to dec must not write into the caller's buffer
	return m.Infer(ctx, enc, dec[:len(dec):len(dec)])
}
