// Package model holds the sequence models that score the next token of a
// decoder sequence given an encoder sequence.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrModelUnavailable is returned by a model that could not be loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// Model scores decoder positions. Infer returns one row of logits per
// position of dec, each of the model's extended output vocabulary size.
// Implementations are deterministic for fixed weights and inputs.
type Model interface {
	Infer(ctx context.Context, enc, dec []int) ([][]float32, error)
}

// Unavailable stands in for a model whose load failed. Every call returns
// an error wrapping ErrModelUnavailable and the load error.
type Unavailable struct {
	Err error
}

func (u Unavailable) Infer(context.Context, []int, []int) ([][]float32, error) {
	if u.Err == nil {
		return nil, ErrModelUnavailable
	}
	return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, u.Err)
}

// IsAvailable reports whether m can serve inference.
func IsAvailable(m Model) bool {
	switch v := m.(type) {
	case nil:
		return false
	case Unavailable, *Unavailable:
		return false
	case *serialized:
		return IsAvailable(v.m)
	default:
		return true
	}
}

type serialized struct {
	mu sync.Mutex
	m  Model
}

// Serialize wraps m so at most one Infer call runs at a time.
func Serialize(m Model) Model {
	if s, ok := m.(*serialized); ok {
		return s
	}
	return &serialized{m: m}
}

func (s *serialized) Infer(ctx context.Context, enc, dec []int) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Infer(ctx, enc, dec)
}
