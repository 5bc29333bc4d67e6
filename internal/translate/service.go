package translate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samcharles93/pseudocpp/internal/logger"
)

// Opener builds a translator from its configuration.
type Opener func(ctx context.Context, cfg DirectionConfig) *Translator

// Service owns one translator per direction. Each translator is built on
// first use, exactly once, and shared by every caller afterwards.
type Service struct {
	open    Opener
	entries map[Direction]*entry
}

type entry struct {
	cfg  DirectionConfig
	once sync.Once
	t    atomic.Pointer[Translator]
}

// Status describes one direction for health and listing endpoints.
type Status struct {
	Direction Direction
	Title     string
	Loaded    bool
	Available bool
	Error     string
}

// NewService creates a service for the given directions. Later configs for
// the same direction replace earlier ones.
func NewService(configs ...DirectionConfig) *Service {
	return NewServiceWithOpener(Open, configs...)
}

// NewServiceWithOpener is NewService with a custom translator constructor.
func NewServiceWithOpener(open Opener, configs ...DirectionConfig) *Service {
	s := &Service{open: open, entries: make(map[Direction]*entry, len(configs))}
	for _, cfg := range configs {
		s.entries[cfg.Direction] = &entry{cfg: cfg}
	}
	return s
}

// Translator returns the translator for d, building it on first use.
func (s *Service) Translator(ctx context.Context, d Direction) (*Translator, error) {
	e, ok := s.entries[d]
	if !ok {
		return nil, fmt.Errorf("direction %q is not configured", d)
	}
	e.once.Do(func() {
		// the first caller's cancellation must not poison the cached translator
		e.t.Store(s.safeOpen(context.WithoutCancel(ctx), d, e.cfg))
	})
	return e.t.Load(), nil
}

// safeOpen always yields a translator; once.Do treats a panic as done, so
// a panicking opener must still leave one behind.
func (s *Service) safeOpen(ctx context.Context, d Direction, cfg DirectionConfig) (t *Translator) {
	defer func() {
		if rec := recover(); rec != nil {
			log := logger.FromContext(ctx)
			log.Error("panic while opening translator", "direction", string(d), "panic", rec)
			t = unavailable(d, fmt.Errorf("open %s: panic: %v", d, rec), log)
		}
	}()
	if t = s.open(ctx, cfg); t == nil {
		t = unavailable(d, fmt.Errorf("no translator for %s", d), nil)
	}
	return t
}

// Translate runs text through direction d.
func (s *Service) Translate(ctx context.Context, d Direction, text string) Result {
	t, err := s.Translator(ctx, d)
	if err != nil {
		return unavailable(d, err, nil).Translate(ctx, text)
	}
	return t.Translate(ctx, text)
}

// GenerateCode translates pseudocode to C++ and returns the code or an
// error text.
func (s *Service) GenerateCode(ctx context.Context, pseudocode string) string {
	return s.Translate(ctx, PseudoToCode, pseudocode).Text
}

// GeneratePseudocode translates C++ to pseudocode and returns the
// pseudocode or an error text.
func (s *Service) GeneratePseudocode(ctx context.Context, code string) string {
	return s.Translate(ctx, CodeToPseudo, code).Text
}

// Warm builds every configured translator.
func (s *Service) Warm(ctx context.Context) {
	for _, d := range s.Configured() {
		_, _ = s.Translator(ctx, d)
	}
}

// Configured lists the configured directions in canonical order.
func (s *Service) Configured() []Direction {
	var out []Direction
	for _, d := range Directions() {
		if _, ok := s.entries[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Status reports each configured direction without loading anything.
func (s *Service) Status() []Status {
	out := make([]Status, 0, len(s.entries))
	for _, d := range s.Configured() {
		st := Status{Direction: d, Title: d.Title()}
		if t := s.entries[d].t.Load(); t != nil {
			st.Loaded = true
			st.Available = t.Available()
			if err := t.LoadErr(); err != nil {
				st.Error = err.Error()
			}
		}
		out = append(out, st)
	}
	return out
}
