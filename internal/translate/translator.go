package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/pseudocpp/internal/inference"
	"github.com/samcharles93/pseudocpp/internal/logger"
	"github.com/samcharles93/pseudocpp/internal/model"
	"github.com/samcharles93/pseudocpp/internal/tokenizer"
)

// Result is the outcome of one translation. On failure Text holds the
// message shown to users and Err the underlying error.
type Result struct {
	ID           string
	Direction    Direction
	Text         string
	Truncated    bool
	InputTokens  int
	OutputTokens int
	Stats        inference.Stats
	Err          error
	Created      time.Time
}

// Failed reports whether the translation produced an error text.
func (r Result) Failed() bool { return r.Err != nil }

// Translator translates text in one direction. Its tokenizers and model are
// read-only, so Translate may be called concurrently; serialization of model
// calls, when needed, is the model's concern.
type Translator struct {
	direction Direction
	in, out   tokenizer.Tokenizer
	model     model.Model
	maxLength int
	loadErr   error
	log       logger.Logger
}

// New assembles a translator from loaded parts. A nil model or tokenizer
// makes the translator unavailable.
func New(direction Direction, in, out tokenizer.Tokenizer, m model.Model, maxLength int, log logger.Logger) *Translator {
	if maxLength <= 0 {
		maxLength = inference.MaxLength
	}
	if log == nil {
		log = logger.Discard()
	}
	t := &Translator{
		direction: direction,
		in:        in,
		out:       out,
		model:     m,
		maxLength: maxLength,
		log:       log.With("direction", string(direction)),
	}
	if m == nil {
		t.model = model.Unavailable{}
	}
	if _, ok := t.model.(model.Unavailable); !ok && (in == nil || out == nil) {
		t.model = model.Unavailable{Err: errors.New("vocabulary not loaded")}
	}
	if u, ok := t.model.(model.Unavailable); ok {
		t.loadErr = u.Err
	}
	return t
}

// unavailable returns a translator that fails every call with err.
func unavailable(direction Direction, err error, log logger.Logger) *Translator {
	return New(direction, nil, nil, model.Unavailable{Err: err}, 0, log)
}

func (t *Translator) Direction() Direction { return t.direction }

// Available reports whether the translator can run inference.
func (t *Translator) Available() bool {
	return t.in != nil && t.out != nil && model.IsAvailable(t.model)
}

// LoadErr returns why the translator is unavailable, if it is.
func (t *Translator) LoadErr() error {
	if t.Available() {
		return nil
	}
	if t.loadErr != nil {
		return fmt.Errorf("%w: %w", model.ErrModelUnavailable, t.loadErr)
	}
	return model.ErrModelUnavailable
}

// Translate never panics and never returns a Go error: failures come back
// as Result.Err with a descriptive Result.Text. Once started, a translation
// runs to completion even if ctx is cancelled.
func (t *Translator) Translate(ctx context.Context, text string) Result {
	res := Result{
		ID:        uuid.NewString(),
		Direction: t.direction,
		Created:   time.Now(),
	}
	if !t.Available() {
		return t.fail(res, t.LoadErr())
	}

	enc, err := safeFrame(t.in, text)
	if err != nil {
		return t.fail(res, fmt.Errorf("%w: encode input: %w", inference.ErrInference, err))
	}
	res.InputTokens = len(enc)

	out, err := inference.Greedy(context.WithoutCancel(ctx), t.model, enc,
		tokenizer.SOS(t.out), tokenizer.EOS(t.out), t.maxLength)
	if err != nil {
		return t.fail(res, err)
	}
	res.Truncated = out.Truncated
	res.Stats = out.Stats

	ids := tokenizer.StripReserved(t.out, out.Tokens)
	res.OutputTokens = len(ids)
	decoded, err := safeDecode(t.out, ids)
	if err != nil {
		return t.fail(res, fmt.Errorf("%w: decode output: %w", inference.ErrInference, err))
	}
	res.Text = decoded

	t.log.Debug("translated",
		"id", res.ID,
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
		"steps", out.Stats.Steps,
		"duration", out.Stats.Duration,
	)
	if res.Truncated {
		t.log.Warn("translation hit the step limit", "id", res.ID, "max_length", t.maxLength)
	}
	return res
}

func (t *Translator) fail(res Result, err error) Result {
	res.Err = err
	res.Text = t.direction.ErrorText(err)
	t.log.Error("translation failed", "id", res.ID, "error", err)
	return res
}

func safeFrame(tok tokenizer.Tokenizer, text string) (ids []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Encode: %v", rec)
		}
	}()
	return tokenizer.Frame(tok, text)
}

func safeDecode(tok tokenizer.Tokenizer, ids []int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Decode: %v", rec)
		}
	}()
	return tok.Decode(ids)
}
