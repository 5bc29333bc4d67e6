package inference

import (
	"errors"
	"time"
)

// MaxLength is the default bound on generated tokens per translation.
const MaxLength = 64

// ErrInference marks a failure inside the decode loop.
var ErrInference = errors.New("inference failed")

type Stats struct {
	Steps           int
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Result is the decoder sequence produced by Greedy. Tokens starts with the
// SOS id and never contains EOS.
type Result struct {
	Tokens    []int
	Truncated bool
	Stats     Stats
}

// Generated returns the tokens after the leading SOS.
func (r *Result) Generated() []int {
	if r == nil || len(r.Tokens) == 0 {
		return nil
	}
	return r.Tokens[1:]
}
