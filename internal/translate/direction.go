// Package translate turns text into text for one translation direction by
// running a source tokenizer, the greedy decoder and a target tokenizer.
package translate

import (
	"fmt"
	"strings"
)

// Direction names a translation pipeline.
type Direction string

const (
	PseudoToCode Direction = "pseudo-to-code"
	CodeToPseudo Direction = "code-to-pseudo"
)

// Directions lists every supported direction.
func Directions() []Direction {
	return []Direction{PseudoToCode, CodeToPseudo}
}

// ParseDirection accepts the canonical names and the artifact directory
// names (pseudoToCode, codeToPseudo).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pseudo-to-code", "pseudotocode", "code":
		return PseudoToCode, nil
	case "code-to-pseudo", "codetopseudo", "pseudo", "pseudocode":
		return CodeToPseudo, nil
	default:
		return "", fmt.Errorf("unknown direction %q (expected %s or %s)", s, PseudoToCode, CodeToPseudo)
	}
}

func (d Direction) String() string { return string(d) }

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == PseudoToCode || d == CodeToPseudo
}

// DirName is the artifact directory of d under the models directory.
func (d Direction) DirName() string {
	switch d {
	case PseudoToCode:
		return "pseudoToCode"
	case CodeToPseudo:
		return "codeToPseudo"
	default:
		return string(d)
	}
}

// Title is a human-readable label.
func (d Direction) Title() string {
	switch d {
	case PseudoToCode:
		return "Pseudocode to C++ Code"
	case CodeToPseudo:
		return "C++ Code to Pseudocode"
	default:
		return string(d)
	}
}

// output names what d generates, as used in error text.
func (d Direction) output() string {
	if d == CodeToPseudo {
		return "pseudocode"
	}
	return "code"
}

// ErrorText formats a failure the way callers display it.
func (d Direction) ErrorText(err error) string {
	return fmt.Sprintf("Error generating %s: %v", d.output(), err)
}

// EmptyInputMessage is shown when the caller submits no text.
func (d Direction) EmptyInputMessage() string {
	if d == CodeToPseudo {
		return "Please enter C++ code to generate pseudocode."
	}
	return "Please enter pseudocode to generate C++ code."
}
