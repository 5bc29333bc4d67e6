package tokenizer

import (
	"strings"
	"unicode"
)

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// splitTokens cuts text into maximal runs of word and non-word characters.
// Joining the result gives back text.
func splitTokens(text string) []string {
	var (
		tokens []string
		start  int
		inWord bool
	)
	for i, r := range text {
		w := isWordRune(r)
		if i > start && w != inWord {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inWord = w
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// prepareTokens escapes underscores and folds a following single space into
// a trailing "_" on the preceding token.
func prepareTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := strings.ReplaceAll(tokens[i], "_", underscoreEscape)
		if i+1 < len(tokens) && tokens[i+1] == " " {
			tok += "_"
			i++
		}
		out = append(out, tok)
	}
	return out
}
