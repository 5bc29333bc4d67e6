// Package tokenizer converts text to and from subword id sequences.
//
// Every vocabulary reserves two ids just past its subword range: SOS at
// VocabSize() and EOS at VocabSize()+1. Encode never produces them and
// callers strip them before Decode.
package tokenizer

// Tokenizer is the contract shared by all vocabulary formats.
type Tokenizer interface {
	// Encode maps text to ids in [0, VocabSize()).
	Encode(text string) ([]int, error)
	// Decode maps ids in [0, VocabSize()) back to text.
	Decode(ids []int) (string, error)
	// VocabSize is the size of the learned id space, excluding SOS and EOS.
	VocabSize() int
}

// SOS returns the start-of-sequence id reserved for t.
func SOS(t Tokenizer) int { return t.VocabSize() }

// EOS returns the end-of-sequence id reserved for t.
func EOS(t Tokenizer) int { return t.VocabSize() + 1 }

// ExtendedSize is the number of ids a model over t must score: the
// vocabulary plus SOS and EOS.
func ExtendedSize(t Tokenizer) int { return t.VocabSize() + 2 }

// Frame encodes text and wraps it as [SOS] + ids + [EOS]. The sequence is
// never truncated.
func Frame(t Tokenizer, text string) ([]int, error) {
	ids, err := t.Encode(text)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(ids)+2)
	out = append(out, SOS(t))
	out = append(out, ids...)
	out = append(out, EOS(t))
	return out, nil
}

// StripReserved drops every id that is negative or >= SOS(t), which removes
// SOS, EOS and anything past the vocabulary.
func StripReserved(t Tokenizer, ids []int) []int {
	limit := SOS(t)
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < limit {
			out = append(out, id)
		}
	}
	return out
}
