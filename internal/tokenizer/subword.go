package tokenizer

import (
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const (
	// numBytes is the size of the byte fallback range that follows the subwords.
	numBytes = 256
	// underscoreEscape replaces literal underscores inside tokens so a trailing
	// "_" can mark a following space.
	underscoreEscape = `\&undsc`
	tokenCacheSize   = 1 << 14
)

// Subword is a greedy longest-match subword tokenizer compatible with the
// SubwordTextEncoder vocabulary format.
//
// Id layout: 0 is padding, 1..len(subwords) are subwords, and the next 256
// ids encode raw bytes for characters no subword covers.
type Subword struct {
	subwords []string
	index    map[string]int
	maxLen   int
	metadata map[string]any
	tokenIDs *lru.Cache
}

// NewSubword builds a tokenizer over subwords. Empty entries are dropped.
func NewSubword(subwords []string) (*Subword, error) {
	kept := make([]string, 0, len(subwords))
	for _, s := range subwords {
		if s != "" {
			kept = append(kept, s)
		}
	}
	index := make(map[string]int, len(kept))
	maxLen := utf8.RuneCountInString(underscoreEscape)
	for i, s := range kept {
		if _, dup := index[s]; !dup {
			index[s] = i
		}
		if n := utf8.RuneCountInString(s); n > maxLen {
			maxLen = n
		}
	}
	cache, err := lru.New(tokenCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create token cache")
	}
	return &Subword{
		subwords: kept,
		index:    index,
		maxLen:   maxLen,
		tokenIDs: cache,
	}, nil
}

// VocabSize is 1 (padding) + len(subwords) + 256 byte ids.
func (s *Subword) VocabSize() int {
	return 1 + len(s.subwords) + numBytes
}

// Subwords returns a copy of the vocabulary in id order, starting at id 1.
func (s *Subword) Subwords() []string {
	return append([]string(nil), s.subwords...)
}

// Metadata returns the metadata stored alongside the vocabulary, if any.
func (s *Subword) Metadata() map[string]any {
	return s.metadata
}

// Encode splits text into word and non-word runs and encodes each run.
func (s *Subword) Encode(text string) ([]int, error) {
	if !utf8.ValidString(text) {
		return nil, errors.Wrap(ErrEncode, "text is not valid UTF-8")
	}
	var ids []int
	for _, tok := range prepareTokens(splitTokens(text)) {
		ids = append(ids, s.tokenToIDs(tok)...)
	}
	for i := range ids {
		ids[i]++
	}
	return ids, nil
}

// Decode reverses Encode. Consecutive byte ids are decoded together so
// multi-byte characters survive; invalid UTF-8 becomes U+FFFD.
func (s *Subword) Decode(ids []int) (string, error) {
	ids = trimPadding(ids)
	var (
		b       strings.Builder
		pending []byte
	)
	flush := func() {
		if len(pending) > 0 {
			appendBytes(&b, pending)
			pending = pending[:0]
		}
	}
	for _, raw := range ids {
		id := raw - 1
		if id < 0 || id >= len(s.subwords)+numBytes {
			return "", errors.Wrapf(ErrInvalidID, "id %d outside [1, %d)", raw, s.VocabSize())
		}
		if id >= len(s.subwords) {
			pending = append(pending, byte(id-len(s.subwords)))
			continue
		}
		flush()
		sub := s.subwords[id]
		if strings.HasSuffix(sub, "_") {
			b.WriteString(sub[:len(sub)-1])
			b.WriteByte(' ')
		} else {
			b.WriteString(sub)
		}
	}
	flush()
	return strings.ReplaceAll(b.String(), underscoreEscape, "_"), nil
}

// tokenToIDs returns zero-based ids (before the padding shift) for one
// prepared token.
func (s *Subword) tokenToIDs(token string) []int {
	if cached, ok := s.tokenIDs.Get(token); ok {
		return append([]int(nil), cached.([]int)...)
	}
	var ids []int
	for _, sub := range s.splitSubwords(token) {
		if sub == underscoreEscape {
			ids = append(ids, len(s.subwords)+'_')
			continue
		}
		if id, ok := s.index[sub]; ok {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, s.byteIDs(sub)...)
	}
	s.tokenIDs.Add(token, append([]int(nil), ids...))
	return ids
}

// splitSubwords greedily takes the longest known subword at each position,
// falling back to a single character.
func (s *Subword) splitSubwords(token string) []string {
	runes := []rune(token)
	var out []string
	for start := 0; start < len(runes); {
		matched := false
		for end := min(len(runes), start+s.maxLen); end > start; end-- {
			cand := string(runes[start:end])
			if _, ok := s.index[cand]; ok || cand == underscoreEscape {
				out = append(out, cand)
				start = end
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, string(runes[start]))
			start++
		}
	}
	return out
}

func (s *Subword) byteIDs(sub string) []int {
	offset := len(s.subwords)
	if sub == "_" {
		return []int{offset + ' '}
	}
	ids := make([]int, 0, len(sub))
	for i := 0; i < len(sub); i++ {
		ids = append(ids, offset+int(sub[i]))
	}
	return ids
}

// trimPadding drops trailing zero ids. An all-padding sequence decodes to "".
func trimPadding(ids []int) []int {
	end := len(ids)
	for end > 0 && ids[end-1] == 0 {
		end--
	}
	return ids[:end]
}

func appendBytes(b *strings.Builder, raw []byte) {
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size <= 1 {
			b.WriteRune(utf8.RuneError)
			raw = raw[1:]
			continue
		}
		b.WriteRune(r)
		raw = raw[size:]
	}
}
