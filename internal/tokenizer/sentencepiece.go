package tokenizer

import (
	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/pkg/errors"
)

const sentencePieceExt = ".model"

// SentencePiece adapts a SentencePiece model proto to Tokenizer.
type SentencePiece struct {
	proc *esentencepiece.Processor
	size int
}

// LoadSentencePiece reads a SentencePiece model file.
func LoadSentencePiece(path string) (*SentencePiece, error) {
	proc, err := esentencepiece.NewProcessorFromPath(path)
	if err != nil {
		return nil, loadError(path, errors.Wrap(err, "can't create sentencepiece processor"))
	}
	info := proc.ModelInfo()
	if info == nil || info.VocabularySize <= 0 {
		return nil, loadError(path, errors.New("sentencepiece model reports an empty vocabulary"))
	}
	return &SentencePiece{proc: proc, size: info.VocabularySize}, nil
}

func (t *SentencePiece) VocabSize() int { return t.size }

func (t *SentencePiece) Encode(text string) ([]int, error) {
	tokens := t.proc.Encode(text)
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = tok.ID
	}
	return ids, nil
}

func (t *SentencePiece) Decode(ids []int) (string, error) {
	for _, id := range ids {
		if id < 0 || id >= t.size {
			return "", errors.Wrapf(ErrInvalidID, "id %d outside [0, %d)", id, t.size)
		}
	}
	return t.proc.Decode(ids), nil
}
