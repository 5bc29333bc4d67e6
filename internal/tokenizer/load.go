package tokenizer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Load opens the vocabulary at path, choosing the format by extension:
// ".subwords" for SubwordTextEncoder vocabularies and ".model" for
// SentencePiece protos.
func Load(path string) (Tokenizer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, loadError(path, errors.New("vocabulary path is empty"))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, loadError(path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case subwordsFileExt:
		return LoadSubwords(path)
	case sentencePieceExt:
		return LoadSentencePiece(path)
	default:
		return nil, loadError(path, errors.Errorf("unsupported vocabulary format %q", filepath.Ext(path)))
	}
}
