package tokenizer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrResourceLoad marks a vocabulary or weight artifact that is missing or corrupt.
	ErrResourceLoad = errors.New("resource load failed")
	// ErrEncode marks text that could not be encoded.
	ErrEncode = errors.New("encode failed")
	// ErrInvalidID marks an id outside the decodable range.
	ErrInvalidID = errors.New("invalid token id")
)

// ResourceLoadError reports an artifact that could not be loaded.
type ResourceLoadError struct {
	Path string
	Err  error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrResourceLoad) match any ResourceLoadError.
func (e *ResourceLoadError) Is(target error) bool { return target == ErrResourceLoad }

func loadError(path string, err error) error {
	return &ResourceLoadError{Path: path, Err: err}
}
