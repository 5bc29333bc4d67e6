package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
)

// ErrInvalidRequest marks translation requests rejected before any model
// work.
var ErrInvalidRequest = errors.New("invalid translation request")

// invalidRequestError names the offending request field and a stable code.
type invalidRequestError struct {
	param string
	code  string
	msg   string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(param, code, msg string) error {
	return invalidRequestError{param: param, code: code, msg: msg}
}

// writeInvalidRequest answers 400 with the field and code carried by err.
func writeInvalidRequest(c *echo.Context, err error) error {
	var ire invalidRequestError
	if errors.As(err, &ire) {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", ire.msg, ire.param, ire.code)
	}
	return writeBadRequest(c, err.Error())
}
