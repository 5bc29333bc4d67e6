package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/pseudocpp/internal/inference"
	"github.com/samcharles93/pseudocpp/internal/model"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, newInvalidRequest("", "empty_body", "request body is empty")
		}
		return out, newInvalidRequest("", "invalid_json", "invalid JSON body: "+err.Error())
	}
	return out, nil
}

// classify maps a translation failure to an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable_error"
	case errors.Is(err, inference.ErrInference):
		return http.StatusInternalServerError, "inference_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
