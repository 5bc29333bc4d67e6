// Package api exposes the translation service over a small JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/pseudocpp/internal/translate"
	"github.com/samcharles93/pseudocpp/internal/version"
)

// Translator is the part of translate.Service the server depends on.
type Translator interface {
	Translate(ctx context.Context, d translate.Direction, text string) translate.Result
	Status() []translate.Status
}

type Server struct {
	store   *TranslationStore
	service Translator
	clock   func() time.Time
}

func NewServer(store *TranslationStore, service Translator) *Server {
	if store == nil {
		store = NewTranslationStore(DefaultStoreSize)
	}
	return &Server{
		store:   store,
		service: service,
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)

	e.GET("/v1/directions", s.handleListDirections)
	e.POST("/v1/translations", s.handleCreateTranslation)
	e.GET("/v1/translations/:id", s.handleGetTranslation)
	e.DELETE("/v1/translations/:id", s.handleDeleteTranslation)

	// single-purpose endpoints returning only the generated text
	e.POST("/v1/code", s.handleGenerateCode)
	e.POST("/v1/pseudocode", s.handleGeneratePseudocode)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

func (s *Server) handleListDirections(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "translation service not configured", "", "")
	}
	statuses := s.service.Status()
	out := DirectionList{Object: "list", Data: make([]DirectionInfo, 0, len(statuses))}
	for _, st := range statuses {
		out.Data = append(out.Data, DirectionInfo{
			ID:        st.Direction.String(),
			Object:    "direction",
			Title:     st.Title,
			Loaded:    st.Loaded,
			Available: st.Available,
			Error:     st.Error,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateTranslation(c *echo.Context) error {
	req, err := decodeJSON[TranslationRequest](c.Request().Body)
	if err != nil {
		return writeInvalidRequest(c, err)
	}
	d, err := parseDirection(req.Direction)
	if err != nil {
		return writeInvalidRequest(c, err)
	}
	return s.respond(c, d, req.Text, "text", func(tr Translation) any { return tr })
}

func parseDirection(raw string) (translate.Direction, error) {
	if strings.TrimSpace(raw) == "" {
		return "", newInvalidRequest("direction", "missing_direction", "direction is required")
	}
	d, err := translate.ParseDirection(raw)
	if err != nil {
		return "", newInvalidRequest("direction", "unknown_direction", err.Error())
	}
	return d, nil
}

// validateText rejects only the empty string; whitespace is passed to the
// model like any other input.
func validateText(d translate.Direction, text, param string) error {
	if text == "" {
		return newInvalidRequest(param, "empty_input", d.EmptyInputMessage())
	}
	return nil
}

func (s *Server) handleGetTranslation(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeNotFound(c, "translation not found")
	}
	tr, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "translation not found")
	}
	return c.JSON(http.StatusOK, tr)
}

func (s *Server) handleDeleteTranslation(c *echo.Context) error {
	id := c.Param("id")
	if id == "" || !s.store.Delete(id) {
		return writeNotFound(c, "translation not found")
	}
	return c.JSON(http.StatusOK, DeleteTranslationResp{
		ID:      id,
		Object:  "translation",
		Deleted: true,
	})
}

func (s *Server) handleGenerateCode(c *echo.Context) error {
	req, err := decodeJSON[CodeRequest](c.Request().Body)
	if err != nil {
		return writeInvalidRequest(c, err)
	}
	return s.respond(c, translate.PseudoToCode, req.Pseudocode, "pseudocode", func(tr Translation) any {
		return CodeResponse{ID: tr.ID, Code: tr.Text}
	})
}

func (s *Server) handleGeneratePseudocode(c *echo.Context) error {
	req, err := decodeJSON[PseudocodeRequest](c.Request().Body)
	if err != nil {
		return writeInvalidRequest(c, err)
	}
	return s.respond(c, translate.CodeToPseudo, req.Code, "code", func(tr Translation) any {
		return PseudocodeResponse{ID: tr.ID, Pseudocode: tr.Text}
	})
}

// respond validates text, translates it, stores the result and writes
// render(result). Failed translations keep their error text in the body.
func (s *Server) respond(c *echo.Context, d translate.Direction, text, param string, render func(Translation) any) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "translation service not configured", "", "")
	}
	if err := validateText(d, text, param); err != nil {
		return writeInvalidRequest(c, err)
	}

	res := s.service.Translate(c.Request().Context(), d, text)
	tr := s.newTranslation(res)
	s.store.Put(tr)

	status := http.StatusOK
	if res.Err != nil {
		status, _ = classify(res.Err)
	}
	return c.JSON(status, render(tr))
}

func (s *Server) newTranslation(res translate.Result) Translation {
	created := res.Created
	if created.IsZero() {
		created = s.clock()
	}
	tr := Translation{
		ID:        res.ID,
		Object:    "translation",
		CreatedAt: created.Unix(),
		Direction: res.Direction.String(),
		Status:    StatusCompleted,
		Text:      res.Text,
		Truncated: res.Truncated,
		Usage: Usage{
			InputTokens:  res.InputTokens,
			OutputTokens: res.OutputTokens,
		},
	}
	switch {
	case res.Err != nil:
		_, errType := classify(res.Err)
		tr.Status = StatusFailed
		tr.Error = &ResponseError{Message: res.Err.Error(), Type: errType}
	case res.Truncated:
		tr.Status = StatusTruncated
	}
	return tr
}
