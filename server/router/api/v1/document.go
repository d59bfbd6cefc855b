package v1

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/ai/suggest"
	"github.com/hrygo/obsrag/plugin/ocr"
)

// ProcessRequest is the body of POST /api/v1/process. Path must point at a
// document on the server's filesystem.
type ProcessRequest struct {
	Path string `json:"path"`
}

// ProcessResponse reports the written note alongside the raw suggestions.
type ProcessResponse struct {
	Title          string               `json:"title"`
	OCRText        string               `json:"ocr_text"`
	SuggestedTags  []Suggestion         `json:"suggested_tags"`
	SuggestedLinks []Suggestion         `json:"suggested_links"`
	LLMTags        *suggest.TagDecision `json:"llm_tags"`
	NotePath       string               `json:"note_path"`
}

func (s *APIV1Service) ProcessDocument(c echo.Context) error {
	if s.Processor == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "document processing is not configured")
	}

	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Path) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	result, err := s.Processor.Process(c.Request().Context(), req.Path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		case errors.Is(err, ocr.ErrUnsupported):
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
		default:
			return engineHTTPError(err)
		}
	}

	return c.JSON(http.StatusOK, &ProcessResponse{
		Title:          result.Title,
		OCRText:        result.Transcript,
		SuggestedTags:  toSuggestions(result.Suggestion.Tags),
		SuggestedLinks: toSuggestions(result.Suggestion.Links),
		LLMTags:        result.Suggestion.Decision,
		NotePath:       result.NotePath,
	})
}
