package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/obsrag/ai/suggest"
)

// SuggestRequest is the body of POST /api/v1/suggest.
type SuggestRequest struct {
	Text     string `json:"text"`
	TopK     int    `json:"top_k"`
	Filename string `json:"filename"`
}

// Suggestion is one suggested tag or link on the wire. Score is null for
// graph-expanded and LLM-invented candidates.
type Suggestion struct {
	Title  string   `json:"title"`
	Score  *float32 `json:"score"`
	Source string   `json:"source"`
}

// SuggestResponse mirrors the engine result. LLMTags is null unless the
// fallback ran and its reply parsed.
type SuggestResponse struct {
	SuggestedTags  []Suggestion         `json:"suggested_tags"`
	SuggestedLinks []Suggestion         `json:"suggested_links"`
	LLMTags        *suggest.TagDecision `json:"llm_tags"`
}

func (s *APIV1Service) Suggest(c echo.Context) error {
	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	if req.TopK < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "top_k must be a positive integer")
	}

	result, err := s.Engine.Suggest(c.Request().Context(), suggest.Request{
		Text:     req.Text,
		TopK:     req.TopK,
		Filename: req.Filename,
	})
	if err != nil {
		return engineHTTPError(err)
	}
	return c.JSON(http.StatusOK, NewSuggestResponse(result))
}

// NewSuggestResponse converts an engine result to its wire shape. The CLI
// reuses it so both surfaces emit identical JSON.
func NewSuggestResponse(result *suggest.Result) *SuggestResponse {
	return &SuggestResponse{
		SuggestedTags:  toSuggestions(result.Tags),
		SuggestedLinks: toSuggestions(result.Links),
		LLMTags:        result.Decision,
	}
}

func toSuggestions(candidates []suggest.Candidate) []Suggestion {
	out := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		out[i] = Suggestion{Title: c.Name, Score: c.Score, Source: string(c.Source)}
	}
	return out
}

// engineHTTPError maps pipeline failures onto status codes. Upstream model
// services failing is a gateway problem, not a client one.
func engineHTTPError(err error) error {
	var retrievalErr *suggest.RetrievalError
	var rerankErr *suggest.RerankError
	switch {
	case errors.As(err, &retrievalErr), errors.As(err, &rerankErr):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
