package v1

import (
	"net/http"

	"log/slog"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Documents int64  `json:"documents"`
	Chunks    int64  `json:"chunks"`
	Tags      int    `json:"tags"`
}

// TagInfo is one registry entry with its usage count.
type TagInfo struct {
	Name  string `json:"name"`
	Notes int    `json:"notes"`
}

// TagsResponse is the body of GET /api/v1/tags.
type TagsResponse struct {
	Tags  []TagInfo `json:"tags"`
	Count int       `json:"count"`
}

func (s *APIV1Service) Health(c echo.Context) error {
	resp := &HealthResponse{
		Status:  "ok",
		Version: s.Profile.Version,
		Tags:    s.Engine.Registry().Len(),
	}
	stats, err := s.Store.Stats(c.Request().Context())
	if err != nil {
		slog.WarnContext(c.Request().Context(), "healthz_stats_failed", "error", err)
	} else {
		resp.Documents = stats.Documents
		resp.Chunks = stats.Chunks
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) ListTags(c echo.Context) error {
	registry := s.Engine.Registry()
	names := registry.Names()

	tags := make([]TagInfo, len(names))
	for i, name := range names {
		tags[i] = TagInfo{Name: name, Notes: len(registry.ContextFor(name))}
	}
	return c.JSON(http.StatusOK, &TagsResponse{Tags: tags, Count: len(tags)})
}
