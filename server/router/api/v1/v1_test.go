package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/obsrag/ai/metrics"
	"github.com/hrygo/obsrag/ai/suggest"
	"github.com/hrygo/obsrag/internal/profile"
	"github.com/hrygo/obsrag/plugin/ocr"
	"github.com/hrygo/obsrag/server/service/process"
	"github.com/hrygo/obsrag/store"
	"github.com/hrygo/obsrag/store/db/sqlite"
	"github.com/hrygo/obsrag/vault"
)

type stubRetriever struct {
	hits []suggest.Candidate
	err  error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ int) ([]suggest.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

type stubRegistry struct {
	names []string
	usage map[string][]string
}

func (s *stubRegistry) Contains(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

func (s *stubRegistry) ContextFor(name string) []string { return s.usage[name] }
func (s *stubRegistry) Names() []string                 { return s.names }
func (s *stubRegistry) Len() int                        { return len(s.names) }

type testEnv struct {
	service *APIV1Service
	echo    *echo.Echo
	inbox   string
}

// newTestEnv assembles a service over a canned retriever, a real sqlite
// store and the plain text OCR provider.
func newTestEnv(t *testing.T, retriever suggest.Retriever) *testEnv {
	t.Helper()

	p := &profile.Profile{
		Mode:    "dev",
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "api.db"),
		Version: "0.3.0",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	registry := &stubRegistry{
		names: []string{"linear-algebra", "python"},
		usage: map[string][]string{
			"linear-algebra": {"Eigenvalues", "Lecture 12"},
			"python":         {"Pytest Cookbook"},
		},
	}
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	engine, err := suggest.NewEngine(suggest.Config{}, retriever, nil, registry, nil, exporter)
	require.NoError(t, err)

	vaultDir := t.TempDir()
	inboxDir := filepath.Join(vaultDir, "inbox")
	require.NoError(t, os.MkdirAll(inboxDir, 0o755))
	writer := vault.NewWriter(inboxDir, vault.StyleWikilink)
	processor := process.New(ocr.NewTextProvider(), engine, writer, "inbox")

	service := &APIV1Service{
		Profile:   p,
		Store:     st,
		Engine:    engine,
		Processor: processor,
		Exporter:  exporter,
	}
	e := echo.New()
	service.Register(e)
	return &testEnv{service: service, echo: e, inbox: inboxDir}
}

func (env *testEnv) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func TestSuggestEndpoint(t *testing.T) {
	retriever := &stubRetriever{hits: []suggest.Candidate{
		{Name: "python", Score: suggest.Score(0.91), Source: suggest.SourceRetrieval},
		{Name: "Pytest Cookbook", Score: suggest.Score(0.72), Source: suggest.SourceRetrieval,
			Links: []string{"CI Checklist"}},
	}}
	env := newTestEnv(t, retriever)

	rec := env.request(http.MethodPost, "/api/v1/suggest", `{"text": "pytest fixtures for the pipeline"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SuggestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.SuggestedTags, 1)
	assert.Equal(t, "python", resp.SuggestedTags[0].Title)
	assert.Equal(t, "retrieval", resp.SuggestedTags[0].Source)
	require.NotNil(t, resp.SuggestedTags[0].Score)
	assert.InDelta(t, 0.91, *resp.SuggestedTags[0].Score, 1e-6)

	require.Len(t, resp.SuggestedLinks, 2)
	assert.Equal(t, "Pytest Cookbook", resp.SuggestedLinks[0].Title)
	assert.Equal(t, "CI Checklist", resp.SuggestedLinks[1].Title)
	assert.Equal(t, "graph", resp.SuggestedLinks[1].Source)
	assert.Nil(t, resp.SuggestedLinks[1].Score)

	assert.Nil(t, resp.LLMTags)
	assert.Contains(t, rec.Body.String(), `"llm_tags":null`)
}

func TestSuggestEndpoint_Validation(t *testing.T) {
	env := newTestEnv(t, &stubRetriever{})

	tests := []struct {
		name string
		body string
	}{
		{"EmptyText", `{"text": "   "}`},
		{"MissingText", `{}`},
		{"NegativeTopK", `{"text": "notes", "top_k": -2}`},
		{"MalformedJSON", `{"text": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(http.MethodPost, "/api/v1/suggest", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestSuggestEndpoint_RetrievalFailure(t *testing.T) {
	env := newTestEnv(t, &stubRetriever{err: errors.New("embedding api: 429")})

	rec := env.request(http.MethodPost, "/api/v1/suggest", `{"text": "pytest"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "retrieval failed")
}

func TestProcessEndpoint(t *testing.T) {
	retriever := &stubRetriever{hits: []suggest.Candidate{
		{Name: "python", Score: suggest.Score(0.88), Source: suggest.SourceRetrieval},
		{Name: "Pytest Cookbook", Score: suggest.Score(0.64), Source: suggest.SourceRetrieval},
	}}
	env := newTestEnv(t, retriever)

	src := filepath.Join(t.TempDir(), "Sprint_review.md")
	require.NoError(t, os.WriteFile(src, []byte("Reviewed the pytest migration.\n"), 0o644))

	body, err := json.Marshal(ProcessRequest{Path: src})
	require.NoError(t, err)
	rec := env.request(http.MethodPost, "/api/v1/process", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Sprint Review", resp.Title)
	assert.Contains(t, resp.OCRText, "pytest migration")
	assert.Equal(t, "inbox/Sprint Review.md", resp.NotePath)
	require.Len(t, resp.SuggestedTags, 1)
	assert.Equal(t, "python", resp.SuggestedTags[0].Title)
	assert.Nil(t, resp.LLMTags)

	written, err := os.ReadFile(filepath.Join(env.inbox, "Sprint Review.md"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "- [[Pytest Cookbook]]")
}

func TestProcessEndpoint_Errors(t *testing.T) {
	env := newTestEnv(t, &stubRetriever{})

	t.Run("MissingPath", func(t *testing.T) {
		rec := env.request(http.MethodPost, "/api/v1/process", `{"path": ""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("DocumentNotFound", func(t *testing.T) {
		body := `{"path": "` + filepath.ToSlash(filepath.Join(t.TempDir(), "gone.md")) + `"}`
		rec := env.request(http.MethodPost, "/api/v1/process", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "slides.docx")
		require.NoError(t, os.WriteFile(src, []byte("zip"), 0o644))
		rec := env.request(http.MethodPost, "/api/v1/process", `{"path": "`+filepath.ToSlash(src)+`"}`)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		env.service.Processor = nil
		rec := env.request(http.MethodPost, "/api/v1/process", `{"path": "/tmp/x.md"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubRetriever{})

	rec := env.request(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0.3.0", resp.Version)
	assert.Equal(t, 2, resp.Tags)
	assert.Zero(t, resp.Documents)
}

func TestListTagsEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubRetriever{})

	rec := env.request(http.MethodGet, "/api/v1/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TagsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Tags, 2)
	assert.Equal(t, TagInfo{Name: "linear-algebra", Notes: 2}, resp.Tags[0])
	assert.Equal(t, TagInfo{Name: "python", Notes: 1}, resp.Tags[1])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubRetriever{hits: []suggest.Candidate{
		{Name: "python", Score: suggest.Score(0.9), Source: suggest.SourceRetrieval},
	}})

	rec := env.request(http.MethodPost, "/api/v1/suggest", `{"text": "pytest"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "obsrag_requests_total")
	assert.Contains(t, rec.Body.String(), "obsrag_index_documents")
}
