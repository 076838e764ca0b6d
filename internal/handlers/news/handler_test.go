package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/newsinsight.net/internal/adapter/logging"
	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/core/services/worker"
	"gitlab.com/newsinsight.net/internal/domain"
)

type fakeNewsAPI struct {
	mu     sync.Mutex
	status int
	body   string
	last   domain.SearchQuery
}

func (f *fakeNewsAPI) Search(_ context.Context, q domain.SearchQuery) (*domain.RawResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = q
	return &domain.RawResponse{Status: f.status, Body: []byte(f.body)}, nil
}

func (f *fakeNewsAPI) ListSources(context.Context, domain.SourceFilter) (*domain.RawResponse, error) {
	return &domain.RawResponse{Status: http.StatusOK, Body: []byte(`{"status":"ok","sources":[{"id":"bbc-news"}]}`)}, nil
}

func (f *fakeNewsAPI) lastQuery() domain.SearchQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func newRouter(t *testing.T, api *fakeNewsAPI) *mux.Router {
	t.Helper()
	cfg := &config.OrchestratorCfg{
		RequestTimeout: time.Second,
		MaxRestarts:    3,
		RestartWindow:  time.Minute,
		InboxSize:      16,
		QueueCapacity:  32,
	}
	logger := logging.NewNopLogger()
	orch := orchestrator.NewOrchestrator(cfg, worker.NewTasks(api, nil), api, logger, nil)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	router := mux.NewRouter()
	NewNewsHandler(orch, logger).RegisterRoutes(router)
	return router
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearch_AddsSentiment(t *testing.T) {
	api := &fakeNewsAPI{status: http.StatusOK, body: `{"status":"ok","articles":[{"title":"A wonderful win","description":""}]}`}
	router := newRouter(t, api)

	rec := get(router, "/api/search?q=football")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "happy", doc["overallSentiment"])
	assert.Equal(t, ":-)", doc["overallSentimentEmoji"])
	assert.Equal(t, "football", api.lastQuery().Query)
	assert.Equal(t, domain.AnalysisCap, api.lastQuery().PageSize)
	assert.Equal(t, "en", api.lastQuery().Language)
}

func TestSearch_MissingQuery(t *testing.T) {
	router := newRouter(t, &fakeNewsAPI{status: http.StatusOK, body: `{}`})

	rec := get(router, "/api/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.CodeBadRequest)
}

func TestSearch_DownstreamErrorPassesThrough(t *testing.T) {
	body := `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`
	router := newRouter(t, &fakeNewsAPI{status: http.StatusUnauthorized, body: body})

	for _, path := range []string{"/api/search?q=x", "/api/readability?q=x", "/api/wordstats?q=x", "/api/search/plain?q=x"} {
		rec := get(router, path)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, body, rec.Body.String(), path)
	}
}

func TestPlainSearch_PassesBodyThrough(t *testing.T) {
	body := `{"status":"ok","totalResults":0,"articles":[],"extra":{"kept":true}}`
	api := &fakeNewsAPI{status: http.StatusOK, body: body}
	router := newRouter(t, api)

	rec := get(router, "/api/search/plain?q=x&language=all&pageSize=500&sortBy=popularity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())

	q := api.lastQuery()
	assert.Empty(t, q.Language)
	assert.Equal(t, domain.MaxPageSize, q.PageSize)
	assert.Equal(t, "popularity", q.SortBy)
}

func TestReadability_ZeroArticles(t *testing.T) {
	router := newRouter(t, &fakeNewsAPI{status: http.StatusOK, body: `{"status":"ok","articles":[]}`})

	rec := get(router, "/api/readability?q=x")
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.ReadabilityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Items)
	assert.Equal(t, 0.0, report.AverageReadingEase)
	assert.Equal(t, 0.0, report.AverageGradeLevel)
}

func TestSourceProfile_Defaults(t *testing.T) {
	api := &fakeNewsAPI{status: http.StatusOK, body: `{"articles":[]}`}
	router := newRouter(t, api)

	rec := get(router, "/api/sources/bbc-news/articles?country=us")
	require.Equal(t, http.StatusOK, rec.Code)

	q := api.lastQuery()
	assert.Equal(t, "bbc-news", q.Sources)
	assert.Equal(t, domain.SortPublishedAt, q.SortBy)
	assert.Equal(t, 10, q.PageSize)
	assert.Empty(t, q.Country)
}

func TestListSources(t *testing.T) {
	router := newRouter(t, &fakeNewsAPI{})

	rec := get(router, "/api/sources?language=en")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bbc-news")
}
