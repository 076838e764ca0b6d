package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/newsinsight.net/internal/adapter/logging"
	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/core/services/worker"
	"gitlab.com/newsinsight.net/internal/metrics"
)

func newTestServer(t *testing.T) (*httptest.Server, *orchestrator.Orchestrator) {
	t.Helper()
	logger := logging.NewNopLogger()
	collectors := metrics.NewCollectors()
	orch := orchestrator.NewOrchestrator(&config.OrchestratorCfg{
		RequestTimeout: time.Second,
		MaxRestarts:    3,
		RestartWindow:  time.Minute,
		InboxSize:      8,
		QueueCapacity:  32,
		SessionIdleTTL: time.Minute,
		MaxSessions:    8,
	}, worker.Tasks{}, nil, logger, collectors)
	orch.Start(context.Background())

	srv := NewServer(config.NewHttpConfig(), "newsinsight", *NewServiceProvider(orch, orch.Done(), collectors.Handler()), logger)
	require.NoError(t, srv.Init())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		orch.Stop()
	})
	return ts, orch
}

func TestServer_InitRequiresOrchestrator(t *testing.T) {
	srv := NewServer(config.NewHttpConfig(), "newsinsight", ServiceProvider{}, logging.NewNopLogger())
	assert.Error(t, srv.Init())
}

func TestServer_HealthFollowsOrchestrator(t *testing.T) {
	ts, orch := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	orch.Stop()

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_ExposesMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "newsinsight_stream_active_sessions")
}

func TestServer_RoutesHistory(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/stream/missing/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
