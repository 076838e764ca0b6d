package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/newsinsight.net/internal/adapter/logging"
	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/services/worker"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/static/errs"
	"gitlab.com/newsinsight.net/internal/stream"
)

func testCfg() *config.OrchestratorCfg {
	return &config.OrchestratorCfg{
		RequestTimeout: 200 * time.Millisecond,
		MaxRestarts:    3,
		RestartWindow:  time.Minute,
		InboxSize:      64,
		QueueCapacity:  32,
		SessionIdleTTL: time.Hour,
		MaxSessions:    16,
		SweepInterval:  time.Minute,
	}
}

type stubCatalog struct {
	resp *domain.RawResponse
	err  error
}

func (c stubCatalog) ListSources(context.Context, domain.SourceFilter) (*domain.RawResponse, error) {
	return c.resp, c.err
}

type blockingSearcher struct {
	honourContext bool
}

func (b blockingSearcher) Search(ctx context.Context, _ domain.SearchQuery) (*domain.RawResponse, error) {
	if b.honourContext {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	select {}
}

func succeed(payload interface{}) worker.Task {
	return worker.TaskFunc(func(_ context.Context, j domain.Job) (domain.WorkerResult, error) {
		return domain.Success(j, payload), nil
	})
}

func newTestOrchestrator(t *testing.T, cfg *config.OrchestratorCfg, tasks worker.Tasks) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(cfg, tasks, stubCatalog{}, logging.NewNopLogger(), nil)
	o.Start(context.Background())
	t.Cleanup(o.Stop)
	return o
}

func newJob(kind domain.TaskKind) domain.Job {
	return domain.NewJob(kind, domain.JobParams{Query: "golang"})
}

func TestHandleRequest_ReturnsWorkerPayload(t *testing.T) {
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskWordStats: succeed("stats")})

	j := newJob(domain.TaskWordStats)
	res := o.HandleRequest(context.Background(), j)

	require.True(t, res.OK())
	assert.Equal(t, j.ID, res.JobID)
	assert.Equal(t, "stats", res.Payload)
}

func TestHandleRequest_TimesOutWhenFetchNeverCompletes(t *testing.T) {
	for name, searcher := range map[string]blockingSearcher{
		"ignores context": {honourContext: false},
		"honours context": {honourContext: true},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testCfg()
			cfg.RequestTimeout = 50 * time.Millisecond
			o := newTestOrchestrator(t, cfg, worker.NewTasks(searcher, nil))

			started := time.Now()
			res := o.HandleRequest(context.Background(), newJob(domain.TaskReadability))

			require.False(t, res.OK())
			assert.Equal(t, domain.CodeTimeout, res.Failure.Code)
			assert.Equal(t, http.StatusInternalServerError, res.Status())
			assert.Less(t, time.Since(started), time.Second)
		})
	}
}

func TestHandleRequest_RestartBudgetExhausted(t *testing.T) {
	var attempts atomic.Int32
	crash := worker.TaskFunc(func(context.Context, domain.Job) (domain.WorkerResult, error) {
		attempts.Add(1)
		panic("parser exploded")
	})
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskSentiment: crash})

	res := o.HandleRequest(context.Background(), newJob(domain.TaskSentiment))

	require.False(t, res.OK())
	assert.Equal(t, domain.CodeWorkerUnavailable, res.Failure.Code)
	assert.Equal(t, http.StatusInternalServerError, res.Status())
	assert.Equal(t, int32(4), attempts.Load())
}

func TestHandleRequest_RestartsThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	flaky := worker.TaskFunc(func(_ context.Context, j domain.Job) (domain.WorkerResult, error) {
		if attempts.Add(1) < 3 {
			return domain.WorkerResult{}, errors.New("connection reset")
		}
		return domain.Success(j, "third time"), nil
	})
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskReadability: flaky})

	res := o.HandleRequest(context.Background(), newJob(domain.TaskReadability))

	require.True(t, res.OK())
	assert.Equal(t, "third time", res.Payload)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestHandleRequest_BusinessErrorIsNotRestarted(t *testing.T) {
	var attempts atomic.Int32
	notFound := worker.TaskFunc(func(_ context.Context, j domain.Job) (domain.WorkerResult, error) {
		attempts.Add(1)
		return domain.Fail(j, domain.DownstreamFailure(http.StatusNotFound, []byte(`{"message":"nope"}`))), nil
	})
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskPlainSearch: notFound})

	res := o.HandleRequest(context.Background(), newJob(domain.TaskPlainSearch))

	assert.Equal(t, http.StatusNotFound, res.Status())
	assert.JSONEq(t, `{"message":"nope"}`, string(res.Failure.Body))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestHandleRequest_LateReplyIsDiscarded(t *testing.T) {
	cfg := testCfg()
	cfg.RequestTimeout = 30 * time.Millisecond
	slow := worker.TaskFunc(func(_ context.Context, j domain.Job) (domain.WorkerResult, error) {
		time.Sleep(80 * time.Millisecond)
		return domain.Success(j, "too late"), nil
	})
	o := newTestOrchestrator(t, cfg, worker.Tasks{
		domain.TaskSentiment: slow,
		domain.TaskWordStats: succeed("fine"),
	})

	res := o.HandleRequest(context.Background(), newJob(domain.TaskSentiment))
	assert.Equal(t, domain.CodeTimeout, res.Failure.Code)

	time.Sleep(100 * time.Millisecond)
	res = o.HandleRequest(context.Background(), newJob(domain.TaskWordStats))
	require.True(t, res.OK())
	assert.Equal(t, "fine", res.Payload)
}

func TestHandleRequest_UnknownKind(t *testing.T) {
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{})

	res := o.HandleRequest(context.Background(), newJob(domain.TaskSentiment))

	assert.Equal(t, http.StatusBadRequest, res.Status())
	assert.Equal(t, domain.CodeBadRequest, res.Failure.Code)
}

func TestHandleRequest_AfterStop(t *testing.T) {
	o := NewOrchestrator(testCfg(), worker.Tasks{domain.TaskWordStats: succeed("x")}, stubCatalog{}, logging.NewNopLogger(), nil)
	o.Start(context.Background())
	o.Stop()

	res := o.HandleRequest(context.Background(), newJob(domain.TaskWordStats))
	assert.Equal(t, http.StatusServiceUnavailable, res.Status())
	assert.Equal(t, domain.CodeOrchestratorStopped, res.Failure.Code)
}

func TestHandleRequest_StopFailsPendingRequests(t *testing.T) {
	cfg := testCfg()
	cfg.RequestTimeout = 5 * time.Second
	o := NewOrchestrator(cfg, worker.NewTasks(blockingSearcher{}, nil), stubCatalog{}, logging.NewNopLogger(), nil)
	o.Start(context.Background())

	out := make(chan domain.WorkerResult, 1)
	go func() {
		out <- o.HandleRequest(context.Background(), newJob(domain.TaskSentiment))
	}()
	time.Sleep(20 * time.Millisecond)
	o.Stop()

	select {
	case res := <-out:
		assert.Equal(t, domain.CodeOrchestratorStopped, res.Failure.Code)
	case <-time.After(time.Second):
		t.Fatal("pending request not failed on stop")
	}
}

func nextMessage(t *testing.T, q *stream.Queue) domain.StreamMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := q.Next(ctx)
	require.NoError(t, err)
	var msg domain.StreamMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestFetchHistory_UnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{})

	_, err := o.FetchHistory(context.Background(), "never-started")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestStartSession_PushesResultsAndRecordsHistory(t *testing.T) {
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{
		domain.TaskSentiment:   succeed(map[string]string{"overallSentiment": "happy"}),
		domain.TaskReadability: succeed(domain.ReadabilityReport{Query: "golang"}),
	})
	q := o.NewQueue()

	spec := domain.StreamSpec{
		Params: domain.JobParams{Query: "golang"},
		Kinds:  []domain.TaskKind{domain.TaskSentiment, domain.TaskReadability},
	}
	require.NoError(t, o.StartSession(context.Background(), spec, "s-1", q))

	first := nextMessage(t, q)
	second := nextMessage(t, q)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.ElementsMatch(t, []domain.TaskKind{domain.TaskSentiment, domain.TaskReadability}, []domain.TaskKind{first.Kind, second.Kind})
	assert.Equal(t, "s-1", first.SessionID)
	assert.Equal(t, http.StatusOK, first.Status)

	history, err := o.FetchHistory(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	var h1, h2 domain.StreamMessage
	require.NoError(t, json.Unmarshal(history[0], &h1))
	require.NoError(t, json.Unmarshal(history[1], &h2))
	assert.Equal(t, first.ID, h1.ID)
	assert.Equal(t, second.ID, h2.ID)
}

func TestStartSession_FailuresAreStreamed(t *testing.T) {
	notFound := worker.TaskFunc(func(_ context.Context, j domain.Job) (domain.WorkerResult, error) {
		return domain.Fail(j, domain.DownstreamFailure(http.StatusUnauthorized, []byte(`{"code":"apiKeyInvalid"}`))), nil
	})
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskWordStats: notFound})
	q := o.NewQueue()

	spec := domain.StreamSpec{Params: domain.JobParams{Query: "x"}, Kinds: []domain.TaskKind{domain.TaskWordStats}}
	require.NoError(t, o.StartSession(context.Background(), spec, "s-err", q))

	msg := nextMessage(t, q)
	assert.Equal(t, http.StatusUnauthorized, msg.Status)
	assert.Equal(t, domain.CodeDownstream, msg.Code)
	assert.JSONEq(t, `{"code":"apiKeyInvalid"}`, string(msg.Payload))
}

func TestStartSession_RejectsBadInput(t *testing.T) {
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskWordStats: succeed("x")})

	err := o.StartSession(context.Background(), domain.StreamSpec{}, "  ", o.NewQueue())
	assert.ErrorIs(t, err, errs.ErrInvalidSession)

	spec := domain.StreamSpec{Kinds: []domain.TaskKind{domain.TaskSentiment}}
	err = o.StartSession(context.Background(), spec, "s", o.NewQueue())
	assert.ErrorIs(t, err, errs.ErrUnknownTask)
}

func TestStartSession_RefreshRedispatches(t *testing.T) {
	var runs atomic.Int32
	counting := worker.TaskFunc(func(_ context.Context, j domain.Job) (domain.WorkerResult, error) {
		return domain.Success(j, runs.Add(1)), nil
	})
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskWordStats: counting})
	q := o.NewQueue()

	spec := domain.StreamSpec{
		Params:  domain.JobParams{Query: "x"},
		Kinds:   []domain.TaskKind{domain.TaskWordStats},
		Refresh: 20 * time.Millisecond,
	}
	require.NoError(t, o.StartSession(context.Background(), spec, "s-refresh", q))

	for want := uint64(1); want <= 3; want++ {
		assert.Equal(t, want, nextMessage(t, q).Seq)
	}

	q.Close()
	time.Sleep(60 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), settled+1)
}

func TestStartSession_ReuseKeepsHistory(t *testing.T) {
	o := newTestOrchestrator(t, testCfg(), worker.Tasks{domain.TaskWordStats: succeed("x")})
	spec := domain.StreamSpec{Params: domain.JobParams{Query: "x"}, Kinds: []domain.TaskKind{domain.TaskWordStats}}

	first := o.NewQueue()
	require.NoError(t, o.StartSession(context.Background(), spec, "s-reuse", first))
	nextMessage(t, first)

	second := o.NewQueue()
	require.NoError(t, o.StartSession(context.Background(), spec, "s-reuse", second))
	assert.Equal(t, uint64(2), nextMessage(t, second).Seq)

	history, err := o.FetchHistory(context.Background(), "s-reuse")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	select {
	case <-first.Done():
	default:
		t.Fatal("previous queue left open")
	}
}

func TestSweepSessions_ExpiresIdleSessions(t *testing.T) {
	cfg := testCfg()
	cfg.SessionIdleTTL = 10 * time.Millisecond
	o := newTestOrchestrator(t, cfg, worker.Tasks{domain.TaskWordStats: succeed("x")})
	q := o.NewQueue()

	spec := domain.StreamSpec{Params: domain.JobParams{Query: "x"}, Kinds: []domain.TaskKind{domain.TaskWordStats}}
	require.NoError(t, o.StartSession(context.Background(), spec, "s-idle", q))
	nextMessage(t, q)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, o.SweepSessions(context.Background()))

	_, err := o.FetchHistory(context.Background(), "s-idle")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
	select {
	case <-q.Done():
	default:
		t.Fatal("expired session queue left open")
	}
}

func TestListSources(t *testing.T) {
	logger := logging.NewNopLogger()

	ok := NewOrchestrator(testCfg(), worker.Tasks{}, stubCatalog{
		resp: &domain.RawResponse{Status: http.StatusOK, Body: []byte(`{"sources":[]}`)},
	}, logger, nil)
	res := ok.ListSources(context.Background(), domain.SourceFilter{Language: "en"})
	require.True(t, res.OK())
	assert.JSONEq(t, `{"sources":[]}`, string(res.Payload.(json.RawMessage)))

	failing := NewOrchestrator(testCfg(), worker.Tasks{}, stubCatalog{
		resp: &domain.RawResponse{Status: http.StatusTooManyRequests, Body: []byte(`{"code":"rateLimited"}`)},
	}, logger, nil)
	res = failing.ListSources(context.Background(), domain.SourceFilter{})
	assert.Equal(t, http.StatusTooManyRequests, res.Status())

	down := NewOrchestrator(testCfg(), worker.Tasks{}, stubCatalog{err: errors.New("no route to host")}, logger, nil)
	res = down.ListSources(context.Background(), domain.SourceFilter{})
	assert.Equal(t, http.StatusBadGateway, res.Status())
}
