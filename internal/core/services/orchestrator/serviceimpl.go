package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/ports/secondary"
	"gitlab.com/newsinsight.net/internal/core/services/worker"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/metrics"
	"gitlab.com/newsinsight.net/internal/static/errs"
	"gitlab.com/newsinsight.net/internal/stream"
)

var _ IOrchestrator = &Orchestrator{}

// Orchestrator is an actor: every piece of state below the inbox is owned by the loop
// goroutine and only reached through messages
type Orchestrator struct {
	cfg     *config.OrchestratorCfg
	tasks   worker.Tasks
	catalog secondary.SourceCatalog
	logger  primary.Logger
	metrics primary.Metrics
	now     func() time.Time

	inbox   chan message
	done    chan struct{}
	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	pending  map[uuid.UUID]*pendingJob
	sessions *stream.Registry
	restarts *restartTracker
}

// pendingJob is a dispatched job still waiting for its terminal outcome
type pendingJob struct {
	job       domain.Job
	task      worker.Task
	attempt   int
	startedAt time.Time
	deadline  time.Time
	timer     *time.Timer

	fut       *future // request/response caller
	sessionID string  // session the outcome is pushed to
}

// NewOrchestrator creates an orchestrator; call Start before sending it work
func NewOrchestrator(
	cfg *config.OrchestratorCfg,
	tasks worker.Tasks,
	catalog secondary.SourceCatalog,
	logger primary.Logger,
	recorder primary.Metrics,
) *Orchestrator {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	inboxSize := cfg.InboxSize
	if inboxSize <= 0 {
		inboxSize = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		tasks:    tasks,
		catalog:  catalog,
		logger:   logger,
		metrics:  recorder,
		now:      time.Now,
		inbox:    make(chan message, inboxSize),
		done:     make(chan struct{}),
		pending:  make(map[uuid.UUID]*pendingJob),
		sessions: stream.NewRegistry(),
		restarts: newRestartTracker(cfg.MaxRestarts, cfg.RestartWindow),
	}
}

// Start runs the orchestrator loop until ctx ends or Stop is called
func (o *Orchestrator) Start(ctx context.Context) {
	if !o.started.CompareAndSwap(false, true) {
		return
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	go o.loop()
}

// Stop ends the loop, fails every pending request and closes every session queue
func (o *Orchestrator) Stop() {
	if o.started.CompareAndSwap(false, true) {
		close(o.done)
		return
	}
	if o.cancel != nil {
		o.cancel()
	}
	<-o.done
}

// Done is closed once the orchestrator has stopped
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// NewQueue creates a session queue sized and instrumented for this orchestrator
func (o *Orchestrator) NewQueue() *stream.Queue {
	return stream.NewQueue(o.cfg.QueueCapacity, stream.WithDropCallback(func([]byte) {
		o.metrics.QueueDropped()
	}))
}

func (o *Orchestrator) HandleRequest(ctx context.Context, job domain.Job) domain.WorkerResult {
	if _, ok := o.tasks.For(job.Kind); !ok {
		return domain.Fail(job, domain.BadRequestFailure(fmt.Sprintf("%s: %q", errs.ErrUnknownTask, job.Kind)))
	}

	fut := newFuture()
	if err := o.send(ctx, requestMsg{job: job, fut: fut}); err != nil {
		return domain.Fail(job, o.abandoned(err))
	}

	select {
	case r := <-fut.ch:
		return r
	case <-o.done:
		select {
		case r := <-fut.ch:
			return r
		default:
			return domain.Fail(job, domain.StoppedFailure())
		}
	case <-ctx.Done():
		return domain.Fail(job, o.abandoned(ctx.Err()))
	}
}

func (o *Orchestrator) StartSession(ctx context.Context, spec domain.StreamSpec, sessionID string, queue *stream.Queue) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errs.ErrInvalidSession
	}
	if queue == nil {
		return fmt.Errorf("failed to start session %s: nil queue", sessionID)
	}
	if len(spec.Kinds) == 0 {
		spec.Kinds = domain.DefaultStreamKinds
	}
	for _, kind := range spec.Kinds {
		if _, ok := o.tasks.For(kind); !ok {
			return fmt.Errorf("failed to start session %s: %w: %q", sessionID, errs.ErrUnknownTask, kind)
		}
	}

	done := make(chan error, 1)
	msg := startSessionMsg{sessionID: sessionID, spec: spec, queue: queue, done: done}
	if err := o.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to start session %s: %w", sessionID, err)
	}
	return o.await(ctx, done)
}

func (o *Orchestrator) FetchHistory(ctx context.Context, sessionID string) ([][]byte, error) {
	done := make(chan historyResult, 1)
	if err := o.send(ctx, historyMsg{sessionID: sessionID, done: done}); err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		return r.messages, r.err
	case <-o.done:
		return nil, errs.ErrOrchestratorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) ListSources(ctx context.Context, filter domain.SourceFilter) domain.WorkerResult {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	started := o.now()
	result := domain.WorkerResult{CompletedAt: started}
	resp, err := o.catalog.ListSources(ctx, filter)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		o.logger.Error("Source catalog timed out", "timeout", o.cfg.RequestTimeout)
		f := domain.TimeoutFailure(o.cfg.RequestTimeout)
		result.Failure = &f
	case err != nil:
		o.logger.Error("Failed to list sources", "error", err)
		f := domain.UnreachableFailure(err)
		result.Failure = &f
	case resp.Failed():
		f := domain.DownstreamFailure(resp.Status, resp.Body)
		result.Failure = &f
	default:
		result.Payload = rawJSON(resp.Body)
	}
	result.CompletedAt = o.now()
	return result
}

func (o *Orchestrator) SweepSessions(ctx context.Context) error {
	done := make(chan struct{})
	if err := o.send(ctx, sweepMsg{done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-o.done:
		return errs.ErrOrchestratorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) send(ctx context.Context, msg message) error {
	select {
	case <-o.done:
		return errs.ErrOrchestratorStopped
	default:
	}
	select {
	case o.inbox <- msg:
		return nil
	case <-o.done:
		return errs.ErrOrchestratorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is send for messages raised by timers and workers, which have no caller context
func (o *Orchestrator) post(msg message) {
	select {
	case o.inbox <- msg:
	case <-o.done:
	}
}

func (o *Orchestrator) await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-o.done:
		return errs.ErrOrchestratorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) abandoned(err error) domain.Failure {
	switch {
	case errors.Is(err, errs.ErrOrchestratorStopped):
		return domain.StoppedFailure()
	case errors.Is(err, context.DeadlineExceeded):
		return domain.TimeoutFailure(o.cfg.RequestTimeout)
	default:
		return domain.CanceledFailure()
	}
}
