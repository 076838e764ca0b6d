package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"gitlab.com/newsinsight.net/internal/core/services/worker"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/static/errs"
	"gitlab.com/newsinsight.net/internal/stream"
)

func (o *Orchestrator) loop() {
	defer close(o.done)
	o.logger.Info("Orchestrator started",
		"timeout", o.cfg.RequestTimeout,
		"maxRestarts", o.cfg.MaxRestarts,
		"restartWindow", o.cfg.RestartWindow,
	)

	for {
		select {
		case <-o.ctx.Done():
			o.shutdown()
			return
		case msg := <-o.inbox:
			o.handle(msg)
		}
	}
}

func (o *Orchestrator) handle(msg message) {
	switch m := msg.(type) {
	case requestMsg:
		task, _ := o.tasks.For(m.job.Kind)
		o.track(&pendingJob{job: m.job, task: task, fut: m.fut})
	case replyMsg:
		o.onReply(m.reply)
	case expireMsg:
		if p, ok := o.pending[m.jobID]; ok {
			o.expire(p)
		}
	case startSessionMsg:
		o.onStartSession(m)
	case historyMsg:
		o.onHistory(m)
	case refreshMsg:
		o.onRefresh(m)
	case sweepMsg:
		o.onSweep(m)
	}
}

// track registers the job as pending, arms its deadline and spawns its first worker
func (o *Orchestrator) track(p *pendingJob) {
	id := p.job.ID
	p.startedAt = o.now()
	p.deadline = p.startedAt.Add(o.cfg.RequestTimeout)
	p.timer = time.AfterFunc(o.cfg.RequestTimeout, func() {
		o.post(expireMsg{jobID: id})
	})
	o.pending[id] = p
	o.spawn(p)
}

func (o *Orchestrator) spawn(p *pendingJob) {
	ctx, cancel := context.WithDeadline(o.ctx, p.deadline)
	reply := func(r worker.Reply) {
		cancel()
		o.post(replyMsg{reply: r})
	}
	worker.Spawn(ctx, p.task, p.attempt, reply, o.logger).Tell(p.job)
}

func (o *Orchestrator) onReply(r worker.Reply) {
	p, ok := o.pending[r.JobID]
	if !ok || p.attempt != r.Attempt {
		o.logger.Debug("Discarding late worker reply", "jobId", r.JobID, "attempt", r.Attempt)
		return
	}
	if r.Crashed() {
		o.onCrash(p, r.Err)
		return
	}
	o.finish(p, r.Result)
}

func (o *Orchestrator) onCrash(p *pendingJob, cause error) {
	now := o.now()
	if !now.Before(p.deadline) {
		o.expire(p)
		return
	}
	if !o.restarts.allow(p.job.ID, now) {
		o.logger.Error("Worker restart budget exhausted",
			"jobId", p.job.ID, "kind", p.job.Kind, "restarts", o.cfg.MaxRestarts, "error", cause)
		o.finish(p, domain.Fail(p.job, domain.WorkerUnavailableFailure(o.cfg.MaxRestarts)))
		return
	}

	p.attempt++
	o.logger.Warn("Restarting crashed worker",
		"jobId", p.job.ID, "kind", p.job.Kind, "attempt", p.attempt, "error", cause)
	o.metrics.WorkerRestarted(string(p.job.Kind))
	o.spawn(p)
}

func (o *Orchestrator) expire(p *pendingJob) {
	o.logger.Error("Worker timed out", "jobId", p.job.ID, "kind", p.job.Kind, "timeout", o.cfg.RequestTimeout)
	o.finish(p, domain.Fail(p.job, domain.TimeoutFailure(o.cfg.RequestTimeout)))
}

// finish retires the pending job and routes its one terminal outcome
func (o *Orchestrator) finish(p *pendingJob, r domain.WorkerResult) {
	p.timer.Stop()
	delete(o.pending, p.job.ID)
	o.restarts.forget(p.job.ID)

	code := ""
	if r.Failure != nil {
		code = r.Failure.Code
	}
	o.metrics.ObserveRequest(string(p.job.Kind), code, o.now().Sub(p.startedAt))

	if p.fut != nil {
		p.fut.resolve(r)
		return
	}
	o.deliver(p.sessionID, p.job, r)
}

func (o *Orchestrator) onStartSession(m startSessionMsg) {
	now := o.now()
	sess, reused := o.sessions.Start(m.sessionID, m.spec, m.queue, now)
	if evicted := o.sessions.Expire(now, 0, o.cfg.MaxSessions); len(evicted) > 0 {
		o.logger.Info("Evicted least recently active sessions", "count", len(evicted))
	}
	o.metrics.SessionsActive(o.sessions.Len())
	o.logger.Info("Session started",
		"sessionId", sess.ID, "reused", reused, "kinds", sess.Spec.Kinds, "refresh", sess.Spec.Refresh)

	o.dispatchSession(sess)
	o.scheduleRefresh(sess)
	m.done <- nil
}

// dispatchSession spawns one pending job per kind of the session spec
func (o *Orchestrator) dispatchSession(sess *stream.Session) {
	for _, kind := range sess.Spec.Kinds {
		task, ok := o.tasks.For(kind)
		if !ok {
			continue
		}
		o.track(&pendingJob{
			job:       domain.NewJob(kind, sess.Spec.Params),
			task:      task,
			sessionID: sess.ID,
		})
	}
}

func (o *Orchestrator) scheduleRefresh(sess *stream.Session) {
	if sess.Spec.Refresh <= 0 {
		return
	}
	msg := refreshMsg{sessionID: sess.ID, generation: sess.Generation}
	time.AfterFunc(sess.Spec.Refresh, func() {
		o.post(msg)
	})
}

func (o *Orchestrator) onRefresh(m refreshMsg) {
	sess, ok := o.sessions.Get(m.sessionID)
	if !ok || sess.Generation != m.generation {
		return
	}
	select {
	case <-sess.Queue.Done():
		o.logger.Debug("Stopping refresh of disconnected session", "sessionId", sess.ID)
		return
	default:
	}
	o.dispatchSession(sess)
	o.scheduleRefresh(sess)
}

// deliver pushes a finished session job onto the session history and queue
func (o *Orchestrator) deliver(sessionID string, job domain.Job, r domain.WorkerResult) {
	sess, ok := o.sessions.Get(sessionID)
	if !ok {
		o.logger.Debug("Dropping result of expired session", "sessionId", sessionID, "jobId", job.ID)
		return
	}

	now := o.now()
	msg := domain.StreamMessage{
		ID:        uuid.New(),
		Seq:       sess.NextSeq(),
		SessionID: sessionID,
		JobID:     job.ID,
		Kind:      job.Kind,
		Status:    r.Status(),
		Payload:   encodePayload(r),
		At:        now,
	}
	if r.Failure != nil {
		msg.Code = r.Failure.Code
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		o.logger.Error("Failed to encode stream message", "sessionId", sessionID, "jobId", job.ID, "error", err)
		return
	}
	if err := sess.Deliver(raw, now); err != nil {
		o.logger.Debug("Session queue closed, message kept in history", "sessionId", sessionID, "seq", msg.Seq)
	}
}

func (o *Orchestrator) onHistory(m historyMsg) {
	sess, ok := o.sessions.Get(m.sessionID)
	if !ok {
		m.done <- historyResult{err: errs.ErrSessionNotFound}
		return
	}
	sess.LastActive = o.now()
	m.done <- historyResult{messages: sess.History()}
}

func (o *Orchestrator) onSweep(m sweepMsg) {
	removed := o.sessions.Expire(o.now(), o.cfg.SessionIdleTTL, o.cfg.MaxSessions)
	if len(removed) > 0 {
		o.logger.Info("Expired sessions", "count", len(removed), "remaining", o.sessions.Len())
	}
	o.metrics.SessionsActive(o.sessions.Len())
	close(m.done)
}

// shutdown fails whatever is still pending or queued and releases every session
func (o *Orchestrator) shutdown() {
	stopped := domain.StoppedFailure()
	for id, p := range o.pending {
		p.timer.Stop()
		if p.fut != nil {
			p.fut.resolve(domain.Fail(p.job, stopped))
		}
		delete(o.pending, id)
	}

	for {
		select {
		case msg := <-o.inbox:
			switch m := msg.(type) {
			case requestMsg:
				m.fut.resolve(domain.Fail(m.job, stopped))
			case startSessionMsg:
				m.done <- errs.ErrOrchestratorStopped
			case historyMsg:
				m.done <- historyResult{err: errs.ErrOrchestratorStopped}
			case sweepMsg:
				close(m.done)
			}
		default:
			o.sessions.CloseAll()
			o.metrics.SessionsActive(0)
			o.logger.Info("Orchestrator stopped")
			return
		}
	}
}
