package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/domain"
)

// Reply is the single message a unit sends back before it stops
type Reply struct {
	JobID   uuid.UUID
	Attempt int
	Result  domain.WorkerResult
	Err     error // set when the run crashed
}

// Crashed reports whether the run failed unexpectedly
func (r Reply) Crashed() bool {
	return r.Err != nil
}

// ReplyFunc delivers a unit's reply to its supervisor
type ReplyFunc func(Reply)

// Unit is a one-shot worker: it accepts exactly one job, runs its task, replies once and stops
type Unit struct {
	ID      string
	Attempt int

	task     Task
	inbox    chan domain.Job
	accepted atomic.Bool
	reply    ReplyFunc
	logger   primary.Logger
}

// Spawn starts a unit that will run task for the first job it is told
func Spawn(ctx context.Context, task Task, attempt int, reply ReplyFunc, logger primary.Logger) *Unit {
	u := &Unit{
		ID:      uuid.NewString(),
		Attempt: attempt,
		task:    task,
		inbox:   make(chan domain.Job, 1),
		reply:   reply,
		logger:  logger,
	}
	go u.run(ctx)
	return u
}

// Tell hands the job to the unit. Only the first call is accepted.
func (u *Unit) Tell(job domain.Job) bool {
	if !u.accepted.CompareAndSwap(false, true) {
		return false
	}
	u.inbox <- job
	return true
}

func (u *Unit) run(ctx context.Context) {
	var job domain.Job
	select {
	case <-ctx.Done():
		return
	case job = <-u.inbox:
	}

	u.logger.Debug("Worker started", "unitId", u.ID, "jobId", job.ID, "kind", job.Kind, "attempt", u.Attempt)
	result, err := u.execute(ctx, job)
	u.reply(Reply{
		JobID:   job.ID,
		Attempt: u.Attempt,
		Result:  result,
		Err:     err,
	})
}

// execute runs the task, turning a panic into a crash error
func (u *Unit) execute(ctx context.Context, job domain.Job) (result domain.WorkerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("Worker panicked", "unitId", u.ID, "jobId", job.ID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return u.task.Run(ctx, job)
}
