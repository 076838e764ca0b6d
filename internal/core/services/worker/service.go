package worker

import (
	"context"

	"gitlab.com/newsinsight.net/internal/domain"
)

// Task performs the work of one job kind.
// A business outcome, success or downstream failure, comes back as the WorkerResult;
// a non-nil error means the run crashed and is subject to supervision.
type Task interface {
	Run(ctx context.Context, job domain.Job) (domain.WorkerResult, error)
}

// TaskFunc adapts a function to the Task interface
type TaskFunc func(ctx context.Context, job domain.Job) (domain.WorkerResult, error)

// Run calls f
func (f TaskFunc) Run(ctx context.Context, job domain.Job) (domain.WorkerResult, error) {
	return f(ctx, job)
}

// Tasks resolves the task that handles a job kind
type Tasks map[domain.TaskKind]Task

// For returns the task registered for kind
func (t Tasks) For(kind domain.TaskKind) (Task, bool) {
	task, ok := t[kind]
	return task, ok
}
