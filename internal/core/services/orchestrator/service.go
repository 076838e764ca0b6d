package orchestrator

import (
	"context"

	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/stream"
)

// IOrchestrator is the single entry point for inbound work and session streaming
type IOrchestrator interface {
	// HandleRequest dispatches the job to a worker and returns its one terminal outcome
	HandleRequest(ctx context.Context, job domain.Job) domain.WorkerResult

	// StartSession registers or reuses the session, binds queue to it and starts pushing
	// results for spec; it does not wait for any result
	StartSession(ctx context.Context, spec domain.StreamSpec, sessionID string, queue *stream.Queue) error

	// FetchHistory returns every message pushed to the session, in push order
	FetchHistory(ctx context.Context, sessionID string) ([][]byte, error)

	// ListSources queries the source catalog directly
	ListSources(ctx context.Context, filter domain.SourceFilter) domain.WorkerResult

	// NewQueue creates a session queue with the configured capacity
	NewQueue() *stream.Queue

	// SweepSessions asks the orchestrator to expire idle and surplus sessions
	SweepSessions(ctx context.Context) error
}
