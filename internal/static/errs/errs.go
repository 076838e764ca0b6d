package errs

import "errors"

var ErrSessionNotFound = errors.New("session not found")

var (
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
	ErrUnknownTask         = errors.New("unknown task kind")
	ErrQueueClosed         = errors.New("stream queue closed")
	ErrInvalidSession      = errors.New("invalid session id")
	ErrMissingQuery        = errors.New("query is required")
	ErrInvalidRefresh      = errors.New("invalid refresh interval")
)
