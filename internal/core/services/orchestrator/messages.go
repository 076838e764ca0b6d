package orchestrator

import (
	"github.com/google/uuid"

	"gitlab.com/newsinsight.net/internal/core/services/worker"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/stream"
)

// message is anything the orchestrator loop accepts on its inbox
type message interface {
	isMessage()
}

type requestMsg struct {
	job domain.Job
	fut *future
}

type replyMsg struct {
	reply worker.Reply
}

type expireMsg struct {
	jobID uuid.UUID
}

type startSessionMsg struct {
	sessionID string
	spec      domain.StreamSpec
	queue     *stream.Queue
	done      chan error
}

type historyMsg struct {
	sessionID string
	done      chan historyResult
}

type historyResult struct {
	messages [][]byte
	err      error
}

type refreshMsg struct {
	sessionID  string
	generation uint64
}

type sweepMsg struct {
	done chan struct{}
}

func (requestMsg) isMessage() {}
func (replyMsg) isMessage() {}
func (expireMsg) isMessage() {}
func (startSessionMsg) isMessage() {}
func (historyMsg) isMessage() {}
func (refreshMsg) isMessage() {}
func (sweepMsg) isMessage() {}
