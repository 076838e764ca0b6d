package domain

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Failure codes surfaced to callers
const (
	CodeDownstream          = "downstream_error"
	CodeTimeout             = "timeout"
	CodeWorkerUnavailable   = "worker_unavailable"
	CodeOrchestratorStopped = "orchestrator_stopped"
	CodeBadRequest          = "bad_request"
	CodeCanceled            = "canceled"
)

// Failure describes a terminal, non-successful outcome
type Failure struct {
	Status  int             `json:"status_code"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"-"` // downstream body passed through verbatim
}

// WorkerResult is the tagged outcome of one job: exactly one of Payload or Failure is meaningful
type WorkerResult struct {
	JobID       uuid.UUID
	Kind        TaskKind
	Payload     interface{}
	Failure     *Failure
	CompletedAt time.Time
}

// Success builds a successful result for the job
func Success(job Job, payload interface{}) WorkerResult {
	return WorkerResult{
		JobID:       job.ID,
		Kind:        job.Kind,
		Payload:     payload,
		CompletedAt: time.Now(),
	}
}

// Fail builds a failed result for the job
func Fail(job Job, failure Failure) WorkerResult {
	return WorkerResult{
		JobID:       job.ID,
		Kind:        job.Kind,
		Failure:     &failure,
		CompletedAt: time.Now(),
	}
}

// OK reports whether the result is a success
func (r WorkerResult) OK() bool {
	return r.Failure == nil
}

// Status returns the HTTP-like status code of the outcome
func (r WorkerResult) Status() int {
	if r.Failure != nil {
		return r.Failure.Status
	}
	return http.StatusOK
}

// DownstreamFailure passes the fetch collaborator's status and body through unmodified
func DownstreamFailure(status int, body []byte) Failure {
	return Failure{
		Status:  status,
		Code:    CodeDownstream,
		Message: http.StatusText(status),
		Body:    json.RawMessage(body),
	}
}

// TimeoutFailure is synthesized when no worker reply arrives before the deadline
func TimeoutFailure(timeout time.Duration) Failure {
	return Failure{
		Status:  http.StatusInternalServerError,
		Code:    CodeTimeout,
		Message: "no result within " + timeout.String(),
	}
}

// WorkerUnavailableFailure is synthesized once a worker exhausted its restart budget
func WorkerUnavailableFailure(restarts int) Failure {
	return Failure{
		Status:  http.StatusInternalServerError,
		Code:    CodeWorkerUnavailable,
		Message: "worker stopped after " + strconv.Itoa(restarts) + " restarts",
	}
}

// StoppedFailure is returned when the orchestrator no longer accepts work
func StoppedFailure() Failure {
	return Failure{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeOrchestratorStopped,
		Message: "orchestrator is not running",
	}
}

// UnreachableFailure is returned when a collaborator could not be called at all
func UnreachableFailure(err error) Failure {
	return Failure{
		Status:  http.StatusBadGateway,
		Code:    CodeDownstream,
		Message: err.Error(),
	}
}

// CanceledFailure is returned when the caller gave up before an outcome arrived
func CanceledFailure() Failure {
	return Failure{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeCanceled,
		Message: "request canceled",
	}
}

// BadRequestFailure rejects a job that cannot be dispatched
func BadRequestFailure(message string) Failure {
	return Failure{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRequest,
		Message: message,
	}
}
