package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/newsinsight.net/internal/static/errs"
)

// StreamSpec describes what a session streams: the search params, the analyses to run for
// them, and an optional refresh interval after which the analyses are dispatched again
type StreamSpec struct {
	Params  JobParams     `json:"params"`
	Kinds   []TaskKind    `json:"kinds"`
	Refresh time.Duration `json:"refresh"`
}

// MinRefresh is the shortest accepted refresh interval
const MinRefresh = 5 * time.Second

// DefaultStreamKinds are streamed when a spec names no kinds
var DefaultStreamKinds = []TaskKind{TaskSentiment, TaskReadability, TaskWordStats}

// ParseStreamSpec builds a spec from job params, a comma list of kinds and a refresh interval
// given as a Go duration or whole seconds. A positive refresh below MinRefresh is raised to it.
func ParseStreamSpec(params JobParams, kinds string, refresh string) (StreamSpec, error) {
	spec := StreamSpec{Params: params}

	for _, raw := range strings.Split(kinds, sourcesSeparator) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		kind, ok := ParseTaskKind(raw)
		if !ok {
			return spec, fmt.Errorf("%w: %q", errs.ErrUnknownTask, raw)
		}
		spec.Kinds = append(spec.Kinds, kind)
	}

	if raw := strings.TrimSpace(refresh); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			sec, convErr := strconv.Atoi(raw)
			if convErr != nil {
				return spec, fmt.Errorf("%w: %q", errs.ErrInvalidRefresh, raw)
			}
			d = time.Duration(sec) * time.Second
		}
		if d > 0 && d < MinRefresh {
			d = MinRefresh
		}
		spec.Refresh = d
	}

	if err := NewJob(TaskPlainSearch, spec.Params).Validate(); err != nil {
		return spec, err
	}
	return spec, nil
}

// StreamMessage is one incremental update pushed to a session
type StreamMessage struct {
	ID        uuid.UUID       `json:"id"`
	Seq       uint64          `json:"seq"`
	SessionID string          `json:"session_id"`
	JobID     uuid.UUID       `json:"job_id"`
	Kind      TaskKind        `json:"kind"`
	Status    int             `json:"status"`
	Code      string          `json:"code,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	At        time.Time       `json:"at"`
}
