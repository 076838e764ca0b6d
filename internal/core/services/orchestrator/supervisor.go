package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// restartTracker is a sliding-window restart budget per worker identity
type restartTracker struct {
	max     int
	window  time.Duration
	history map[uuid.UUID][]time.Time
}

func newRestartTracker(max int, window time.Duration) *restartTracker {
	return &restartTracker{
		max:     max,
		window:  window,
		history: make(map[uuid.UUID][]time.Time),
	}
}

// allow records a restart of id at now unless max restarts already happened inside the window
func (t *restartTracker) allow(id uuid.UUID, now time.Time) bool {
	cutoff := now.Add(-t.window)
	recent := t.history[id][:0]
	for _, at := range t.history[id] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) >= t.max {
		t.history[id] = recent
		return false
	}
	t.history[id] = append(recent, now)
	return true
}

func (t *restartTracker) forget(id uuid.UUID) {
	delete(t.history, id)
}
