package orchestrator

import (
	"sync"

	"gitlab.com/newsinsight.net/internal/domain"
)

// future carries exactly one outcome from the orchestrator loop back to a waiting caller
type future struct {
	once sync.Once
	ch   chan domain.WorkerResult
}

func newFuture() *future {
	return &future{ch: make(chan domain.WorkerResult, 1)}
}

// resolve delivers r unless an outcome was already delivered; it never blocks
func (f *future) resolve(r domain.WorkerResult) bool {
	resolved := false
	f.once.Do(func() {
		f.ch <- r
		resolved = true
	})
	return resolved
}
