package primary

import "time"

// Metrics records orchestration events
type Metrics interface {
	ObserveRequest(kind string, code string, elapsed time.Duration)
	WorkerRestarted(kind string)
	QueueDropped()
	SessionsActive(n int)
}
