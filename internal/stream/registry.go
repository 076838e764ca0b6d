package stream

import (
	"sort"
	"time"

	"gitlab.com/newsinsight.net/internal/domain"
)

// Session is the streaming context of one client token: its bound queue and the
// append-only history of every message pushed to it
type Session struct {
	ID         string
	Spec       domain.StreamSpec
	Queue      *Queue
	Generation uint64 // bumped every time the session is (re)started
	CreatedAt  time.Time
	LastActive time.Time

	history [][]byte
	seq     uint64
}

// NextSeq returns the sequence number for the next message of the session
func (s *Session) NextSeq() uint64 {
	s.seq++
	return s.seq
}

// Deliver appends msg to the history and enqueues it on the bound queue
func (s *Session) Deliver(msg []byte, now time.Time) error {
	s.history = append(s.history, msg)
	s.LastActive = now
	if s.Queue == nil {
		return nil
	}
	return s.Queue.Push(msg)
}

// History returns a copy of every message delivered so far, in delivery order
func (s *Session) History() [][]byte {
	out := make([][]byte, len(s.history))
	copy(out, s.history)
	return out
}

// Registry maps session tokens to sessions.
// It holds no lock: exactly one goroutine may own and mutate it.
type Registry struct {
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Start registers the session or reuses an existing one. A reused session keeps its
// history, gets the new spec and queue, and the queue it was bound to before is closed.
func (r *Registry) Start(id string, spec domain.StreamSpec, q *Queue, now time.Time) (sess *Session, reused bool) {
	if s, ok := r.sessions[id]; ok {
		if s.Queue != nil && s.Queue != q {
			s.Queue.Close()
		}
		s.Spec = spec
		s.Queue = q
		s.Generation++
		s.LastActive = now
		return s, true
	}

	s := &Session{
		ID:         id,
		Spec:       spec,
		Queue:      q,
		Generation: 1,
		CreatedAt:  now,
		LastActive: now,
	}
	r.sessions[id] = s
	return s, false
}

// Get looks up a session
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops the session and closes its queue
func (r *Registry) Remove(id string) bool {
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if s.Queue != nil {
		s.Queue.Close()
	}
	delete(r.sessions, id)
	return true
}

// Len is the number of registered sessions
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Expire removes sessions idle for longer than idleTTL, then the least recently active
// ones until at most maxSessions remain. A zero idleTTL or maxSessions disables that rule.
// It returns the removed session ids.
func (r *Registry) Expire(now time.Time, idleTTL time.Duration, maxSessions int) []string {
	var removed []string

	if idleTTL > 0 {
		for id, s := range r.sessions {
			if now.Sub(s.LastActive) > idleTTL {
				r.Remove(id)
				removed = append(removed, id)
			}
		}
	}

	if maxSessions > 0 && len(r.sessions) > maxSessions {
		byActivity := make([]*Session, 0, len(r.sessions))
		for _, s := range r.sessions {
			byActivity = append(byActivity, s)
		}
		sort.Slice(byActivity, func(i, j int) bool {
			return byActivity[i].LastActive.Before(byActivity[j].LastActive)
		})
		for _, s := range byActivity[:len(byActivity)-maxSessions] {
			r.Remove(s.ID)
			removed = append(removed, s.ID)
		}
	}

	return removed
}

// CloseAll closes every session queue and empties the registry
func (r *Registry) CloseAll() {
	for id := range r.sessions {
		r.Remove(id)
	}
}
