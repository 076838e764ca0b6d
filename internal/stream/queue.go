package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"gitlab.com/newsinsight.net/internal/static/errs"
)

// DefaultCapacity is the capacity of a session queue when none is configured
const DefaultCapacity = 32

// Queue is a bounded FIFO of serialized messages with a drop-oldest overflow policy.
// Push never blocks: on a full queue the oldest unconsumed message is evicted.
type Queue struct {
	mu       sync.Mutex
	items    [][]byte
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	closed   bool

	notify chan struct{}
	done   chan struct{}

	dropped atomic.Uint64
	onDrop  func(msg []byte)
}

// Option configures a Queue
type Option func(*Queue)

// WithDropCallback registers fn to be called, outside the lock, with every evicted message
func WithDropCallback(fn func(msg []byte)) Option {
	return func(q *Queue) {
		q.onDrop = fn
	}
}

// NewQueue creates a queue holding at most capacity messages
func NewQueue(capacity int, opts ...Option) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Queue{
		items:    make([][]byte, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends msg, evicting the oldest message when the queue is full
func (q *Queue) Push(msg []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errs.ErrQueueClosed
	}

	var evicted []byte
	overflow := q.size == q.capacity
	if overflow {
		evicted = q.items[q.tail]
		q.tail = (q.tail + 1) % q.capacity
		q.size--
	}

	q.items[q.head] = msg
	q.head = (q.head + 1) % q.capacity
	q.size++
	q.mu.Unlock()

	if overflow {
		q.dropped.Add(1)
		if q.onDrop != nil {
			q.onDrop(evicted)
		}
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// TryPop removes and returns the oldest message without waiting
func (q *Queue) TryPop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

func (q *Queue) pop() ([]byte, bool) {
	if q.size == 0 {
		return nil, false
	}
	msg := q.items[q.tail]
	q.items[q.tail] = nil
	q.tail = (q.tail + 1) % q.capacity
	q.size--
	return msg, true
}

// Next waits for the oldest message. Messages still queued when the queue is closed
// are handed out first; after that Next returns errs.ErrQueueClosed.
func (q *Queue) Next(ctx context.Context) ([]byte, error) {
	for {
		q.mu.Lock()
		msg, ok := q.pop()
		closed := q.closed
		q.mu.Unlock()

		if ok {
			return msg, nil
		}
		if closed {
			return nil, errs.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		case <-q.done:
		}
	}
}

// Close stops accepting messages and wakes every waiting consumer. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Done is closed once the queue is closed
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Len is the number of queued messages
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap is the fixed capacity of the queue
func (q *Queue) Cap() int {
	return q.capacity
}

// Dropped is the number of messages evicted so far
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
