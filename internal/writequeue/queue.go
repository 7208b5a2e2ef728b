// Package writequeue provides the bounded FIFO queue decoupling the camera
// capture rate from the remote write rate.
package writequeue

import (
	"context"
	"sync"

	"turnstile/internal/record"
)

// Queue is a bounded in-memory FIFO of attendance records. Enqueue never
// blocks the capture loop: when capacity is exceeded the oldest unsent
// records are dropped and handed back to the caller so the loss can be
// surfaced and spooled.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []record.Record
	capacity int
	closed   bool
	dropped  uint64
}

// New creates a queue with the given capacity (minimum 1).
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a record and returns any records displaced by the
// drop-oldest overflow policy. On a closed queue the record itself is
// returned as displaced.
func (q *Queue) Enqueue(rec record.Record) []record.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return []record.Record{rec}
	}

	q.items = append(q.items, rec)
	var displaced []record.Record
	for len(q.items) > q.capacity {
		displaced = append(displaced, q.items[0])
		q.items = q.items[1:]
		q.dropped++
	}
	q.cond.Signal()
	return displaced
}

// Dequeue blocks until a record is available, the queue is closed and
// empty, or the context is cancelled. The boolean is false when no record
// is returned. A closed queue still yields its remaining records in order.
func (q *Queue) Dequeue(ctx context.Context) (record.Record, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if ctx.Err() != nil || len(q.items) == 0 {
		return record.Record{}, false
	}
	rec := q.items[0]
	q.items = q.items[1:]
	return rec, true
}

// Close marks the queue closed; pending records remain consumable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Drain closes the queue and returns all remaining records in FIFO order.
func (q *Queue) Drain() []record.Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := q.items
	q.items = nil
	q.cond.Broadcast()
	return rest
}

// Len returns the number of pending records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of records lost to the overflow policy.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
