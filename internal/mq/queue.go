package mq

import (
	"context"
	"sync"
)

// Queue is an unbounded multi-producer FIFO.
type Queue[T any] struct {
	name  string
	mu    sync.Mutex
	items []T
	head  int
	ready chan struct{}
}

// New constructs an empty queue. The name only appears in diagnostics.
func New[T any](name string) *Queue[T] {
	return &Queue[T]{
		name:  name,
		ready: make(chan struct{}, 1),
	}
}

// Name reports the queue label.
func (q *Queue[T]) Name() string {
	if q == nil {
		return ""
	}
	return q.name
}

// Send appends item to the tail of the queue. It never blocks.
func (q *Queue[T]) Send(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

// TryReceive pops the head of the queue without blocking. The boolean is
// false when the queue is empty.
func (q *Queue[T]) TryReceive() (T, bool) {
	q.mu.Lock()
	item, ok := q.popLocked()
	more := q.lenLocked() > 0
	q.mu.Unlock()
	if ok && more {
		q.signal()
	}
	return item, ok
}

// Receive blocks until an item is available or ctx ends.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	for {
		if item, ok := q.TryReceive(); ok {
			return item, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if q.lenLocked() == 0 {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 64 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}

// signal wakes one parked receiver. The buffer of one keeps wakeups from
// being lost between a failed TryReceive and the select in Receive.
func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
