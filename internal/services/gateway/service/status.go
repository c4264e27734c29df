package service

import (
	"context"
	"sync"
	"time"

	"github.com/smallnest/chanx"
)

// Status is one observed state transition.
type Status struct {
	State State
	// Address is the bound URI prefix, empty when nothing is bound.
	Address string
	// Err is set on transitions into StateError.
	Err error
	At  time.Time
}

// statusQueue delivers transitions to the sink in order without ever
// blocking the publisher.
type statusQueue struct {
	mu     sync.Mutex
	closed bool
	ch     *chanx.UnboundedChan[Status]
	done   chan struct{}
}

func newStatusQueue(sink func(Status)) *statusQueue {
	q := &statusQueue{
		ch:   chanx.NewUnboundedChan[Status](context.Background(), 8),
		done: make(chan struct{}),
	}
	go func() {
		defer close(q.done)
		for status := range q.ch.Out {
			if sink != nil {
				sink(status)
			}
		}
	}()
	return q
}

func (q *statusQueue) publish(status Status) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.ch.In <- status
}

// close stops accepting transitions and waits until queued ones are delivered.
func (q *statusQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch.In)
	}
	q.mu.Unlock()
	<-q.done
}
