package conference

import (
	"sync"

	"github.com/gammazero/workerpool"
)

// Conference state is only ever mutated from event handlers, so handlers for
// one conference must run one at a time in publish order. A single-worker
// pool is that queue: publish order is execution order, and every handler
// runs to completion before the next starts.

type event interface{}

type sessionStartedEvent struct {
	session MediaSession
}

type participantJoinedEvent struct {
	participantID string
}

type participantLeftEvent struct {
	participantID string
}

type visitorCodecsChangedEvent struct {
	codecs []Codec
}

type encodeStatsEvent struct {
	session MediaSession
	batch   []EncodeSample
}

type eventBus struct {
	mu     sync.Mutex
	wp     *workerpool.WorkerPool
	closed bool
}

func newEventBus() *eventBus {
	return &eventBus{wp: workerpool.New(1)}
}

func (b *eventBus) publish(handle func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.wp.Submit(handle)
	return nil
}

// sync blocks until every previously published event has been handled.
func (b *eventBus) sync() {
	done := make(chan struct{})
	if b.publish(func() { close(done) }) != nil {
		return
	}
	<-done
}

// close drains the queue and tears the bus down. Publishing afterwards
// returns ErrClosed.
func (b *eventBus) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.wp.StopWait()
}
