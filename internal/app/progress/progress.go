// Package progress delivers run progress messages without blocking the run.
package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultBuffer is the number of messages a Dispatcher holds before dropping.
	DefaultBuffer = 64
	// DefaultGrace bounds how long Close waits for queued messages.
	DefaultGrace = 2 * time.Second
)

// Sink receives human-readable progress messages.
type Sink func(msg string)

// Dispatcher forwards messages to a Sink from its own goroutine. Send never
// blocks: when the buffer is full the message is dropped and counted.
type Dispatcher struct {
	ch      chan string
	sink    Sink
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64

	// abandoned is set once Close gives up; undelivered messages are dropped.
	abandoned atomic.Bool
}

// NewDispatcher starts a dispatcher over sink. A nil sink discards everything.
func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	d := &Dispatcher{
		ch:   make(chan string, buffer),
		sink: sink,
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for msg := range d.ch {
		if d.abandoned.Load() {
			d.dropped.Add(1)
			continue
		}
		if d.sink != nil {
			d.sink(msg)
		}
	}
}

// Send queues msg, or drops it when the buffer is full or the dispatcher is closed.
func (d *Dispatcher) Send(msg string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}
	select {
	case d.ch <- msg:
	default:
		d.dropped.Add(1)
	}
}

// Close stops accepting messages and waits at most grace for queued ones to
// be delivered. It reports whether everything queued was delivered. After a
// timeout the remaining messages are counted as dropped and a sink still
// running is left to finish on its own.
func (d *Dispatcher) Close(grace time.Duration) bool {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.ch)
		d.mu.Unlock()
	})

	timer := time.NewTimer(max(grace, 0))
	defer timer.Stop()
	select {
	case <-d.done:
		return true
	case <-timer.C:
	}

	d.abandoned.Store(true)
	for {
		select {
		case _, ok := <-d.ch:
			if !ok {
				return false
			}
			d.dropped.Add(1)
		default:
			return false
		}
	}
}

// Dropped is the number of messages discarded so far.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Tee returns a sink calling every non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	return func(msg string) {
		for _, s := range sinks {
			if s != nil {
				s(msg)
			}
		}
	}
}
