// Package events delivers distractions reported outside the frame loop,
// such as a window losing focus, to a session's accumulator.
//
// Producers never touch the accumulator directly. They submit a Distraction
// to an Integrator, whose queue is drained by the goroutine that owns the
// session, so event application is serialized with frame observations.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/eyeproctor/internal/log"
	"github.com/teslashibe/eyeproctor/pkg/attention"
)

// ErrQueueFull is returned when the owner has fallen behind.
var ErrQueueFull = errors.New("distraction queue full")

// DefaultBuffer is the queue depth used by New when buffer <= 0.
const DefaultBuffer = 64

// Distraction is a fixed-length break in attention. It is always accounted
// as a window switch.
type Distraction struct {
	Seconds float64   `json:"duration_s"`
	Source  string    `json:"source,omitempty"`
	At      time.Time `json:"at,omitempty"`
}

// Sink receives distractions. *attention.Accumulator and *session.Session
// both satisfy it.
type Sink interface {
	RecordExternalEvent(seconds float64, now time.Time) error
}

// Integrator queues distractions from any goroutine for a single consumer.
type Integrator struct {
	queue   chan Distraction
	clock   func() time.Time
	dropped atomic.Int64
	applied atomic.Int64

	// mu orders Submit against Close so nothing is queued once the owner
	// has taken its final drain.
	mu     sync.Mutex
	closed bool
}

// Option customizes an Integrator.
type Option func(*Integrator)

// WithClock replaces time.Now for stamping submissions.
func WithClock(clock func() time.Time) Option {
	return func(i *Integrator) { i.clock = clock }
}

// New creates an integrator with the given queue depth.
func New(buffer int, opts ...Option) *Integrator {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	i := &Integrator{
		queue: make(chan Distraction, buffer),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Submit validates and enqueues d without blocking. A zero At is stamped
// with the current time.
func (i *Integrator) Submit(d Distraction) error {
	if _, err := attention.DurationFromSeconds(d.Seconds); err != nil {
		return err
	}
	if d.At.IsZero() {
		d.At = i.clock()
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return attention.ErrSessionClosed
	}

	select {
	case i.queue <- d:
		return nil
	default:
		i.dropped.Add(1)
		log.Warn("distraction dropped", "source", d.Source, "duration_s", d.Seconds)
		return ErrQueueFull
	}
}

// Distract is shorthand for submitting a distraction of the given length.
func (i *Integrator) Distract(source string, d time.Duration) error {
	return i.Submit(Distraction{Seconds: d.Seconds(), Source: source})
}

// Drain applies every queued distraction to sink without blocking and
// returns how many were applied. Errors from the sink are joined; a
// rejected distraction is not retried.
func (i *Integrator) Drain(sink Sink) (int, error) {
	var (
		n    int
		errs []error
	)
	for {
		select {
		case d := <-i.queue:
			if err := i.apply(sink, d); err != nil {
				errs = append(errs, err)
				continue
			}
			n++
		default:
			return n, errors.Join(errs...)
		}
	}
}

// Run applies distractions as they arrive until ctx is done. Use it when
// the sink is safe for concurrent use and no frame loop drains the queue.
func (i *Integrator) Run(ctx context.Context, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-i.queue:
			if err := i.apply(sink, d); err != nil {
				log.Warn("distraction rejected", "source", d.Source, "error", err)
			}
		}
	}
}

// Discard empties the queue without applying anything and returns how
// many distractions were thrown away.
func (i *Integrator) Discard() int {
	n := 0
	for {
		select {
		case <-i.queue:
			n++
		default:
			return n
		}
	}
}

// Close refuses further submissions with attention.ErrSessionClosed.
// Distractions already queued stay queued for a final Drain.
func (i *Integrator) Close() {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()
}

// Reopen empties the queue and accepts submissions again. It returns how
// many stale distractions were thrown away.
func (i *Integrator) Reopen() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := i.Discard()
	i.closed = false
	return n
}

// Closed reports whether submissions are refused.
func (i *Integrator) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// Pending returns the number of queued distractions.
func (i *Integrator) Pending() int {
	return len(i.queue)
}

// Dropped returns how many submissions were refused because the queue was full.
func (i *Integrator) Dropped() int64 {
	return i.dropped.Load()
}

// Applied returns how many distractions reached a sink successfully.
func (i *Integrator) Applied() int64 {
	return i.applied.Load()
}

func (i *Integrator) apply(sink Sink, d Distraction) error {
	if err := sink.RecordExternalEvent(d.Seconds, d.At); err != nil {
		return fmt.Errorf("apply distraction from %q: %w", d.Source, err)
	}
	i.applied.Add(1)
	log.Debug("distraction applied", "source", d.Source, "duration_s", d.Seconds)
	return nil
}
