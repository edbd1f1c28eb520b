package attention

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// interval is a span of time attributed to one category that has been
// opened by an observation and not yet closed.
type interval struct {
	category Category
	start    time.Time

	// lossCredited is the part of the span already credited while tracking
	// was lost. Only consulted under LossCreditOnce.
	lossCredited time.Duration
}

// Accumulator is the per-session duration engine. It is driven by a frame
// loop calling Observe once per captured frame and by exogenous distraction
// events. All methods are safe for concurrent use; every mutation runs under
// one lock so a focus monitor on another goroutine cannot interleave with a
// half-applied frame.
type Accumulator struct {
	config Config

	mu        sync.Mutex
	baseline  *Point
	active    *interval
	durations [NumCategories]time.Duration
	total     time.Duration
	switches  int
	last      time.Time
	closed    bool
}

// NewAccumulator creates an uncalibrated accumulator with every bucket at zero.
func NewAccumulator(config Config) (*Accumulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Accumulator{config: config}, nil
}

// Config returns the accumulator's parameters.
func (a *Accumulator) Config() Config {
	return a.config
}

// Observe feeds one frame's tracked points captured at now and returns the
// category that is active afterwards.
//
// An empty point set means tracking was lost: the time since the previous
// call is credited to the open category while the open interval keeps its
// category and start. The first non-empty set establishes the baseline.
func (a *Accumulator) Observe(points []Point, now time.Time) (Category, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Attention, ErrSessionClosed
	}

	if len(points) == 0 {
		if a.active == nil {
			a.last = now
			return Attention, nil
		}
		gap := elapsed(a.last, now)
		a.credit(a.active.category, gap)
		a.active.lossCredited += gap
		a.last = now
		return a.active.category, nil
	}

	centroid, err := Centroid(points)
	if err != nil {
		return Attention, err
	}
	category, err := Classify(centroid, a.baseline, a.config.ThresholdX, a.config.ThresholdY)
	if err != nil {
		return Attention, err
	}
	if a.baseline == nil {
		b := centroid
		a.baseline = &b
	}

	switch {
	case a.active == nil:
		a.active = &interval{category: category, start: now}
	case a.active.category != category:
		a.closeActive(now)
		a.active = &interval{category: category, start: now}
	}

	a.last = now
	return category, nil
}

// RecordExternalEvent credits a distraction of the given length in seconds
// to WindowSwitch and counts one occurrence. The open interval and the
// baseline are left alone, and a stale now never rewinds the clock.
func (a *Accumulator) RecordExternalEvent(seconds float64, now time.Time) error {
	d, err := DurationFromSeconds(seconds)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrSessionClosed
	}

	a.credit(WindowSwitch, d)
	a.switches++
	// Events can be stamped earlier than the last frame (queued, or read
	// back from a spool). Moving last backwards would make the next lost
	// frame credit time that was never observed.
	if now.After(a.last) {
		a.last = now
	}
	return nil
}

// Finalize closes the open interval at now and marks the session closed.
// A second call changes nothing and returns the same figures.
func (a *Accumulator) Finalize(now time.Time) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		a.closeActive(now)
		a.active = nil
	}
	a.closed = true
	return a.snapshotLocked()
}

// Reset clears all state so the accumulator can serve a new session.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.baseline = nil
	a.active = nil
	a.durations = [NumCategories]time.Duration{}
	a.total = 0
	a.switches = 0
	a.last = time.Time{}
	a.closed = false
}

// Snapshot returns a copy of the current bookkeeping.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Closed reports whether Finalize has run since the last Reset.
func (a *Accumulator) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Accumulator) snapshotLocked() Snapshot {
	s := Snapshot{
		Durations:      a.durations,
		Total:          a.total,
		WindowSwitches: a.switches,
		Closed:         a.closed,
	}
	if a.baseline != nil {
		b := *a.baseline
		s.Baseline = &b
	}
	if a.active != nil {
		s.HasActive = true
		s.Active = a.active.category
		s.ActiveSince = a.active.start
	}
	return s
}

func (a *Accumulator) closeActive(now time.Time) {
	span := elapsed(a.active.start, now)
	if a.config.LossPolicy == LossCreditOnce {
		span -= a.active.lossCredited
		if span < 0 {
			span = 0
		}
	}
	a.credit(a.active.category, span)
}

func (a *Accumulator) credit(c Category, d time.Duration) {
	a.durations[c] += d
	a.total += d
}

// elapsed never goes negative, so a clock stepping backwards cannot
// shrink a bucket.
func elapsed(from, to time.Time) time.Duration {
	if from.IsZero() {
		return 0
	}
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d
}

// DurationFromSeconds converts a finite, non-negative number of seconds.
func DurationFromSeconds(seconds float64) (time.Duration, error) {
	if !isFinite(seconds) || seconds < 0 {
		return 0, fmt.Errorf("%w: duration %v", ErrInvalidInput, seconds)
	}
	ns := seconds * float64(time.Second)
	if ns >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: duration %v overflows", ErrInvalidInput, seconds)
	}
	return time.Duration(math.Round(ns)), nil
}
