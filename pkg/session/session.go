// Package session orchestrates one proctored exam: calibration, frame
// observation, distraction events, exactly-once finalization and re-arming.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/eyeproctor/internal/log"
	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/debug"
	"github.com/teslashibe/eyeproctor/pkg/events"
	"github.com/teslashibe/eyeproctor/pkg/report"
)

// Config holds everything a session needs.
type Config struct {
	Attention attention.Config
	Report    report.Config

	// MaxDuration stops Run after this long. Zero means no limit.
	MaxDuration time.Duration

	// UpdateInterval throttles StateUpdater notifications from Observe.
	UpdateInterval time.Duration
}

// DefaultConfig returns default thresholds, reports in the working directory
// and no time limit.
func DefaultConfig() Config {
	return Config{
		Attention:      attention.DefaultConfig(),
		Report:         report.DefaultConfig(),
		UpdateInterval: 250 * time.Millisecond,
	}
}

// StateUpdater receives live session state, e.g. for a dashboard.
type StateUpdater interface {
	UpdateSession(status Status)
}

// Status is the externally visible state of a session.
type Status struct {
	ID        string             `json:"id"`
	StartedAt time.Time          `json:"started_at"`
	Snapshot  attention.Snapshot `json:"snapshot"`
	Result    *report.Result     `json:"result,omitempty"`
}

// Session owns one accumulator and the integrator feeding it distractions.
type Session struct {
	config Config
	acc    *attention.Accumulator
	events *events.Integrator
	clock  func() time.Time
	logger *slog.Logger

	mu         sync.Mutex
	id         string
	startedAt  time.Time
	finalized  bool
	result     report.Result
	resultErr  error
	state      StateUpdater
	lastUpdate time.Time
	source     Resetter
}

// Option customizes a Session.
type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// WithIntegrator shares an existing integrator with the session.
func WithIntegrator(i *events.Integrator) Option {
	return func(s *Session) { s.events = i }
}

// New creates a session ready to observe frames.
func New(config Config, opts ...Option) (*Session, error) {
	acc, err := attention.NewAccumulator(config.Attention)
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	s := &Session{
		config: config,
		acc:    acc,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = events.New(events.DefaultBuffer, events.WithClock(s.clock))
	}
	s.arm()
	return s, nil
}

func (s *Session) arm() {
	s.id = uuid.NewString()
	s.startedAt = s.clock()
	s.finalized = false
	s.result = report.Result{}
	s.resultErr = nil
	s.logger = log.With("component", "session", "session_id", s.id)
	s.logger.Info("session armed",
		"threshold_x", s.config.Attention.ThresholdX,
		"threshold_y", s.config.Attention.ThresholdY,
		"loss_policy", s.config.Attention.LossPolicy.String())
}

// SetStateUpdater sets the live state receiver.
func (s *Session) SetStateUpdater(state StateUpdater) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// ID returns the current session identifier. It changes on Reset.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Events returns the integrator external producers submit distractions to.
func (s *Session) Events() *events.Integrator {
	return s.events
}

// Observe applies queued distractions and then one frame's points.
func (s *Session) Observe(points []attention.Point) (attention.Category, error) {
	if s.acc.Closed() {
		return attention.Attention, attention.ErrSessionClosed
	}
	if _, err := s.events.Drain(s.acc); err != nil {
		s.lg().Warn("distraction not applied", "error", err)
	}

	now := s.clock()
	category, err := s.acc.Observe(points, now)
	if err != nil {
		return category, err
	}

	debug.FrameLog("frame", "session_id", s.ID(), "points", len(points), "category", category.String())
	s.notify(now, false)
	return category, nil
}

// RecordExternalEvent credits a distraction synchronously. It lets a
// Session act as an events.Sink.
func (s *Session) RecordExternalEvent(seconds float64, now time.Time) error {
	if err := s.acc.RecordExternalEvent(seconds, now); err != nil {
		return err
	}
	s.lg().Info("window switch recorded", "duration_s", seconds)
	s.notify(now, true)
	return nil
}

// Distraction records a window switch of length d at the current time.
func (s *Session) Distraction(d time.Duration) error {
	return s.RecordExternalEvent(d.Seconds(), s.clock())
}

// Snapshot returns the live bookkeeping.
func (s *Session) Snapshot() attention.Snapshot {
	return s.acc.Snapshot()
}

// Status returns the live state including any finalized result.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	st := Status{
		ID:        s.id,
		StartedAt: s.startedAt,
		Snapshot:  s.acc.Snapshot(),
	}
	if s.finalized {
		res := s.result
		st.Result = &res
	}
	return st
}

// Finalize closes the session and writes its report. Only the first call
// does any work; later calls return the same result and error until Reset.
// A *report.WriteError leaves the result usable.
func (s *Session) Finalize() (report.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return s.result, s.resultErr
	}

	s.events.Close()
	if _, err := s.events.Drain(s.acc); err != nil {
		s.logger.Warn("distraction not applied", "error", err)
	}

	now := s.clock()
	snap := s.acc.Finalize(now)
	res, err := report.Generate(s.config.Report, snap, report.Meta{
		SessionID:   s.id,
		GeneratedAt: now,
	})

	s.finalized = true
	s.result = res
	s.resultErr = err

	if err != nil {
		s.logger.Error("report not written", "path", res.Path, "error", err)
	} else {
		s.logger.Info("report written", "path", res.Path)
	}
	s.logger.Info("session finalized",
		"verdict", res.Verdict.String(),
		"non_attention_pct", res.NonAttentionPct,
		"total_s", snap.Total.Seconds(),
		"window_switches", snap.WindowSwitches)

	if s.state != nil {
		s.state.UpdateSession(s.statusLocked())
	}
	return res, err
}

// RetryWrite attempts to persist a finalized report whose write failed.
func (s *Session) RetryWrite() (report.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finalized {
		return report.Result{}, fmt.Errorf("retry write: session %s not finalized", s.id)
	}
	if s.result.Written {
		return s.result, nil
	}
	if err := report.Write(s.result.Path, s.result.Text); err != nil {
		s.resultErr = err
		return s.result, err
	}
	s.result.Written = true
	s.resultErr = nil
	s.logger.Info("report written on retry", "path", s.result.Path)
	return s.result, nil
}

// Reset rearms the session for a new exam. Distractions still queued for
// the previous exam are discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.events.Reopen(); n > 0 {
		s.logger.Warn("discarded queued distractions", "count", n)
	}
	s.acc.Reset()
	if s.source != nil {
		s.source.Reset()
	}
	s.arm()

	if s.state != nil {
		s.state.UpdateSession(s.statusLocked())
	}
}

func (s *Session) setSourceResetter(r Resetter) {
	s.mu.Lock()
	s.source = r
	s.mu.Unlock()
}

func (s *Session) lg() *slog.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// Closed reports whether the session has been finalized.
func (s *Session) Closed() bool {
	return s.acc.Closed()
}

func (s *Session) notify(now time.Time, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return
	}
	if !force && now.Sub(s.lastUpdate) < s.config.UpdateInterval {
		return
	}
	s.lastUpdate = now
	s.state.UpdateSession(s.statusLocked())
}
