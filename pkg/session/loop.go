package session

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/debug"
	"github.com/teslashibe/eyeproctor/pkg/report"
)

// PointSource produces one frame's tracked points per call. An empty slice
// means nothing was tracked in that frame. io.EOF ends the session.
type PointSource interface {
	NextPoints(ctx context.Context) ([]attention.Point, error)
}

// Resetter is implemented by point sources that keep per-exam state, such
// as the previous frame of an optical-flow tracker. Run registers it so that
// Reset starts the next exam from a clean tracker.
type Resetter interface {
	Reset()
}

// PointSourceFunc adapts a function to PointSource.
type PointSourceFunc func(ctx context.Context) ([]attention.Point, error)

// NextPoints calls f.
func (f PointSourceFunc) NextPoints(ctx context.Context) ([]attention.Point, error) {
	return f(ctx)
}

// Run drives the session from src until ctx is cancelled, src returns
// io.EOF, or MaxDuration elapses, then finalizes. Frame errors other than
// io.EOF are treated as tracking loss for that frame.
func (s *Session) Run(ctx context.Context, src PointSource) (report.Result, error) {
	start := s.clock()
	logger := s.lg()

	if r, ok := src.(Resetter); ok {
		s.setSourceResetter(r)
		defer s.setSourceResetter(nil)
	}
	logger.Info("session loop started", "max_duration", s.config.MaxDuration)

	frames := 0
	lost := 0
	dropped := 0

loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info("session loop stopped", "reason", ctx.Err())
			break loop
		default:
		}

		if s.config.MaxDuration > 0 && s.clock().Sub(start) >= s.config.MaxDuration {
			logger.Info("session loop stopped", "reason", "max duration reached")
			break loop
		}

		points, err := src.NextPoints(ctx)
		switch {
		case errors.Is(err, io.EOF):
			logger.Info("session loop stopped", "reason", "source exhausted")
			break loop
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				logger.Info("session loop stopped", "reason", ctx.Err())
				break loop
			}
			points = nil
		case err != nil:
			dropped++
			debug.Log("frame dropped", "error", err)
			points = nil
		}

		if len(points) == 0 {
			lost++
		}
		frames++

		if _, err := s.Observe(points); err != nil {
			if errors.Is(err, attention.ErrSessionClosed) {
				logger.Info("session loop stopped", "reason", "finalized externally")
				break loop
			}
			logger.Warn("frame rejected", "error", err)
		}
	}

	logger.Info("session loop finished",
		"frames", frames,
		"lost_frames", lost,
		"dropped_frames", dropped,
		"elapsed", s.clock().Sub(start).Round(time.Millisecond))

	return s.Finalize()
}
