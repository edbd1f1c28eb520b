package tracking

import (
	"fmt"
	"sync"

	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/debug"
	"gocv.io/x/gocv"
)

// FlowTracker finds corners in the previous frame and follows them into the
// current one with pyramidal Lucas-Kanade optical flow. The points that were
// followed successfully form the frame's point set.
type FlowTracker struct {
	config Config

	mu       sync.Mutex
	prev     gocv.Mat
	hasPrev  bool
	criteria gocv.TermCriteria
}

// NewFlowTracker creates a tracker with no previous frame.
func NewFlowTracker(config Config) (*FlowTracker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("tracking config: %w", err)
	}
	return &FlowTracker{
		config:   config,
		prev:     gocv.NewMat(),
		criteria: gocv.NewTermCriteria(gocv.Count|gocv.EPS, config.MaxIterations, config.Epsilon),
	}, nil
}

// Track consumes a grayscale frame and returns the tracked points. The first
// frame only primes the tracker and yields no points.
func (t *FlowTracker) Track(gray gocv.Mat) []attention.Point {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gray.Empty() {
		return nil
	}
	defer gray.CopyTo(&t.prev)

	if !t.hasPrev {
		t.hasPrev = true
		return nil
	}

	corners := gocv.NewMat()
	defer corners.Close()
	// gocv does not expose blockSize, so OpenCV's default of 3 applies.
	gocv.GoodFeaturesToTrack(t.prev, &corners, t.config.MaxCorners, t.config.QualityLevel, t.config.MinDistance)
	if corners.Empty() || corners.Rows() == 0 {
		debug.FrameLog("no corners found")
		return nil
	}

	next := gocv.NewMat()
	defer next.Close()
	status := gocv.NewMat()
	defer status.Close()
	flowErr := gocv.NewMat()
	defer flowErr.Close()

	gocv.CalcOpticalFlowPyrLKWithParams(t.prev, gray, corners, next, &status, &flowErr,
		t.config.WinSize, t.config.MaxLevel, t.criteria, 0, 1e-4)
	if next.Empty() || status.Empty() {
		return nil
	}

	rows := next.Rows()
	xy := make([]float32, 0, rows*2)
	flags := make([]uint8, 0, rows)
	for i := 0; i < rows; i++ {
		v := next.GetVecfAt(i, 0)
		if len(v) < 2 {
			continue
		}
		xy = append(xy, v[0], v[1])
		flags = append(flags, status.GetUCharAt(i, 0))
	}

	points := enough(keepTracked(xy, flags), t.config.MinPoints)
	debug.FrameLog("flow", "corners", rows, "tracked", len(points))
	return points
}

// Reset forgets the previous frame, e.g. when a new session starts.
func (t *FlowTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasPrev = false
}

// Close releases the stored frame.
func (t *FlowTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prev.Close()
}
