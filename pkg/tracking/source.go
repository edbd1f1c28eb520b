package tracking

import (
	"context"
	"fmt"

	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/tracking/detection"
	"gocv.io/x/gocv"
)

// GrayReader yields grayscale frames. *camera.Capture implements it.
type GrayReader interface {
	ReadGray(dst *gocv.Mat) error
}

// JPEGReader yields encoded frames. *camera.Capture implements it.
type JPEGReader interface {
	ReadJPEG() ([]byte, error)
}

// FlowSource reads frames and tracks them with a FlowTracker. It satisfies
// session.PointSource.
type FlowSource struct {
	reader  GrayReader
	tracker *FlowTracker
	gray    gocv.Mat
}

// NewFlowSource pairs a frame reader with a flow tracker.
func NewFlowSource(reader GrayReader, tracker *FlowTracker) *FlowSource {
	return &FlowSource{
		reader:  reader,
		tracker: tracker,
		gray:    gocv.NewMat(),
	}
}

// NextPoints reads one frame and returns its tracked points.
func (s *FlowSource) NextPoints(ctx context.Context) ([]attention.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.reader.ReadGray(&s.gray); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return s.tracker.Track(s.gray), nil
}

// Reset drops the previous frame so the next exam re-primes the tracker.
func (s *FlowSource) Reset() {
	s.tracker.Reset()
}

// Close releases the frame buffer and the tracker.
func (s *FlowSource) Close() error {
	s.gray.Close()
	return s.tracker.Close()
}

// LandmarkSource uses the eye landmarks of the best detected face as the
// frame's point set.
type LandmarkSource struct {
	reader   JPEGReader
	detector detection.Detector
}

// NewLandmarkSource pairs a frame reader with a face detector.
func NewLandmarkSource(reader JPEGReader, detector detection.Detector) *LandmarkSource {
	return &LandmarkSource{reader: reader, detector: detector}
}

// NextPoints reads one frame and returns the eye landmarks of the best face,
// or an empty set when no face is found.
func (s *LandmarkSource) NextPoints(ctx context.Context) ([]attention.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame, err := s.reader.ReadJPEG()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	dets, err := s.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	best := detection.SelectBest(dets)
	if best == nil {
		return nil, nil
	}
	return best.EyePoints(), nil
}

// Close releases the detector.
func (s *LandmarkSource) Close() error {
	return s.detector.Close()
}
