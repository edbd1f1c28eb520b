package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/eyeproctor/internal/log"
	"gocv.io/x/gocv"
)

// ErrReadFailed is returned when the device yields no frame.
var ErrReadFailed = errors.New("camera read failed")

// Capture reads frames from a local video device.
type Capture struct {
	config Config
	cap    *gocv.VideoCapture
	frame  gocv.Mat
	mu     sync.Mutex
}

// Open opens the configured device and requests its resolution.
func Open(cfg Config) (*Capture, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %v", errs)
	}

	vc, err := gocv.VideoCaptureDevice(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: device not available", cfg.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	log.Info("camera opened",
		"device", cfg.DeviceID,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)))

	return &Capture{
		config: cfg,
		cap:    vc,
		frame:  gocv.NewMat(),
	}, nil
}

// Config returns the configuration the capture was opened with.
func (c *Capture) Config() Config {
	return c.config
}

// ReadGray reads the next frame and writes its grayscale version to dst.
func (c *Capture) ReadGray(dst *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.cap.Read(&c.frame); !ok || c.frame.Empty() {
		return ErrReadFailed
	}
	if c.config.Mirror {
		gocv.Flip(c.frame, &c.frame, 1)
	}
	gocv.CvtColor(c.frame, dst, gocv.ColorBGRToGray)
	return nil
}

// ReadJPEG reads the next frame encoded as JPEG, for detectors and the
// dashboard preview.
func (c *Capture) ReadJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.cap.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, ErrReadFailed
	}
	if c.config.Mirror {
		gocv.Flip(c.frame, &c.frame, 1)
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frame.Close()
	err := c.cap.Close()
	log.Info("camera released", "device", c.config.DeviceID)
	return err
}
