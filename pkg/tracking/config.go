// Package tracking produces the per-frame point sets that drive attention
// classification: corners followed with pyramidal Lucas-Kanade optical flow,
// or eye landmarks from a face detector.
package tracking

import (
	"fmt"
	"image"
)

// Config holds all tunable parameters for point tracking
type Config struct {
	// Shi-Tomasi corner detection
	MaxCorners   int     // Maximum corners detected per frame
	QualityLevel float64 // Minimum accepted corner quality relative to the best corner
	MinDistance  float64 // Minimum pixel distance between corners

	// Lucas-Kanade optical flow
	WinSize       image.Point // Search window at each pyramid level
	MaxLevel      int         // Pyramid levels (0 = no pyramid)
	MaxIterations int         // Termination: iteration count
	Epsilon       float64     // Termination: minimum window movement

	// MinPoints is the fewest tracked points that still count as a frame
	// with tracking. Fewer are reported as an empty set (tracking lost).
	MinPoints int
}

// DefaultConfig returns 20 Shi-Tomasi corners followed with a 15x15, 2-level LK pyramid
func DefaultConfig() Config {
	return Config{
		MaxCorners:   20,
		QualityLevel: 0.3,
		MinDistance:  50,

		WinSize:       image.Pt(15, 15),
		MaxLevel:      2,
		MaxIterations: 10,
		Epsilon:       0.03,

		MinPoints: 1,
	}
}

// DenseConfig tracks more, closer corners. Centroids are steadier but each
// frame costs more.
func DenseConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxCorners = 60
	cfg.QualityLevel = 0.1
	cfg.MinDistance = 20
	cfg.MinPoints = 5
	return cfg
}

// FastConfig trades accuracy for speed on slow machines.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxCorners = 10
	cfg.WinSize = image.Pt(11, 11)
	cfg.MaxLevel = 1
	cfg.MaxIterations = 5
	return cfg
}

// Validate checks the parameters can be handed to OpenCV.
func (c Config) Validate() error {
	switch {
	case c.MaxCorners <= 0:
		return fmt.Errorf("max_corners must be > 0, got %d", c.MaxCorners)
	case c.QualityLevel <= 0 || c.QualityLevel > 1:
		return fmt.Errorf("quality_level must be in (0, 1], got %v", c.QualityLevel)
	case c.MinDistance < 0:
		return fmt.Errorf("min_distance must be >= 0, got %v", c.MinDistance)
	case c.WinSize.X < 3 || c.WinSize.Y < 3:
		return fmt.Errorf("win_size must be at least 3x3, got %v", c.WinSize)
	case c.MaxLevel < 0:
		return fmt.Errorf("max_level must be >= 0, got %d", c.MaxLevel)
	case c.MaxIterations <= 0 && c.Epsilon <= 0:
		return fmt.Errorf("termination needs max_iterations or epsilon")
	case c.MinPoints < 1 || c.MinPoints > c.MaxCorners:
		return fmt.Errorf("min_points must be in [1, max_corners], got %d", c.MinPoints)
	}
	return nil
}
