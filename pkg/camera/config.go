// Package camera captures webcam frames for attention tracking.
// This follows the same pattern as pkg/tracking for tunable parameters.
package camera

// Config holds the capture device parameters.
type Config struct {
	DeviceID  int `json:"device_id" toml:"device_id"` // OpenCV device index
	Width     int `json:"width" toml:"width"`         // Requested frame width in pixels
	Height    int `json:"height" toml:"height"`       // Requested frame height in pixels
	Framerate int `json:"framerate" toml:"framerate"` // Requested FPS, 0 leaves the driver default

	// Mirror flips frames horizontally so left/right match the subject's view.
	Mirror bool `json:"mirror" toml:"mirror"`
}

// Capture limits accepted by Validate.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns device 0 at 640x480.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    640,
		Height:   480,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceID < 0 {
		errors = append(errors, "device_id must be >= 0")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 0 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 0 (driver default) and 120")
	}

	return errors
}
