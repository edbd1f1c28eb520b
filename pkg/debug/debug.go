// Package debug provides global verbose tracing flags
package debug

import "github.com/teslashibe/eyeproctor/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether every observed frame is traced (centroid, category).
// Use --debug-frames to enable these very verbose logs
var Frames bool

// Log emits a debug message only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// FrameLog emits a message only if frame tracing is enabled
func FrameLog(msg string, args ...any) {
	if Frames {
		log.Info(msg, args...)
	}
}
