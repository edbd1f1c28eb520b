package attention

import (
	"fmt"
	"math"
)

// Default attention-zone tolerances in pixels.
const (
	DefaultThresholdX = 40.0
	DefaultThresholdY = 30.0
)

// Classify maps a centroid to a category relative to baseline.
//
// A nil baseline means the caller is establishing the baseline with this
// centroid, so the result is always Attention. When both axes exceed their
// thresholds the larger deviation wins and a tie goes to the horizontal axis.
func Classify(centroid Point, baseline *Point, thresholdX, thresholdY float64) (Category, error) {
	if !centroid.Finite() {
		return Attention, fmt.Errorf("%w: centroid (%v, %v)", ErrInvalidInput, centroid.X, centroid.Y)
	}
	if baseline == nil {
		return Attention, nil
	}
	if !baseline.Finite() {
		return Attention, fmt.Errorf("%w: baseline (%v, %v)", ErrInvalidInput, baseline.X, baseline.Y)
	}

	dx := centroid.X - baseline.X
	dy := centroid.Y - baseline.Y
	absDX := math.Abs(dx)
	absDY := math.Abs(dy)

	exceedX := absDX > thresholdX
	exceedY := absDY > thresholdY

	switch {
	case !exceedX && !exceedY:
		return Attention, nil
	case exceedX && exceedY:
		if absDX >= absDY {
			return horizontal(dx), nil
		}
		return vertical(dy), nil
	case exceedX:
		return horizontal(dx), nil
	case exceedY:
		return vertical(dy), nil
	}

	return Attention, nil
}

func horizontal(dx float64) Category {
	if dx < 0 {
		return Left
	}
	return Right
}

// Image rows grow downward, so a negative dy is the subject looking up.
func vertical(dy float64) Category {
	if dy < 0 {
		return Up
	}
	return Down
}
