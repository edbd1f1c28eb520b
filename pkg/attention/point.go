package attention

import (
	"fmt"
	"math"
)

// Point is a 2D position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Centroid returns the arithmetic mean of points.
// An empty set or any non-finite coordinate is rejected.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, fmt.Errorf("%w: empty point set", ErrInvalidInput)
	}

	var sx, sy float64
	for i, p := range points {
		if !p.Finite() {
			return Point{}, fmt.Errorf("%w: point %d is not finite (%v, %v)", ErrInvalidInput, i, p.X, p.Y)
		}
		sx += p.X
		sy += p.Y
	}

	n := float64(len(points))
	c := Point{X: sx / n, Y: sy / n}
	if !c.Finite() {
		return Point{}, fmt.Errorf("%w: centroid overflow", ErrInvalidInput)
	}
	return c, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
