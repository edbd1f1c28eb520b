package tracking

import "github.com/teslashibe/eyeproctor/pkg/attention"

// keepTracked pairs flow results with their found-status flags and keeps
// the points OpenCV reports as found. xy holds interleaved x, y values.
func keepTracked(xy []float32, status []uint8) []attention.Point {
	n := len(xy) / 2
	if len(status) < n {
		n = len(status)
	}

	points := make([]attention.Point, 0, n)
	for i := 0; i < n; i++ {
		if status[i] != 1 {
			continue
		}
		p := attention.Point{X: float64(xy[2*i]), Y: float64(xy[2*i+1])}
		if !p.Finite() {
			continue
		}
		points = append(points, p)
	}
	return points
}

// enough applies the MinPoints floor; too few points count as a lost frame.
func enough(points []attention.Point, min int) []attention.Point {
	if len(points) < min {
		return nil
	}
	return points
}
