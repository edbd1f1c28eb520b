package attention

import (
	"errors"
	"math"
	"testing"
)

func TestClassify_Directions(t *testing.T) {
	baseline := &Point{X: 100, Y: 100}

	tests := []struct {
		name     string
		centroid Point
		expected Category
	}{
		{"at baseline", Point{100, 100}, Attention},
		{"inside both thresholds", Point{140, 130}, Attention},
		{"right", Point{145, 100}, Right},
		{"left", Point{55, 100}, Left},
		{"down", Point{100, 135}, Down},
		{"up", Point{100, 60}, Up},
		{"both exceed, horizontal dominant", Point{145, 135}, Right},
		{"both exceed, vertical dominant", Point{145, 150}, Down},
		{"both exceed, vertical dominant upward", Point{55, 40}, Up},
		{"tie resolves horizontal", Point{150, 150}, Right},
		{"tie resolves horizontal left", Point{50, 50}, Left},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.centroid, baseline, DefaultThresholdX, DefaultThresholdY)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestClassify_NoBaselineIsAttention(t *testing.T) {
	for _, p := range []Point{{0, 0}, {1e6, -1e6}, {640, 480}} {
		got, err := Classify(p, nil, DefaultThresholdX, DefaultThresholdY)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != Attention {
			t.Errorf("Expected Classify(%v, nil) = attention, got %v", p, got)
		}
	}
}

func TestClassify_ThresholdIsInclusive(t *testing.T) {
	baseline := &Point{X: 0, Y: 0}

	got, _ := Classify(Point{40, 30}, baseline, 40, 30)
	if got != Attention {
		t.Errorf("Expected attention for deviation equal to thresholds, got %v", got)
	}
}

func TestClassify_RejectsNonFinite(t *testing.T) {
	baseline := &Point{X: 100, Y: 100}
	bad := []Point{
		{math.NaN(), 100},
		{100, math.Inf(1)},
		{math.Inf(-1), math.NaN()},
	}

	for _, p := range bad {
		if _, err := Classify(p, baseline, 40, 30); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Classify(%v): expected ErrInvalidInput, got %v", p, err)
		}
	}

	if _, err := Classify(Point{1, 1}, &Point{math.NaN(), 0}, 40, 30); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("non-finite baseline: expected ErrInvalidInput, got %v", err)
	}
}

func TestClassify_Pure(t *testing.T) {
	baseline := &Point{X: 100, Y: 100}
	first, _ := Classify(Point{145, 135}, baseline, 40, 30)
	for i := 0; i < 10; i++ {
		got, _ := Classify(Point{145, 135}, baseline, 40, 30)
		if got != first {
			t.Fatalf("Expected %v for call %d, got %v", first, i, got)
		}
	}
	if baseline.X != 100 || baseline.Y != 100 {
		t.Errorf("baseline mutated: %v", *baseline)
	}
}

func TestCentroid(t *testing.T) {
	c, err := Centroid([]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.X != 5 || c.Y != 5 {
		t.Errorf("Expected (5, 5), got %v", c)
	}

	if _, err := Centroid(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty set: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Centroid([]Point{{1, 1}, {math.NaN(), 1}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("NaN point: expected ErrInvalidInput, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseCategory("sideways"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
