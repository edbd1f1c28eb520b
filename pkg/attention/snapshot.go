package attention

import (
	"encoding/json"
	"time"
)

// Snapshot is a copy of an accumulator's bookkeeping at one instant.
// Durations only include closed spans and loss gaps; a still-open interval is
// described by Active and ActiveSince.
type Snapshot struct {
	Durations      [NumCategories]time.Duration
	Total          time.Duration
	WindowSwitches int

	Baseline    *Point
	HasActive   bool
	Active      Category
	ActiveSince time.Time
	Closed      bool
}

// Duration returns the accumulated time for c.
func (s Snapshot) Duration(c Category) time.Duration {
	if !c.Valid() {
		return 0
	}
	return s.Durations[c]
}

// Sum adds up every bucket.
func (s Snapshot) Sum() time.Duration {
	var sum time.Duration
	for _, d := range s.Durations {
		sum += d
	}
	return sum
}

// PercentBase is the denominator for percentages. When nothing was ever
// observed it falls back to the bucket sum and then to one second, which
// keeps ratios defined without touching any bucket.
func (s Snapshot) PercentBase() time.Duration {
	if s.Total != 0 {
		return s.Total
	}
	if sum := s.Sum(); sum != 0 {
		return sum
	}
	return time.Second
}

// Percent returns c's share of the session, 0-100.
func (s Snapshot) Percent(c Category) float64 {
	return s.Duration(c).Seconds() * 100 / s.PercentBase().Seconds()
}

// NonAttention is the time spent in any category other than Attention.
func (s Snapshot) NonAttention() time.Duration {
	return s.Total - s.Durations[Attention]
}

// NonAttentionPercent is NonAttention as a share of the session, 0-100.
func (s Snapshot) NonAttentionPercent() float64 {
	return s.NonAttention().Seconds() * 100 / s.PercentBase().Seconds()
}

type snapshotJSON struct {
	Durations      map[string]float64 `json:"durations"`
	Total          float64            `json:"total_s"`
	NonAttention   float64            `json:"non_attention_pct"`
	WindowSwitches int                `json:"window_switches"`
	Baseline       *Point             `json:"baseline,omitempty"`
	Active         string             `json:"active,omitempty"`
	ActiveSince    *time.Time         `json:"active_since,omitempty"`
	Closed         bool               `json:"closed"`
}

// MarshalJSON renders durations in seconds keyed by category name.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Durations:      make(map[string]float64, NumCategories),
		Total:          s.Total.Seconds(),
		NonAttention:   s.NonAttentionPercent(),
		WindowSwitches: s.WindowSwitches,
		Baseline:       s.Baseline,
		Closed:         s.Closed,
	}
	for _, c := range Categories {
		out.Durations[c.String()] = s.Durations[c].Seconds()
	}
	if s.HasActive {
		out.Active = s.Active.String()
		since := s.ActiveSince
		out.ActiveSince = &since
	}
	return json.Marshal(out)
}
