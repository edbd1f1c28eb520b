package attention

import (
	"fmt"
	"strings"
)

// LossPolicy selects how time spent with no tracked points is accounted.
//
// While points are missing, the elapsed gap is credited to the open category
// immediately. The policies differ in what happens when that interval later
// closes on a category transition or Finalize.
type LossPolicy int

const (
	// LossCreditOnce credits each loss gap exactly once. Closing an interval
	// only credits the part of its span not already credited during loss, so
	// the total always equals observed wall-clock time.
	LossCreditOnce LossPolicy = iota

	// LossSubsumeOnTransition closes an interval by crediting its entire span
	// since the start, including gaps already credited during loss. Gaps are
	// therefore counted twice. This reproduces the accounting of the first
	// generation of the proctoring tool and exists for report comparability.
	LossSubsumeOnTransition
)

var lossPolicyNames = map[LossPolicy]string{
	LossCreditOnce:          "credit_once",
	LossSubsumeOnTransition: "subsume_on_transition",
}

func (p LossPolicy) String() string {
	if n, ok := lossPolicyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("loss_policy(%d)", int(p))
}

// ParseLossPolicy resolves a policy name as written in configuration files.
func ParseLossPolicy(name string) (LossPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "credit_once":
		return LossCreditOnce, nil
	case "subsume_on_transition", "legacy":
		return LossSubsumeOnTransition, nil
	}
	return LossCreditOnce, fmt.Errorf("%w: unknown loss policy %q", ErrInvalidInput, name)
}

// Config holds the classification and accounting parameters for one session.
type Config struct {
	ThresholdX float64    // Horizontal attention-zone half width (pixels)
	ThresholdY float64    // Vertical attention-zone half height (pixels)
	LossPolicy LossPolicy // Loss-gap accounting
}

// DefaultConfig returns 40/30 pixel thresholds with LossCreditOnce.
func DefaultConfig() Config {
	return Config{
		ThresholdX: DefaultThresholdX,
		ThresholdY: DefaultThresholdY,
		LossPolicy: LossCreditOnce,
	}
}

// Validate checks the thresholds are finite and non-negative.
func (c Config) Validate() error {
	if !isFinite(c.ThresholdX) || c.ThresholdX < 0 {
		return fmt.Errorf("%w: threshold_x %v", ErrInvalidInput, c.ThresholdX)
	}
	if !isFinite(c.ThresholdY) || c.ThresholdY < 0 {
		return fmt.Errorf("%w: threshold_y %v", ErrInvalidInput, c.ThresholdY)
	}
	if _, ok := lossPolicyNames[c.LossPolicy]; !ok {
		return fmt.Errorf("%w: %v", ErrInvalidInput, c.LossPolicy)
	}
	return nil
}
