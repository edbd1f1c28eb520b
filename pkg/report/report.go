// Package report turns a finalized attention snapshot into a verdict and a
// plain-text report file.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/eyeproctor/pkg/attention"
)

// SuspicionThreshold is the non-attention share (percent) above which a
// session is flagged. The comparison is strict.
const SuspicionThreshold = 40.0

// Verdict is the end-of-session suspicion assessment.
type Verdict int

const (
	Normal Verdict = iota
	Suspicious
)

func (v Verdict) String() string {
	if v == Suspicious {
		return "SUSPICIOUS"
	}
	return "NORMAL"
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NORMAL":
		*v = Normal
	case "SUSPICIOUS":
		*v = Suspicious
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// VerdictFor classifies a non-attention percentage.
func VerdictFor(nonAttentionPct float64) Verdict {
	if nonAttentionPct > SuspicionThreshold {
		return Suspicious
	}
	return Normal
}

// Meta carries the report header fields that are not part of the snapshot.
type Meta struct {
	SessionID   string
	GeneratedAt time.Time
}

var labels = [attention.NumCategories]string{
	attention.Attention:    "ATTENTION",
	attention.Left:         "LEFT",
	attention.Right:        "RIGHT",
	attention.Up:           "UP",
	attention.Down:         "DOWN",
	attention.WindowSwitch: "WINDOW_SWITCH",
}

// Label returns the upper-case report label for c.
func Label(c attention.Category) string {
	if !c.Valid() {
		return strings.ToUpper(c.String())
	}
	return labels[c]
}

// Render produces the report text and verdict for a finalized snapshot.
func Render(snap attention.Snapshot, meta Meta) (string, Verdict) {
	pct := snap.NonAttentionPercent()
	verdict := VerdictFor(pct)

	var b strings.Builder
	b.WriteString("ATTENTION REPORT\n")
	b.WriteString("----------------\n")
	if meta.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", meta.SessionID)
	}
	fmt.Fprintf(&b, "Generated: %s\n", meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Total time: %s\n", seconds(snap.Total))
	fmt.Fprintf(&b, "Attention time: %s\n", seconds(snap.Duration(attention.Attention)))
	fmt.Fprintf(&b, "Non-attention time: %s (%.1f%%)\n", seconds(snap.NonAttention()), pct)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Verdict: %s (non-attention %.1f%%, threshold %.1f%%)\n", verdict, pct, SuspicionThreshold)
	b.WriteString("\n")

	b.WriteString("Breakdown:\n")
	for _, c := range attention.Categories {
		line := fmt.Sprintf("%-13s: %s (%.1f%%)", Label(c), seconds(snap.Duration(c)), snap.Percent(c))
		if c == attention.WindowSwitch {
			line += fmt.Sprintf(" [%d %s]", snap.WindowSwitches, plural(snap.WindowSwitches, "switch", "switches"))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String(), verdict
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
