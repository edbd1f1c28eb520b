package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/eyeproctor/pkg/attention"
)

var generatedAt = time.Date(2026, 3, 2, 14, 5, 9, 0, time.UTC)

func snapshot(total time.Duration, buckets map[attention.Category]time.Duration, switches int) attention.Snapshot {
	s := attention.Snapshot{Total: total, WindowSwitches: switches, Closed: true}
	for c, d := range buckets {
		s.Durations[c] = d
	}
	return s
}

func TestVerdictFor_Threshold(t *testing.T) {
	tests := []struct {
		pct  float64
		want Verdict
	}{
		{0, Normal},
		{39.99, Normal},
		{40.0, Normal},
		{40.01, Suspicious},
		{100, Suspicious},
	}
	for _, tt := range tests {
		if got := VerdictFor(tt.pct); got != tt.want {
			t.Errorf("Expected VerdictFor(%v) = %v, got %v", tt.pct, tt.want, got)
		}
	}
}

func TestRender_VerdictAtBoundary(t *testing.T) {
	exact := snapshot(100*time.Second, map[attention.Category]time.Duration{
		attention.Attention: 60 * time.Second,
		attention.Left:      40 * time.Second,
	}, 0)
	if _, v := Render(exact, Meta{GeneratedAt: generatedAt}); v != Normal {
		t.Errorf("Expected NORMAL for 40.0%% non-attention, got %v", v)
	}

	over := snapshot(100*time.Second, map[attention.Category]time.Duration{
		attention.Attention: 59990 * time.Millisecond,
		attention.Left:      40010 * time.Millisecond,
	}, 0)
	if _, v := Render(over, Meta{GeneratedAt: generatedAt}); v != Suspicious {
		t.Errorf("Expected SUSPICIOUS for 40.01%% non-attention, got %v", v)
	}
}

func TestRender_Sections(t *testing.T) {
	snap := snapshot(80*time.Second, map[attention.Category]time.Duration{
		attention.Attention:    40 * time.Second,
		attention.Right:        20 * time.Second,
		attention.Down:         12 * time.Second,
		attention.WindowSwitch: 8 * time.Second,
	}, 2)

	text, verdict := Render(snap, Meta{SessionID: "abc-123", GeneratedAt: generatedAt})
	if verdict != Suspicious {
		t.Errorf("Expected SUSPICIOUS for verdict, got %v", verdict)
	}

	ordered := []string{
		"ATTENTION REPORT",
		"Session: abc-123",
		"Generated: 2026-03-02 14:05:09",
		"Total time: 80.00s",
		"Attention time: 40.00s",
		"Non-attention time: 40.00s (50.0%)",
		"Verdict: SUSPICIOUS (non-attention 50.0%",
		"ATTENTION    : 40.00s (50.0%)",
		"LEFT         : 0.00s (0.0%)",
		"RIGHT        : 20.00s (25.0%)",
		"UP           : 0.00s (0.0%)",
		"DOWN         : 12.00s (15.0%)",
		"WINDOW_SWITCH: 8.00s (10.0%) [2 switches]",
	}

	pos := 0
	for _, want := range ordered {
		i := strings.Index(text[pos:], want)
		if i < 0 {
			t.Fatalf("missing or out of order: %q\n%s", want, text)
		}
		pos += i + len(want)
	}
}

func TestRender_EmptySession(t *testing.T) {
	text, verdict := Render(attention.Snapshot{Closed: true}, Meta{GeneratedAt: generatedAt})
	if verdict != Normal {
		t.Errorf("Expected NORMAL for verdict, got %v", verdict)
	}
	if strings.Contains(text, "NaN") || strings.Contains(text, "Inf") {
		t.Errorf("empty session produced undefined ratios:\n%s", text)
	}
	if !strings.Contains(text, "WINDOW_SWITCH: 0.00s (0.0%) [0 switches]") {
		t.Errorf("window switch row:\n%s", text)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		prefix, ext, want string
	}{
		{"Report", "txt", "Report_03-02-2026-(14-05-09).txt"},
		{"Exam", ".log", "Exam_03-02-2026-(14-05-09).log"},
		{"Exam", "", "Exam_03-02-2026-(14-05-09)"},
	}
	for _, tt := range tests {
		if got := FileName(tt.prefix, generatedAt, tt.ext); got != tt.want {
			t.Errorf("Expected FileName(%q, %q) = %q, got %q", tt.prefix, tt.ext, tt.want, got)
		}
	}
}

func TestGenerate_WritesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Dir: filepath.Join(dir, "reports"), Prefix: "Report", Ext: "txt"}
	snap := snapshot(10*time.Second, map[attention.Category]time.Duration{
		attention.Attention: 10 * time.Second,
	}, 0)

	res, err := Generate(cfg, snap, Meta{GeneratedAt: generatedAt})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := filepath.Join(dir, "reports", "Report_03-02-2026-(14-05-09).txt")
	if res.Path != want {
		t.Errorf("Expected %s for path, got %s", want, res.Path)
	}
	if !res.Written || res.Verdict != Normal {
		t.Errorf("result: %+v", res)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != res.Text {
		t.Errorf("file content does not match rendered text")
	}
}

func TestGenerate_WriteFailureKeepsVerdict(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Dir: blocker, Prefix: "Report", Ext: "txt"}
	snap := snapshot(10*time.Second, map[attention.Category]time.Duration{
		attention.Attention: 2 * time.Second,
		attention.Up:        8 * time.Second,
	}, 0)

	res, err := Generate(cfg, snap, Meta{GeneratedAt: generatedAt})

	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if werr.Path != res.Path {
		t.Errorf("error path %s, result path %s", werr.Path, res.Path)
	}
	if res.Written {
		t.Error("Written should be false")
	}
	if res.Verdict != Suspicious || res.Text == "" {
		t.Errorf("verdict and text must survive a failed write: %+v", res)
	}
}

func TestVerdictText(t *testing.T) {
	for _, v := range []Verdict{Normal, Suspicious} {
		text, err := v.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Verdict
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if got != v {
			t.Errorf("Expected %v, got %v", v, got)
		}
	}

	var v Verdict
	if err := v.UnmarshalText([]byte("maybe")); err == nil {
		t.Error("Expected error for unknown verdict")
	}
}
