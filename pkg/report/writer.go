package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslashibe/eyeproctor/pkg/attention"
)

// FileTimeLayout is the timestamp portion of report file names. Names are
// only unique to the second.
const FileTimeLayout = "01-02-2006-(15-04-05)"

// Config controls where reports are written.
type Config struct {
	Dir    string // Output directory
	Prefix string // File name prefix
	Ext    string // Extension without the dot
}

// DefaultConfig writes Report_<timestamp>.txt into the working directory.
func DefaultConfig() Config {
	return Config{
		Dir:    ".",
		Prefix: "Report",
		Ext:    "txt",
	}
}

// FileName builds {prefix}_{MM-DD-YYYY-(HH-MM-SS)}.{ext}.
func FileName(prefix string, t time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("%s_%s", prefix, t.Format(FileTimeLayout))
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// Path joins the configured directory with the file name for t.
func (c Config) Path(t time.Time) string {
	return filepath.Join(c.Dir, FileName(c.Prefix, t, c.Ext))
}

// WriteError reports a failed report write. The verdict and text returned
// alongside it are still valid.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Result is a rendered report and where it was written.
type Result struct {
	Path    string  `json:"path"`
	Text    string  `json:"-"`
	Verdict Verdict `json:"verdict"`

	NonAttentionPct float64 `json:"non_attention_pct"`
	Written         bool    `json:"written"`
}

// Generate renders snap and writes it under cfg.Dir. A write failure is
// returned as *WriteError together with a fully populated Result so the
// caller can retry or surface it.
func Generate(cfg Config, snap attention.Snapshot, meta Meta) (Result, error) {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}

	text, verdict := Render(snap, meta)
	res := Result{
		Path:            cfg.Path(meta.GeneratedAt),
		Text:            text,
		Verdict:         verdict,
		NonAttentionPct: snap.NonAttentionPercent(),
	}

	if err := Write(res.Path, text); err != nil {
		return res, err
	}
	res.Written = true
	return res, nil
}

// Write stores text at path, creating the parent directory if needed.
func Write(path, text string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
