package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/eyeproctor/pkg/attention"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, k := range []string{
		"PROCTOR_LOG_LEVEL", "PROCTOR_THRESHOLD_X", "PROCTOR_THRESHOLD_Y",
		"PROCTOR_LOSS_POLICY", "PROCTOR_REPORT_DIR", "PROCTOR_CAMERA_ID",
		"PROCTOR_PORT", "PROCTOR_SPOOL_DIR", "PROCTOR_MAX_DURATION",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Attention.ThresholdX != 40 || cfg.Attention.ThresholdY != 30 {
		t.Errorf("Expected 40/30 for thresholds, got %v/%v", cfg.Attention.ThresholdX, cfg.Attention.ThresholdY)
	}
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("camera: got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Dashboard.Port != DefaultPort {
		t.Errorf("port: got %s", cfg.Dashboard.Port)
	}
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "proctor.toml")
	writeConfig(t, path, `
log_level = "debug"

[attention]
threshold_x = 55.5
threshold_y = 25
loss_policy = "subsume_on_transition"

[report]
dir = "~/reports"
prefix = "Exam"

[camera]
device_id = 2
width = 1280
height = 720

[tracker]
backend = "landmarks"
preset = "dense"

[session]
max_duration = "90m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level: got %s", cfg.LogLevel)
	}
	if cfg.Report.Dir != filepath.Join(dir, "reports") {
		t.Errorf("report dir not expanded: %s", cfg.Report.Dir)
	}
	if cfg.Report.Ext != "txt" {
		t.Errorf("unset ext should keep default, got %q", cfg.Report.Ext)
	}
	if cfg.Camera.DeviceID != 2 || cfg.Camera.Width != 1280 {
		t.Errorf("camera: %+v", cfg.Camera)
	}

	sc, err := cfg.SessionConfig()
	if err != nil {
		t.Fatalf("SessionConfig: %v", err)
	}
	if sc.Attention.ThresholdX != 55.5 || sc.Attention.LossPolicy != attention.LossSubsumeOnTransition {
		t.Errorf("attention: %+v", sc.Attention)
	}
	if sc.MaxDuration != 90*time.Minute {
		t.Errorf("max duration: got %v", sc.MaxDuration)
	}
	if sc.Report.Prefix != "Exam" {
		t.Errorf("report prefix: got %s", sc.Report.Prefix)
	}

	tc, err := cfg.TrackingConfig()
	if err != nil || tc.MaxCorners != 60 {
		t.Errorf("dense preset: %+v, %v", tc, err)
	}
}

func TestLoad_StandardPath(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "xdg", "eyeproctor", "config.toml"), "[dashboard]\nport = \"9999\"\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dashboard.Port != "9999" {
		t.Errorf("Expected 9999 for port, got %s", cfg.Dashboard.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PROCTOR_THRESHOLD_X", "12")
	t.Setenv("PROCTOR_CAMERA_ID", "1")
	t.Setenv("PROCTOR_SPOOL_DIR", "/tmp/spool")
	t.Setenv("PROCTOR_MAX_DURATION", "45m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Attention.ThresholdX != 12 {
		t.Errorf("threshold_x: got %v", cfg.Attention.ThresholdX)
	}
	if cfg.Camera.DeviceID != 1 {
		t.Errorf("camera id: got %d", cfg.Camera.DeviceID)
	}
	if !cfg.Focus.Enabled || cfg.Focus.SpoolDir != "/tmp/spool" {
		t.Errorf("focus: %+v", cfg.Focus)
	}
	if cfg.Session.MaxDuration.Duration != 45*time.Minute {
		t.Errorf("max duration: got %v", cfg.Session.MaxDuration)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  [2]string
		want string
	}{
		{name: "bad toml", body: "threshold_x = = 1", want: "parse config"},
		{name: "negative threshold", body: "[attention]\nthreshold_y = -1\n", want: "attention"},
		{name: "unknown policy", body: "[attention]\nloss_policy = \"twice\"\n", want: "loss policy"},
		{name: "unknown backend", body: "[tracker]\nbackend = \"lidar\"\n", want: "backend"},
		{name: "bad env float", env: [2]string{"PROCTOR_THRESHOLD_X", "wide"}, want: "PROCTOR_THRESHOLD_X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "c.toml")
			writeConfig(t, path, tt.body)
			if tt.env[0] != "" {
				t.Setenv(tt.env[0], tt.env[1])
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
