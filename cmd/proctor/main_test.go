package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teslashibe/eyeproctor/pkg/camera"
	"github.com/teslashibe/eyeproctor/pkg/focus"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "proctor.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNameCmd(t *testing.T) {
	path := writeTestConfig(t, "[report]\ndir = \"/exams\"\nprefix = \"Midterm\"\n")

	out, err := execute(t, "--config", path, "name")
	if err != nil {
		t.Fatalf("name: %v", err)
	}
	got := strings.TrimSpace(out)
	if !strings.HasPrefix(got, "/exams/Midterm_") || !strings.HasSuffix(got, ").txt") {
		t.Errorf("got %q", got)
	}
}

func TestDistractCmd(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "spool")
	path := writeTestConfig(t, "[focus]\nspool_dir = \""+spool+"\"\n")

	out, err := execute(t, "--config", path, "distract", "--seconds", "7.5", "--source", "lms")
	if err != nil {
		t.Fatalf("distract: %v", err)
	}

	d, err := focus.ReadNotice(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ReadNotice: %v", err)
	}
	if d.Seconds != 7.5 || d.Source != "lms" {
		t.Errorf("notice: %+v", d)
	}

	if _, err := execute(t, "--config", path, "distract", "--seconds", "-1"); err == nil {
		t.Error("Expected error for negative seconds")
	}
}

func TestConfigCmd(t *testing.T) {
	path := writeTestConfig(t, "[attention]\nthreshold_x = 25.0\n")

	out, err := execute(t, "--config", path, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "threshold_x = 25.0") {
		t.Errorf("effective config missing override:\n%s", out)
	}
	if !strings.Contains(out, "[camera]") {
		t.Errorf("effective config missing camera section:\n%s", out)
	}
}

func TestBadConfig(t *testing.T) {
	path := writeTestConfig(t, "[tracker]\nbackend = \"radar\"\n")

	if _, err := execute(t, "--config", path, "name"); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestRemoteCommands(t *testing.T) {
	var posted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/events/distraction":
			json.NewDecoder(r.Body).Decode(&posted)
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"duration_s": 3}`))
		case "/api/session/finalize":
			w.Write([]byte(`{"path": "/tmp/r.txt", "verdict": "SUSPICIOUS", "non_attention_pct": 61.5, "written": true}`))
		case "/api/status":
			w.Write([]byte(`{"id":"abc"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	path := writeTestConfig(t, "")

	out, err := execute(t, "--config", path, "distract", "--addr", srv.URL, "--seconds", "3")
	if err != nil {
		t.Fatalf("distract: %v", err)
	}
	if strings.TrimSpace(out) != "accepted 3.0s" || posted["duration_s"] != 3.0 || posted["source"] != "cli" {
		t.Errorf("distract: out %q, posted %v", out, posted)
	}

	out, err = execute(t, "--config", path, "finish", "--addr", srv.URL)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if strings.TrimSpace(out) != "SUSPICIOUS /tmp/r.txt (61.5% non-attention)" {
		t.Errorf("finish: got %q", out)
	}

	out, err = execute(t, "--config", path, "status", "--addr", strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if strings.TrimSpace(out) != `{"id":"abc"}` {
		t.Errorf("status: got %q", out)
	}
}

func TestApplyCameraPreset(t *testing.T) {
	base := camera.DefaultConfig()
	base.DeviceID = 2
	base.Mirror = true

	got, err := applyCameraPreset(base, camera.Preset720p)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 1280 || got.Height != 720 || got.DeviceID != 2 || !got.Mirror {
		t.Errorf("got %+v", got)
	}

	if _, err := applyCameraPreset(base, "8k"); err == nil {
		t.Error("Expected error for unknown preset")
	}
}
