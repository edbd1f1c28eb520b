// Package config loads eyeproctor settings from a TOML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/camera"
	"github.com/teslashibe/eyeproctor/pkg/report"
	"github.com/teslashibe/eyeproctor/pkg/session"
	"github.com/teslashibe/eyeproctor/pkg/tracking"
)

// Default dashboard configuration.
const (
	DefaultPort     = "8090"
	DefaultSpoolDir = "~/.cache/eyeproctor/focus"
)

// Config holds all eyeproctor configuration.
type Config struct {
	LogLevel string `toml:"log_level"`

	Attention AttentionConfig `toml:"attention"`
	Report    ReportConfig    `toml:"report"`
	Camera    camera.Config   `toml:"camera"`
	Tracker   TrackerConfig   `toml:"tracker"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Focus     FocusConfig     `toml:"focus"`
	Session   SessionConfig   `toml:"session"`
}

type AttentionConfig struct {
	ThresholdX float64 `toml:"threshold_x"`
	ThresholdY float64 `toml:"threshold_y"`
	LossPolicy string  `toml:"loss_policy"`
}

type ReportConfig struct {
	Dir    string `toml:"dir"`
	Prefix string `toml:"prefix"`
	Ext    string `toml:"ext"`
}

type TrackerConfig struct {
	Backend   string `toml:"backend"` // "flow" or "landmarks"
	Preset    string `toml:"preset"`  // "default", "dense" or "fast"
	ModelPath string `toml:"model_path"`
}

type DashboardConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    string `toml:"port"`
}

type FocusConfig struct {
	Enabled  bool   `toml:"enabled"`
	SpoolDir string `toml:"spool_dir"`
}

type SessionConfig struct {
	MaxDuration Duration `toml:"max_duration"`
}

// Duration decodes TOML strings such as "90m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Attention: AttentionConfig{
			ThresholdX: attention.DefaultThresholdX,
			ThresholdY: attention.DefaultThresholdY,
			LossPolicy: attention.LossCreditOnce.String(),
		},
		Report: ReportConfig{
			Dir:    ".",
			Prefix: "Report",
			Ext:    "txt",
		},
		Camera: camera.DefaultConfig(),
		Tracker: TrackerConfig{
			Backend:   "flow",
			Preset:    "default",
			ModelPath: "models/face_detection_yunet.onnx",
		},
		Dashboard: DashboardConfig{
			Enabled: true,
			Port:    DefaultPort,
		},
		Focus: FocusConfig{
			Enabled:  false,
			SpoolDir: DefaultSpoolDir,
		},
	}
}

// Load reads config from path, or from the standard locations when path is
// empty, falling back to defaults. Environment variables override the file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				if _, err := toml.DecodeFile(p, &cfg); err != nil {
					return cfg, fmt.Errorf("parse config %s: %w", p, err)
				}
				break
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	cfg.Report.Dir = expandHome(cfg.Report.Dir)
	cfg.Focus.SpoolDir = expandHome(cfg.Focus.SpoolDir)
	cfg.Tracker.ModelPath = expandHome(cfg.Tracker.ModelPath)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "eyeproctor", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "eyeproctor", "config.toml"))
	}

	return paths
}

// applyEnv overrides file values with PROCTOR_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("PROCTOR_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if err := envFloat("PROCTOR_THRESHOLD_X", &c.Attention.ThresholdX); err != nil {
		return err
	}
	if err := envFloat("PROCTOR_THRESHOLD_Y", &c.Attention.ThresholdY); err != nil {
		return err
	}
	if v := os.Getenv("PROCTOR_LOSS_POLICY"); v != "" {
		c.Attention.LossPolicy = v
	}
	if v := os.Getenv("PROCTOR_REPORT_DIR"); v != "" {
		c.Report.Dir = v
	}
	if err := envInt("PROCTOR_CAMERA_ID", &c.Camera.DeviceID); err != nil {
		return err
	}
	if v := os.Getenv("PROCTOR_PORT"); v != "" {
		c.Dashboard.Port = v
	}
	if v := os.Getenv("PROCTOR_SPOOL_DIR"); v != "" {
		c.Focus.SpoolDir = v
		c.Focus.Enabled = true
	}
	if v := os.Getenv("PROCTOR_MAX_DURATION"); v != "" {
		if err := c.Session.MaxDuration.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("PROCTOR_MAX_DURATION: %w", err)
		}
	}
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := c.AttentionConfig(); err != nil {
		return err
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera: %s", strings.Join(errs, "; "))
	}
	if _, err := c.TrackingConfig(); err != nil {
		return err
	}
	switch c.Tracker.Backend {
	case "flow", "landmarks":
	default:
		return fmt.Errorf("tracker backend must be flow or landmarks, got %q", c.Tracker.Backend)
	}
	if c.Report.Prefix == "" {
		return fmt.Errorf("report prefix must not be empty")
	}
	if c.Session.MaxDuration.Duration < 0 {
		return fmt.Errorf("session max_duration must be >= 0")
	}
	return nil
}

// AttentionConfig converts the [attention] section.
func (c Config) AttentionConfig() (attention.Config, error) {
	policy, err := attention.ParseLossPolicy(c.Attention.LossPolicy)
	if err != nil {
		return attention.Config{}, fmt.Errorf("attention: %w", err)
	}
	ac := attention.Config{
		ThresholdX: c.Attention.ThresholdX,
		ThresholdY: c.Attention.ThresholdY,
		LossPolicy: policy,
	}
	if err := ac.Validate(); err != nil {
		return attention.Config{}, fmt.Errorf("attention: %w", err)
	}
	return ac, nil
}

// TrackingConfig resolves the [tracker] preset.
func (c Config) TrackingConfig() (tracking.Config, error) {
	switch c.Tracker.Preset {
	case "", "default":
		return tracking.DefaultConfig(), nil
	case "dense":
		return tracking.DenseConfig(), nil
	case "fast":
		return tracking.FastConfig(), nil
	}
	return tracking.Config{}, fmt.Errorf("unknown tracker preset %q", c.Tracker.Preset)
}

// SessionConfig assembles the session parameters.
func (c Config) SessionConfig() (session.Config, error) {
	ac, err := c.AttentionConfig()
	if err != nil {
		return session.Config{}, err
	}
	sc := session.DefaultConfig()
	sc.Attention = ac
	sc.Report = report.Config{
		Dir:    c.Report.Dir,
		Prefix: c.Report.Prefix,
		Ext:    c.Report.Ext,
	}
	sc.MaxDuration = c.Session.MaxDuration.Duration
	return sc, nil
}
