package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/teslashibe/eyeproctor/internal/config"
	"github.com/teslashibe/eyeproctor/internal/log"
	"github.com/teslashibe/eyeproctor/pkg/camera"
	"github.com/teslashibe/eyeproctor/pkg/focus"
	"github.com/teslashibe/eyeproctor/pkg/report"
	"github.com/teslashibe/eyeproctor/pkg/session"
	"github.com/teslashibe/eyeproctor/pkg/tracking"
	"github.com/teslashibe/eyeproctor/pkg/tracking/detection"
	"github.com/teslashibe/eyeproctor/pkg/web"
)

// pointSource is a session.PointSource that owns native resources.
type pointSource interface {
	session.PointSource
	Close() error
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var noDashboard bool
	var cameraPreset string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Proctor one exam until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(flags)
			if err != nil {
				return err
			}
			if noDashboard {
				cfg.Dashboard.Enabled = false
			}
			if cameraPreset != "" {
				if cfg.Camera, err = applyCameraPreset(cfg.Camera, cameraPreset); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := run(ctx, cfg)
			if res.Path != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%.1f%% non-attention)\n",
					res.Verdict, res.Path, res.NonAttentionPct)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "do not serve the dashboard")
	cmd.Flags().StringVar(&cameraPreset, "camera-preset", "",
		"capture resolution preset ("+strings.Join(camera.PresetNames(), ", ")+")")
	return cmd
}

// applyCameraPreset swaps in a preset resolution, keeping the device and
// mirroring from the loaded config.
func applyCameraPreset(cfg camera.Config, name string) (camera.Config, error) {
	p := camera.GetPreset(name)
	if p == nil {
		return cfg, fmt.Errorf("unknown camera preset %q (want one of %s)",
			name, strings.Join(camera.PresetNames(), ", "))
	}
	p.DeviceID = cfg.DeviceID
	p.Mirror = cfg.Mirror
	return *p, nil
}

func run(ctx context.Context, cfg config.Config) (report.Result, error) {
	sc, err := cfg.SessionConfig()
	if err != nil {
		return report.Result{}, err
	}

	capture, err := camera.Open(cfg.Camera)
	if err != nil {
		return report.Result{}, err
	}
	defer capture.Close()

	src, err := openSource(cfg, capture)
	if err != nil {
		return report.Result{}, err
	}
	defer src.Close()

	sess, err := session.New(sc)
	if err != nil {
		return report.Result{}, err
	}
	log.Info("session started", "session_id", sess.ID(), "backend", cfg.Tracker.Backend)

	if cfg.Dashboard.Enabled {
		srv := web.NewServer(cfg.Dashboard.Port, sess)
		sess.SetStateUpdater(srv)
		srv.StartAsync(ctx)
	}

	if cfg.Focus.Enabled {
		w, err := focus.NewWatcher(cfg.Focus.SpoolDir, sess.Events())
		if err != nil {
			return report.Result{}, err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Warn("focus watcher stopped", "error", err)
			}
		}()
	}

	res, err := sess.Run(ctx, src)
	var we *report.WriteError
	if errors.As(err, &we) {
		log.Warn("retrying report write", "path", we.Path)
		res, err = sess.RetryWrite()
	}
	return res, err
}

func openSource(cfg config.Config, capture *camera.Capture) (pointSource, error) {
	switch cfg.Tracker.Backend {
	case "landmarks":
		dc := detection.DefaultConfig()
		dc.ModelPath = cfg.Tracker.ModelPath
		det, err := detection.NewYuNet(dc)
		if err != nil {
			return nil, err
		}
		return tracking.NewLandmarkSource(capture, det), nil

	default:
		tc, err := cfg.TrackingConfig()
		if err != nil {
			return nil, err
		}
		tracker, err := tracking.NewFlowTracker(tc)
		if err != nil {
			return nil, err
		}
		return tracking.NewFlowSource(capture, tracker), nil
	}
}
