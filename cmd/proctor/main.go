// Command proctor watches a candidate through the webcam during an exam and
// writes an attention report when the session ends.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/teslashibe/eyeproctor/internal/config"
	"github.com/teslashibe/eyeproctor/internal/httpc"
	"github.com/teslashibe/eyeproctor/internal/log"
	"github.com/teslashibe/eyeproctor/pkg/debug"
	"github.com/teslashibe/eyeproctor/pkg/events"
	"github.com/teslashibe/eyeproctor/pkg/focus"
	"github.com/teslashibe/eyeproctor/pkg/report"
)

type rootFlags struct {
	configPath  string
	debug       bool
	debugFrames bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "proctor",
		Short:         "Webcam attention proctoring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/eyeproctor/config.toml)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.debugFrames, "debug-frames", false, "trace every observed frame")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newDistractCmd(flags))
	root.AddCommand(newFinishCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newNameCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	return root
}

// load reads configuration and initializes logging from it.
func load(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	level := cfg.LogLevel
	if flags.debug || flags.debugFrames {
		level = "debug"
	}
	log.Init(level)
	debug.Enabled = flags.debug || flags.debugFrames
	debug.Frames = flags.debugFrames
	return cfg, nil
}

func newDistractCmd(flags *rootFlags) *cobra.Command {
	var seconds float64
	var source, addr string

	cmd := &cobra.Command{
		Use:   "distract",
		Short: "Report a window switch to a running session",
		Long: "Report a window switch. With --addr the distraction is posted to the " +
			"dashboard; otherwise it is dropped into the focus spool directory.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(flags)
			if err != nil {
				return err
			}
			d := events.Distraction{Seconds: seconds, Source: source}

			if addr != "" {
				var accepted events.Distraction
				if err := httpc.PostJSON(cmd.Context(), apiURL(addr, "/api/events/distraction"), d, &accepted); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "accepted %.1fs\n", accepted.Seconds)
				return nil
			}

			path, err := focus.Spool(cfg.Focus.SpoolDir, d)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().Float64Var(&seconds, "seconds", 10, "length of the distraction")
	cmd.Flags().StringVar(&source, "source", "cli", "who noticed the focus loss")
	cmd.Flags().StringVar(&addr, "addr", "", "dashboard host:port of a running session")
	return cmd
}

func newFinishCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "finish",
		Short: "Finalize a running session and print its verdict",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := load(flags); err != nil {
				return err
			}
			var res report.Result
			if err := httpc.PostJSON(cmd.Context(), apiURL(addr, "/api/session/finalize"), nil, &res); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%.1f%% non-attention)\n",
				res.Verdict, res.Path, res.NonAttentionPct)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:"+config.DefaultPort, "dashboard host:port")
	return cmd
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the live status of a running session as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := load(flags); err != nil {
				return err
			}
			var st json.RawMessage
			if err := httpc.GetJSON(cmd.Context(), apiURL(addr, "/api/status"), &st); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(st))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:"+config.DefaultPort, "dashboard host:port")
	return cmd
}

func apiURL(addr, path string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/") + path
	}
	return "http://" + addr + path
}

func newNameCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "name",
		Short: "Print the report path a session finishing now would use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(flags)
			if err != nil {
				return err
			}
			rc := report.Config{Dir: cfg.Report.Dir, Prefix: cfg.Report.Prefix, Ext: cfg.Report.Ext}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rc.Path(time.Now()))
			return nil
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(flags)
			if err != nil {
				return err
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}
}
