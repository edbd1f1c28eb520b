// Command proctor-tail follows a running proctor session from the terminal
// by subscribing to the dashboard status websocket.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/eyeproctor/internal/log"
	"github.com/teslashibe/eyeproctor/pkg/hub"
	"github.com/teslashibe/eyeproctor/pkg/report"
)

// statusFrame mirrors the JSON of session.Status.
type statusFrame struct {
	ID       string `json:"id"`
	Snapshot struct {
		Durations       map[string]float64 `json:"durations"`
		Total           float64            `json:"total_s"`
		NonAttentionPct float64            `json:"non_attention_pct"`
		WindowSwitches  int                `json:"window_switches"`
		Active          string             `json:"active"`
		Closed          bool               `json:"closed"`
	} `json:"snapshot"`
}

func main() {
	addr := flag.String("addr", "localhost:8090", "dashboard host:port")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log.Init(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tail(ctx, *addr, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tail(ctx context.Context, addr string, out io.Writer) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws/status"}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", u.String(), err)
	}
	defer conn.Close()
	log.Info("connected", "url", u.String())

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		line, err := format(data)
		if err != nil {
			log.Warn("bad frame", "error", err)
			continue
		}
		fmt.Fprintln(out, line)
	}
}

// format renders one hub message as a single terminal line.
func format(data []byte) (string, error) {
	var m hub.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}

	switch m.Kind {
	case hub.KindStatus:
		var st statusFrame
		if err := json.Unmarshal(m.Data, &st); err != nil {
			return "", err
		}
		return formatStatus(st), nil

	case hub.KindDistraction:
		var d struct {
			Seconds float64 `json:"duration_s"`
			Source  string  `json:"source"`
		}
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return "", err
		}
		return fmt.Sprintf("distraction %.1fs from %s", d.Seconds, d.Source), nil

	case hub.KindReport:
		var res report.Result
		if err := json.Unmarshal(m.Data, &res); err != nil {
			return "", err
		}
		return fmt.Sprintf("report %s %s (%.1f%%)", res.Verdict, res.Path, res.NonAttentionPct), nil
	}
	return "", fmt.Errorf("unknown kind %q", m.Kind)
}

func formatStatus(st statusFrame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.8s total=%.1fs non_attention=%.1f%% switches=%d",
		st.ID, st.Snapshot.Total, st.Snapshot.NonAttentionPct, st.Snapshot.WindowSwitches)

	keys := make([]string, 0, len(st.Snapshot.Durations))
	for k := range st.Snapshot.Durations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := st.Snapshot.Durations[k]; v > 0 {
			fmt.Fprintf(&b, " %s=%.1fs", k, v)
		}
	}

	switch {
	case st.Snapshot.Closed:
		b.WriteString(" [closed]")
	case st.Snapshot.Active != "":
		fmt.Fprintf(&b, " [%s]", st.Snapshot.Active)
	}
	return b.String()
}
