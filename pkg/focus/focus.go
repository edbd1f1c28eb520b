// Package focus turns focus-loss notices dropped into a spool directory into
// window-switch distractions. Any process that can write a small JSON file
// (a browser extension host, a window manager hook, the proctor CLI) can
// report that the candidate left the exam window.
package focus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/teslashibe/eyeproctor/internal/log"
	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/events"
)

const (
	noticeExt = ".json"
	rejectExt = ".rejected"
	closedExt = ".closed"
)

// errEmpty means a writer has created the notice but not filled it yet.
var errEmpty = errors.New("empty notice")

// Submitter accepts distractions. *events.Integrator satisfies it.
type Submitter interface {
	Submit(d events.Distraction) error
}

// Watcher consumes notices from a spool directory.
type Watcher struct {
	dir    string
	sink   Submitter
	logger *slog.Logger
}

// NewWatcher creates the spool directory if needed.
func NewWatcher(dir string, sink Submitter) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Watcher{
		dir:    dir,
		sink:   sink,
		logger: log.With("component", "focus", "dir", dir),
	}, nil
}

// Run processes notices already present, then watches for new ones until
// ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for focus loss")

	if _, err := w.Scan(); err != nil {
		w.logger.Warn("initial scan", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isNotice(ev.Name) {
				continue
			}
			w.handle(ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Scan processes every notice currently in the spool and returns how many
// were submitted.
func (w *Watcher) Scan() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isNotice(e.Name()) {
			continue
		}
		if w.handle(filepath.Join(w.dir, e.Name())) {
			n++
		}
	}
	return n, nil
}

// handle submits one notice. Accepted notices are removed; malformed ones
// are renamed aside so they are not retried forever.
func (w *Watcher) handle(path string) bool {
	d, err := ReadNotice(path)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, errEmpty) {
		return false
	}
	if err != nil {
		w.logger.Warn("rejecting notice", "file", filepath.Base(path), "error", err)
		if rerr := os.Rename(path, path+rejectExt); rerr != nil {
			w.logger.Warn("rename rejected notice", "error", rerr)
		}
		return false
	}

	err = w.sink.Submit(d)
	switch {
	case errors.Is(err, attention.ErrSessionClosed):
		// the exam it belonged to is over; keep it for inspection but never
		// apply it to the next one
		w.logger.Warn("session closed, setting notice aside", "file", filepath.Base(path))
		if rerr := os.Rename(path, path+closedExt); rerr != nil {
			w.logger.Warn("rename closed notice", "error", rerr)
		}
		return false
	case err != nil:
		// leave the file for the next scan
		w.logger.Warn("submit distraction", "file", filepath.Base(path), "error", err)
		return false
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("remove notice", "error", err)
	}
	w.logger.Info("focus loss", "source", d.Source, "duration_s", d.Seconds)
	return true
}

// ReadNotice parses and validates one notice file.
func ReadNotice(path string) (events.Distraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return events.Distraction{}, err
	}
	if len(data) == 0 {
		return events.Distraction{}, errEmpty
	}

	var d events.Distraction
	if err := json.Unmarshal(data, &d); err != nil {
		return events.Distraction{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if _, err := attention.DurationFromSeconds(d.Seconds); err != nil {
		return events.Distraction{}, err
	}
	if d.Source == "" {
		d.Source = "focus"
	}
	return d, nil
}

// Spool writes a notice into dir atomically so a watcher never sees a
// partial file.
func Spool(dir string, d events.Distraction) (string, error) {
	if _, err := attention.DurationFromSeconds(d.Seconds); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}
	if d.At.IsZero() {
		d.At = time.Now()
	}

	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}

	name := filepath.Join(dir, uuid.NewString()+noticeExt)
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write notice: %w", err)
	}
	if err := os.Rename(tmp, name); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish notice: %w", err)
	}
	return name, nil
}

func isNotice(name string) bool {
	return strings.HasSuffix(name, noticeExt)
}
