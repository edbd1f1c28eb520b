package focus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/events"
)

type recorder struct {
	mu   sync.Mutex
	got  []events.Distraction
	fail error
}

func (r *recorder) Submit(d events.Distraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, d)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestSpoolAndScan(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := NewWatcher(dir, rec)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Spool(dir, events.Distraction{Seconds: 10, Source: "browser"}); err != nil {
		t.Fatalf("Spool: %v", err)
	}
	if _, err := Spool(dir, events.Distraction{Seconds: 2.5}); err != nil {
		t.Fatalf("Spool: %v", err)
	}

	n, err := w.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 || rec.count() != 2 {
		t.Fatalf("Expected 2 for submitted, got %d (%d recorded)", n, rec.count())
	}

	var total float64
	sources := map[string]bool{}
	for _, d := range rec.got {
		total += d.Seconds
		sources[d.Source] = true
	}
	if total != 12.5 {
		t.Errorf("Expected 12.5 for total seconds, got %v", total)
	}
	if !sources["browser"] || !sources["focus"] {
		t.Errorf("sources: got %v", sources)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("spool should be empty, has %d entries", len(entries))
	}
}

func TestSpoolRejectsInvalid(t *testing.T) {
	_, err := Spool(t.TempDir(), events.Distraction{Seconds: -3})
	if !errors.Is(err, attention.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestScan_MalformedRenamed(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := NewWatcher(dir, rec)
	if err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"duration_s": "ten"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	neg := filepath.Join(dir, "neg.json")
	if err := os.WriteFile(neg, []byte(`{"duration_s": -1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := w.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || rec.count() != 0 {
		t.Errorf("Expected 0 for submitted, got %d", n)
	}
	for _, p := range []string{bad, neg} {
		if _, err := os.Stat(p + rejectExt); err != nil {
			t.Errorf("%s not renamed aside: %v", filepath.Base(p), err)
		}
	}
}

func TestScan_SubmitFailureKeepsFile(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: events.ErrQueueFull}
	w, err := NewWatcher(dir, rec)
	if err != nil {
		t.Fatal(err)
	}

	path, err := Spool(dir, events.Distraction{Seconds: 1})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := w.Scan(); n != 0 {
		t.Errorf("Expected 0 for submitted, got %d", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("notice should be kept for retry: %v", err)
	}

	rec.fail = nil
	if n, _ := w.Scan(); n != 1 {
		t.Errorf("Expected 1 for retry submitted, got %d", n)
	}
}

func TestScan_ClosedSessionSetsNoticeAside(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: attention.ErrSessionClosed}
	w, err := NewWatcher(dir, rec)
	if err != nil {
		t.Fatal(err)
	}

	path, err := Spool(dir, events.Distraction{Seconds: 2})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := w.Scan(); n != 0 {
		t.Errorf("Expected 0 submitted, got %d", n)
	}
	if _, err := os.Stat(path + closedExt); err != nil {
		t.Errorf("Expected notice set aside: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected original notice gone so a later exam never applies it")
	}
}

func TestRun_PicksUpNewNotices(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := NewWatcher(dir, rec)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Spool(dir, events.Distraction{Seconds: 4}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("pre-existing notice not processed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := Spool(dir, events.Distraction{Seconds: 6}); err != nil {
		t.Fatal(err)
	}
	for rec.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("new notice not processed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
