package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkarpov/chargewatch/internal/report"
	"github.com/mkarpov/chargewatch/internal/storage"
)

// countingSource counts scans and can be configured to always fail.
type countingSource struct {
	scans atomic.Int64
	fail  bool
}

func (c *countingSource) NextPage(ctx context.Context, cursor string) ([]report.Record, string, error) {
	if cursor == "" {
		c.scans.Add(1)
	}
	if c.fail {
		return nil, "", &report.UnavailableError{Stage: "login", URL: "fake", Err: errors.New("auth down")}
	}
	return []report.Record{rec("Station-A", report.StatusOnline)}, "", nil
}

func newTestScheduler(t *testing.T, src report.Source, interval time.Duration) *Scheduler {
	t.Helper()
	store := storage.NewStore(filepath.Join(t.TempDir(), "state.json"))
	w := NewWatcher(src, &fakeNotifier{}, store, NewTracker())
	return NewScheduler(w, interval, time.Second, storage.NewOfflineSet())
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSchedulerRunsFirstCycleImmediately(t *testing.T) {
	src := &countingSource{}
	s := newTestScheduler(t, src, time.Hour)
	s.Start()
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return src.scans.Load() >= 1 })
}

func TestSchedulerRepeatsOnInterval(t *testing.T) {
	src := &countingSource{}
	s := newTestScheduler(t, src, 20*time.Millisecond)
	s.Start()
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return src.scans.Load() >= 3 })
}

func TestSchedulerSurvivesCycleFailures(t *testing.T) {
	// Every cycle fails; the loop must keep scheduling the next one.
	src := &countingSource{fail: true}
	s := newTestScheduler(t, src, 20*time.Millisecond)
	s.Start()
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return src.scans.Load() >= 3 })
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := newTestScheduler(t, &countingSource{}, time.Hour)
	s.Start()

	s.Stop()
	s.Stop() // second call must not panic or hang
}

func TestSchedulerStopsScheduling(t *testing.T) {
	src := &countingSource{}
	s := newTestScheduler(t, src, 20*time.Millisecond)
	s.Start()

	waitFor(t, time.Second, func() bool { return src.scans.Load() >= 1 })
	s.Stop()

	after := src.scans.Load()
	time.Sleep(100 * time.Millisecond)
	if got := src.scans.Load(); got != after {
		t.Errorf("cycles kept running after Stop: %d -> %d", after, got)
	}
}
