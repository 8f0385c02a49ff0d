package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkarpov/chargewatch/internal/storage"
)

// Scheduler runs poll cycles forever on a fixed period. Cycles are
// strictly sequential: the next one is scheduled only after the previous
// finished, and a cycle's failure is logged and absorbed so the loop
// never dies. The offline set threads through cycles as a value owned by
// the scheduler goroutine.
type Scheduler struct {
	watcher      *Watcher
	interval     time.Duration
	cycleTimeout time.Duration
	set          storage.OfflineSet

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewScheduler creates a Scheduler starting from the given offline set
// (the one loaded from disk at process start).
func NewScheduler(watcher *Watcher, interval, cycleTimeout time.Duration, initial storage.OfflineSet) *Scheduler {
	return &Scheduler{
		watcher:      watcher,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		set:          initial,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the poll loop. The first cycle runs immediately.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop signals the loop to exit and waits for it. An in-flight cycle is
// allowed to finish (and persist) first; stop takes effect only at cycle
// boundaries.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	slog.Info("poll loop started", "interval", s.interval)

	s.runCycle()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			slog.Info("poll loop stopped")
			return
		case <-timer.C:
			s.runCycle()
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) runCycle() {
	ctx := context.Background()
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	start := time.Now()
	set, err := s.watcher.RunCycle(ctx, s.set)
	s.set = set

	if err != nil {
		slog.Error("poll cycle failed", "error", err, "duration", time.Since(start))
		return
	}
	slog.Info("poll cycle complete", "offline", set.Len(), "duration", time.Since(start))
}
