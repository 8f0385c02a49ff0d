package monitor

import (
	"sync"
	"time"

	"github.com/mkarpov/chargewatch/internal/storage"
)

// Status is a read-only snapshot of the watcher's last cycle, served by
// the operational endpoints.
type Status struct {
	Cycles    uint64    `json:"cycles"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	Offline   []string  `json:"offline"`
}

// Tracker records the outcome of each cycle for observers. It is the only
// state shared outside the scheduler goroutine and is mutex-guarded;
// the poll loop itself never reads it.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

func NewTracker() *Tracker {
	return &Tracker{status: Status{Offline: []string{}}}
}

func (t *Tracker) record(set storage.OfflineSet, runErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Cycles++
	t.status.LastRun = time.Now()
	t.status.Offline = set.Names()
	if runErr != nil {
		t.status.LastError = runErr.Error()
	} else {
		t.status.LastError = ""
	}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cp := t.status
	cp.Offline = append([]string(nil), t.status.Offline...)
	return cp
}

// OfflineCount reports the size of the last persisted offline set.
func (t *Tracker) OfflineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.status.Offline)
}
