package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkarpov/chargewatch/internal/notify"
	"github.com/mkarpov/chargewatch/internal/report"
	"github.com/mkarpov/chargewatch/internal/storage"
)

// Watcher drives one full fleet scan per cycle: pull pages from the
// report source, diff each against the offline set, deliver alerts, and
// persist the final set exactly once.
type Watcher struct {
	source   report.Source
	notifier notify.Notifier
	store    *storage.Store
	tracker  *Tracker
}

func NewWatcher(source report.Source, notifier notify.Notifier, store *storage.Store, tracker *Tracker) *Watcher {
	return &Watcher{
		source:   source,
		notifier: notifier,
		store:    store,
		tracker:  tracker,
	}
}

// RunCycle performs one cycle over a private copy of set and returns the
// set the next cycle should start from.
//
// Failure before the first page leaves the input set untouched and skips
// persistence: the on-disk set from the previous successful cycle stays
// authoritative. Failure mid-pagination persists the partial progress —
// alerts already sent are not un-sent, so their set effects must survive
// a crash or restart.
func (w *Watcher) RunCycle(ctx context.Context, set storage.OfflineSet) (storage.OfflineSet, error) {
	cyclesTotal.Inc()

	cur := set.Clone()
	cursor := ""
	gotPage := false
	pages := 0
	var scanErr error

	for {
		records, next, err := w.source.NextPage(ctx, cursor)
		if err != nil {
			if !gotPage {
				cycleFailuresTotal.Inc()
				w.tracker.record(set, err)
				return set, fmt.Errorf("scan aborted before first page: %w", err)
			}
			scanErr = fmt.Errorf("scan aborted after %d pages: %w", pages, err)
			break
		}
		gotPage = true
		pages++
		pagesTotal.Inc()

		events := Diff(cur, records)
		for _, ev := range events {
			w.deliver(ctx, ev)
		}

		if next == "" {
			break
		}
		cursor = next
	}

	if err := w.store.Save(cur); err != nil {
		// The in-memory set still advances: alerts were sent, and a later
		// successful save will catch the file up.
		scanErr = errors.Join(scanErr, fmt.Errorf("persist offline set: %w", err))
	}

	if scanErr != nil {
		cycleFailuresTotal.Inc()
	}
	w.tracker.record(cur, scanErr)
	slog.Debug("cycle finished", "pages", pages, "offline", cur.Len())
	return cur, scanErr
}

// deliver sends one alert, best-effort. A failed delivery is logged and
// the station's membership change stands so a future cycle does not
// re-alert spuriously.
func (w *Watcher) deliver(ctx context.Context, ev notify.Event) {
	switch ev.Kind {
	case notify.KindWentOffline:
		wentOfflineTotal.Inc()
		slog.Warn("station went offline", "name", ev.Station.Name, "partner", ev.Station.Partner, "last_seen", ev.Station.ObservedAt)
	case notify.KindBackOnline:
		backOnlineTotal.Inc()
		slog.Info("station back online", "name", ev.Station.Name, "partner", ev.Station.Partner)
	}

	if err := w.notifier.Send(ctx, ev); err != nil {
		notifyFailuresTotal.Inc()
		slog.Error("alert delivery failed",
			"type", w.notifier.Type(),
			"kind", ev.Kind,
			"station", ev.Station.Name,
			"error", err,
		)
	}
}
