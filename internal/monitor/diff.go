package monitor

import (
	"strings"

	"github.com/mkarpov/chargewatch/internal/notify"
	"github.com/mkarpov/chargewatch/internal/report"
	"github.com/mkarpov/chargewatch/internal/storage"
)

// Diff reconciles one report page against the offline set and returns the
// alert-worthy transitions in record order, mutating set as it goes.
//
// The report is a live snapshot, not a change feed: alert-worthiness is
// decided against what has already been alerted (the set), so an online
// station is never re-alerted and an offline station triggers exactly one
// alert until it recovers.
func Diff(set storage.OfflineSet, records []report.Record) []notify.Event {
	var events []notify.Event

	for _, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			// A nameless row cannot be matched; adding it would corrupt the set.
			continue
		}
		rec.Name = name

		switch rec.Status {
		case report.StatusOnline:
			if set.Has(name) {
				set.Remove(name)
				events = append(events, notify.Event{Kind: notify.KindBackOnline, Station: rec})
			}
		case report.StatusOffline:
			if !set.Has(name) {
				set.Add(name)
				events = append(events, notify.Event{Kind: notify.KindWentOffline, Station: rec})
			}
		}
	}

	return events
}
