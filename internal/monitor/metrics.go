package monitor

import "github.com/VictoriaMetrics/metrics"

var (
	cyclesTotal         = metrics.NewCounter("chargewatch_cycles_total")
	cycleFailuresTotal  = metrics.NewCounter("chargewatch_cycle_failures_total")
	pagesTotal          = metrics.NewCounter("chargewatch_report_pages_total")
	wentOfflineTotal    = metrics.NewCounter(`chargewatch_events_total{kind="went_offline"}`)
	backOnlineTotal     = metrics.NewCounter(`chargewatch_events_total{kind="back_online"}`)
	notifyFailuresTotal = metrics.NewCounter("chargewatch_notify_failures_total")
)
