package notify

import (
	"context"

	"github.com/mkarpov/chargewatch/internal/report"
)

// Kind classifies a station transition.
type Kind string

const (
	// KindWentOffline marks a station observed offline that was not yet
	// in the offline set.
	KindWentOffline Kind = "went_offline"
	// KindBackOnline marks a previously alerted station observed online
	// again.
	KindBackOnline Kind = "back_online"
)

// Event is one alert-worthy transition, detected by the diff engine and
// handed to a Notifier. It lives only for the duration of a poll cycle.
type Event struct {
	Kind    Kind
	Station report.Record
}

// Notifier is the interface that all alert channel implementations must
// satisfy. Delivery is best-effort: callers log a failed Send and move
// on, they never retry within the cycle or abort because of it.
type Notifier interface {
	// Type returns the channel type identifier (e.g., "telegram").
	Type() string

	// Send delivers one transition alert. It returns an error if
	// delivery fails.
	Send(ctx context.Context, event Event) error

	// Validate checks whether the notifier configuration is usable.
	Validate() error
}
