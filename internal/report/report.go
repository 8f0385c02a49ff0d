// Package report defines the station-status report boundary: the record
// model produced by a fleet scan, status normalization, and the Source
// interface the poll loop consumes. The concrete HTTP implementation
// lives in http.go; the core never sees authentication or pagination
// mechanics beyond the cursor.
package report

import (
	"context"
	"fmt"
	"strings"
)

// Status is a station's normalized connectivity state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// ParseStatus normalizes a raw status cell. The report uses "online" and
// "active" interchangeably for connected stations; anything unrecognized
// maps to StatusUnknown and is ignored downstream.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "online", "active":
		return StatusOnline
	case "offline":
		return StatusOffline
	default:
		return StatusUnknown
	}
}

// Record is one station row from the report. Produced fresh each scan,
// never persisted. ObservedAt is the report-supplied timestamp, treated
// as an opaque string.
type Record struct {
	Name       string
	Partner    string
	Status     Status
	ObservedAt string
}

// Source supplies pages of station records for one fleet scan.
//
// An empty cursor starts a fresh scan (the implementation authenticates
// there if needed); an empty next cursor means the scan is exhausted.
// Implementations own retry of transient navigation failures and return
// *UnavailableError when a page cannot be produced.
type Source interface {
	NextPage(ctx context.Context, cursor string) (records []Record, next string, err error)
}

// UnavailableError reports that the source could not produce a page.
// Stage and URL carry enough context to diagnose where the scan died.
type UnavailableError struct {
	Stage string // "login", "fetch", "parse"
	URL   string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("report source unavailable at %s (%s): %v", e.Stage, e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
