package reaper

import (
	"errors"
	"fmt"
)

// FailureKind classifies where a tick or item failed.
type FailureKind int

const (
	// FailureQuery means the eligibility scan failed. The tick is aborted.
	FailureQuery FailureKind = iota + 1
	// FailureExternalDelete means the media store rejected a delete. The
	// record is left intact.
	FailureExternalDelete
	// FailureRecordDelete means the record store rejected a delete.
	FailureRecordDelete
	// FailureNotification means the report could not be delivered. Deletions
	// already performed stand.
	FailureNotification
)

func (k FailureKind) String() string {
	switch k {
	case FailureQuery:
		return "query"
	case FailureExternalDelete:
		return "external_delete"
	case FailureRecordDelete:
		return "record_delete"
	case FailureNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// TickError describes one failure within a tick.
type TickError struct {
	Reaper string
	Kind   FailureKind
	// ID is the record ID for per-item failures.
	ID  string
	Err error
}

func (e *TickError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s reaper: %s failure for %s: %v", e.Reaper, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s reaper: %s failure: %v", e.Reaper, e.Kind, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind carried by err.
func KindOf(err error) (FailureKind, bool) {
	var te *TickError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}
