package periods

import (
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Period represents an accounting period window. Both bounds are inclusive.
type Period struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    PeriodStatus `json:"status"`
	OpenedAt  time.Time    `json:"opened_at"`
	OpenedBy  int64        `json:"opened_by"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
	ClosedBy  *int64       `json:"closed_by,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Covers reports whether date falls inside the period.
func (p Period) Covers(date time.Time) bool {
	d := shared.Day(date)
	return !d.Before(shared.Day(p.StartDate)) && !d.After(shared.Day(p.EndDate))
}

// Overlaps reports whether [start, end] intersects the period.
func (p Period) Overlaps(start, end time.Time) bool {
	return !shared.Day(start).After(shared.Day(p.EndDate)) && !shared.Day(end).Before(shared.Day(p.StartDate))
}

// IsOpen reports whether postings may land in the period.
func (p Period) IsOpen() bool {
	return p.Status == PeriodStatusOpen
}

// ValidateTransition checks a status change. Same-status requests are no-ops.
func ValidateTransition(current, target PeriodStatus) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusClosed {
			return nil
		}
	case PeriodStatusClosed:
		if target == PeriodStatusOpen {
			return nil
		}
	}
	return shared.Invalid(shared.ErrInvalidStatus, "status", string(current)+" -> "+string(target))
}
