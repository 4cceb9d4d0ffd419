package periods

import (
	"log/slog"
	"sort"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// SelectForPosting picks the open period governing a posting dated date.
// When several open periods cover the date the most recently opened one wins,
// with the higher id breaking ties. covering is the number of open candidates
// that contain date; zero means the posting must be rejected.
func SelectForPosting(candidates []Period, date time.Time) (chosen Period, covering int) {
	matches := make([]Period, 0, len(candidates))
	for _, p := range candidates {
		if p.IsOpen() && p.Covers(date) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return Period{}, 0
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].OpenedAt.Equal(matches[j].OpenedAt) {
			return matches[i].OpenedAt.After(matches[j].OpenedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	return matches[0], len(matches)
}

// Resolve returns the period governing a posting dated date, or a
// PeriodClosedError when no open candidate covers it. An overlap is logged
// at warn level when logger is non-nil.
func Resolve(candidates []Period, date time.Time, logger *slog.Logger) (Period, error) {
	day := shared.Day(date)
	chosen, covering := SelectForPosting(candidates, day)
	if covering == 0 {
		return Period{}, &shared.PeriodClosedError{Date: day}
	}
	if covering > 1 && logger != nil {
		logger.Warn("posting date covered by overlapping open periods",
			slog.String("date", day.Format(shared.DateLayout)),
			slog.Int64("period_id", chosen.ID),
			slog.Int("covering", covering),
		)
	}
	return chosen, nil
}
