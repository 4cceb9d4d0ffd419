package periods

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

func day(raw string) time.Time {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSelectForPostingPrefersMostRecentlyOpened(t *testing.T) {
	jan := Period{ID: 1, StartDate: day("2024-01-01"), EndDate: day("2024-01-31"), Status: PeriodStatusOpen, OpenedAt: day("2023-12-01")}
	q1 := Period{ID: 2, StartDate: day("2024-01-01"), EndDate: day("2024-03-31"), Status: PeriodStatusOpen, OpenedAt: day("2023-12-15")}
	closed := Period{ID: 3, StartDate: day("2024-01-01"), EndDate: day("2024-12-31"), Status: PeriodStatusClosed, OpenedAt: day("2024-01-20")}

	chosen, covering := SelectForPosting([]Period{jan, q1, closed}, day("2024-01-15"))
	require.Equal(t, 2, covering)
	require.Equal(t, int64(2), chosen.ID)

	chosen, covering = SelectForPosting([]Period{jan, q1, closed}, day("2024-02-10"))
	require.Equal(t, 1, covering)
	require.Equal(t, int64(2), chosen.ID)

	_, covering = SelectForPosting([]Period{jan, q1, closed}, day("2024-05-01"))
	require.Zero(t, covering)
}

func TestSelectForPostingBreaksTiesByID(t *testing.T) {
	opened := day("2024-01-01")
	a := Period{ID: 4, StartDate: day("2024-01-01"), EndDate: day("2024-01-31"), Status: PeriodStatusOpen, OpenedAt: opened}
	b := Period{ID: 9, StartDate: day("2024-01-01"), EndDate: day("2024-01-31"), Status: PeriodStatusOpen, OpenedAt: opened}

	chosen, covering := SelectForPosting([]Period{b, a}, day("2024-01-31"))
	require.Equal(t, 2, covering)
	require.Equal(t, int64(9), chosen.ID)
}

func TestCoversIsInclusiveAndIgnoresTimeOfDay(t *testing.T) {
	p := Period{StartDate: day("2024-01-01"), EndDate: day("2024-01-31")}
	require.True(t, p.Covers(day("2024-01-01")))
	require.True(t, p.Covers(day("2024-01-31").Add(23*time.Hour)))
	require.False(t, p.Covers(day("2024-02-01")))
	require.False(t, p.Covers(day("2023-12-31")))
	require.True(t, p.Overlaps(day("2023-12-15"), day("2024-01-01")))
	require.False(t, p.Overlaps(day("2024-02-01"), day("2024-02-28")))
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(PeriodStatusOpen, PeriodStatusClosed))
	require.NoError(t, ValidateTransition(PeriodStatusClosed, PeriodStatusOpen))
	require.NoError(t, ValidateTransition(PeriodStatusClosed, PeriodStatusClosed))
	require.Error(t, ValidateTransition(PeriodStatusOpen, "LOCKED"))
}

func TestResolveRejectsUncoveredDateAndLogsOverlap(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	jan := Period{ID: 1, StartDate: day("2024-01-01"), EndDate: day("2024-01-31"), Status: PeriodStatusOpen, OpenedAt: day("2023-12-01")}
	q1 := Period{ID: 2, StartDate: day("2024-01-01"), EndDate: day("2024-03-31"), Status: PeriodStatusOpen, OpenedAt: day("2023-12-15")}

	p, err := Resolve([]Period{jan}, day("2024-01-10"), logger)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.ID)
	require.Empty(t, buf.String())

	p, err = Resolve([]Period{jan, q1}, day("2024-01-10").Add(15*time.Hour), logger)
	require.NoError(t, err)
	require.Equal(t, int64(2), p.ID)
	require.Contains(t, buf.String(), "overlapping open periods")
	require.Contains(t, buf.String(), "covering=2")

	_, err = Resolve([]Period{jan, q1}, day("2024-04-02"), nil)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
	var closed *shared.PeriodClosedError
	require.ErrorAs(t, err, &closed)
	require.True(t, closed.Date.Equal(day("2024-04-02")))
}
