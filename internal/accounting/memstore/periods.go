package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

type periodRepo struct {
	s *Store
}

func (r *periodRepo) List(ctx context.Context) ([]periods.Period, error) {
	st := r.s.snapshot()
	out := make([]periods.Period, 0, len(st.periods))
	for _, p := range st.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *periodRepo) Get(ctx context.Context, id int64) (periods.Period, error) {
	p, ok := r.s.snapshot().periods[id]
	if !ok {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return p, nil
}

func (r *periodRepo) OpenCovering(ctx context.Context, date time.Time) ([]periods.Period, error) {
	return r.s.snapshot().openCovering(date), nil
}

// openCovering orders candidates most recently opened first.
func (st *state) openCovering(date time.Time) []periods.Period {
	var out []periods.Period
	for _, p := range st.periods {
		if p.IsOpen() && p.Covers(date) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (st *state) nextOpenAfter(date time.Time) (periods.Period, error) {
	day := shared.Day(date)
	var (
		best  periods.Period
		found bool
	)
	for _, p := range st.periods {
		if !p.IsOpen() || !shared.Day(p.StartDate).After(day) {
			continue
		}
		switch {
		case !found, p.StartDate.Before(best.StartDate):
			best, found = p, true
		case p.StartDate.Equal(best.StartDate) &&
			(p.OpenedAt.After(best.OpenedAt) || (p.OpenedAt.Equal(best.OpenedAt) && p.ID > best.ID)):
			best = p
		}
	}
	if !found {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return best, nil
}

func (r *periodRepo) OpenOverlapping(ctx context.Context, start, end time.Time) ([]periods.Period, error) {
	all, _ := r.List(ctx)
	var out []periods.Period
	for _, p := range all {
		if p.IsOpen() && p.Overlaps(start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *periodRepo) Insert(ctx context.Context, p periods.Period) (periods.Period, error) {
	err := r.s.write(func(st *state) error {
		st.periodSeq++
		p.ID = st.periodSeq
		p.CreatedAt = r.s.now()
		p.UpdatedAt = p.CreatedAt
		st.periods[p.ID] = p
		return nil
	})
	return p, err
}

func (r *periodRepo) UpdateStatus(ctx context.Context, p periods.Period) (periods.Period, error) {
	err := r.s.write(func(st *state) error {
		current, ok := st.periods[p.ID]
		if !ok {
			return shared.ErrPeriodNotFound
		}
		current.Status = p.Status
		current.OpenedAt = p.OpenedAt
		current.OpenedBy = p.OpenedBy
		current.ClosedAt = p.ClosedAt
		current.ClosedBy = p.ClosedBy
		current.UpdatedAt = r.s.now()
		st.periods[p.ID] = current
		p = current
		return nil
	})
	if err != nil {
		return periods.Period{}, err
	}
	return p, nil
}
