package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// Ledger returns the snapshot store the balance engine reads from.
func (s *Store) Ledger() ledger.Store { return &ledgerStore{s: s} }

type ledgerStore struct {
	s *Store
}

func (l *ledgerStore) ReadSnapshot(ctx context.Context, fn func(context.Context, ledger.Reader) error) error {
	return fn(ctx, &ledgerReader{st: l.s.snapshot()})
}

type ledgerReader struct {
	st *state
}

func (r *ledgerReader) Accounts(ctx context.Context) ([]accounts.Account, error) {
	return sortedAccounts(r.st), nil
}

// posted visits every posted line whose account is in ids; a nil set matches all.
func (r *ledgerReader) posted(ids []int64, visit func(journals.JournalEntry, journals.JournalLine)) {
	var set map[int64]bool
	if ids != nil {
		set = make(map[int64]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
	}
	for _, e := range r.st.entries {
		if e.Status != journals.JournalStatusPosted {
			continue
		}
		for _, line := range e.Lines {
			if set == nil || set[line.AccountID] {
				visit(e, line)
			}
		}
	}
}

func within(d, start, end time.Time) bool {
	d = shared.Day(d)
	return !d.Before(shared.Day(start)) && !d.After(shared.Day(end))
}

func (r *ledgerReader) SumBefore(ctx context.Context, accountIDs []int64, before time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	cutoff := shared.Day(before)
	r.posted(nonNil(accountIDs), func(e journals.JournalEntry, line journals.JournalLine) {
		if shared.Day(e.EntryDate).Before(cutoff) {
			sum = sum.Add(line.Signed())
		}
	})
	return sum, nil
}

func (r *ledgerReader) SumBetween(ctx context.Context, accountIDs []int64, start, end time.Time) (ledger.Movement, error) {
	m := ledger.Movement{Debit: decimal.Zero, Credit: decimal.Zero}
	r.posted(nonNil(accountIDs), func(e journals.JournalEntry, line journals.JournalLine) {
		if within(e.EntryDate, start, end) {
			m = m.Add(ledger.Movement{Debit: line.Debit, Credit: line.Credit})
		}
	})
	return m, nil
}

func (r *ledgerReader) LinesBetween(ctx context.Context, accountIDs []int64, start, end time.Time) ([]ledger.LineDetail, error) {
	var out []ledger.LineDetail
	r.posted(nonNil(accountIDs), func(e journals.JournalEntry, line journals.JournalLine) {
		if !within(e.EntryDate, start, end) {
			return
		}
		d := ledger.LineDetail{
			LineID:        line.ID,
			EntryID:       e.ID,
			EntryNumber:   e.Number,
			EntryDate:     shared.Day(e.EntryDate),
			VoucherNumber: e.VoucherNumber,
			Description:   e.Description,
			AccountID:     line.AccountID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			CreatedAt:     e.CreatedAt,
		}
		if e.Reference != nil {
			d.ReferenceType = string(e.Reference.Kind())
			d.ReferenceID = e.Reference.RefID()
		}
		out = append(out, d)
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.Before(b.EntryDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.LineID < b.LineID
	})
	return out, nil
}

func (r *ledgerReader) BalancesBefore(ctx context.Context, before time.Time) (map[int64]decimal.Decimal, error) {
	out := map[int64]decimal.Decimal{}
	cutoff := shared.Day(before)
	r.posted(nil, func(e journals.JournalEntry, line journals.JournalLine) {
		if shared.Day(e.EntryDate).Before(cutoff) {
			out[line.AccountID] = out[line.AccountID].Add(line.Signed())
		}
	})
	return out, nil
}

func (r *ledgerReader) MovementsBetween(ctx context.Context, start, end time.Time) (map[int64]ledger.Movement, error) {
	out := map[int64]ledger.Movement{}
	r.posted(nil, func(e journals.JournalEntry, line journals.JournalLine) {
		if within(e.EntryDate, start, end) {
			out[line.AccountID] = out[line.AccountID].Add(ledger.Movement{Debit: line.Debit, Credit: line.Credit})
		}
	})
	return out, nil
}

// nonNil keeps an empty id list from matching every account.
func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
