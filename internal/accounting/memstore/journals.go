package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

type journalRepo struct {
	s *Store
}

func (r *journalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	return r.s.write(func(st *state) error {
		return fn(ctx, &journalTx{st: st, now: r.s.now})
	})
}

func (r *journalRepo) Get(ctx context.Context, id int64) (journals.JournalEntry, error) {
	return r.s.snapshot().entry(id)
}

func (st *state) entry(id int64) (journals.JournalEntry, error) {
	e, ok := st.entries[id]
	if !ok {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	e.Lines = append([]journals.JournalLine(nil), e.Lines...)
	return e, nil
}

func (r *journalRepo) List(ctx context.Context, filter journals.ListFilter) ([]journals.JournalEntry, int, error) {
	st := r.s.snapshot()
	var matched []journals.JournalEntry
	for _, e := range st.entries {
		if filter.From != nil && e.EntryDate.Before(shared.Day(*filter.From)) {
			continue
		}
		if filter.To != nil && e.EntryDate.After(shared.Day(*filter.To)) {
			continue
		}
		if filter.AccountID > 0 && !touches(e, filter.AccountID) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].EntryDate.Equal(matched[j].EntryDate) {
			return matched[i].EntryDate.After(matched[j].EntryDate)
		}
		return matched[i].Number > matched[j].Number
	})
	total := len(matched)
	page, perPage := shared.NormalizePage(filter.Page, filter.PerPage)
	start := shared.Offset(page, perPage)
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func touches(e journals.JournalEntry, accountID int64) bool {
	for _, line := range e.Lines {
		if line.AccountID == accountID {
			return true
		}
	}
	return false
}

func (r *journalRepo) FindByReference(ctx context.Context, ref journals.Reference) ([]journals.JournalEntry, error) {
	if ref == nil {
		return nil, nil
	}
	var out []journals.JournalEntry
	for _, e := range r.s.snapshot().entries {
		if e.Status != journals.JournalStatusPosted || e.Reference == nil {
			continue
		}
		if e.Reference.Kind() == ref.Kind() && e.Reference.RefID() == ref.RefID() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *journalRepo) FindBySource(ctx context.Context, key journals.SourceKey) (journals.JournalEntry, error) {
	st := r.s.snapshot()
	id, ok := st.sources[key]
	if !ok {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	return st.entry(id)
}

type journalTx struct {
	st  *state
	now func() time.Time
}

func (t *journalTx) OpenPeriodsCovering(ctx context.Context, date time.Time) ([]periods.Period, error) {
	return t.st.openCovering(date), nil
}

func (t *journalTx) NextOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error) {
	return t.st.nextOpenAfter(date)
}

func (t *journalTx) AccountsByID(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	out := make(map[int64]accounts.Account, len(ids))
	for _, id := range ids {
		if acc, ok := t.st.accounts[id]; ok {
			out[id] = acc
		}
	}
	return out, nil
}

func (t *journalTx) NextNumber(ctx context.Context) (int64, error) {
	t.st.numberSeq++
	return t.st.numberSeq, nil
}

func (t *journalTx) InsertEntry(ctx context.Context, e journals.JournalEntry) (journals.JournalEntry, error) {
	for _, existing := range t.st.entries {
		if e.ReversalOf != nil && existing.ReversalOf != nil && *existing.ReversalOf == *e.ReversalOf {
			return journals.JournalEntry{}, shared.ErrAlreadyReversed
		}
		if existing.VoucherNumber == e.VoucherNumber {
			return journals.JournalEntry{}, shared.ErrDuplicateVoucher
		}
	}
	t.st.entrySeq++
	e.ID = t.st.entrySeq
	e.EntryDate = shared.Day(e.EntryDate)
	e.CreatedAt = t.now()
	e.Source = nil
	e.Lines = nil
	t.st.entries[e.ID] = e
	return e, nil
}

func (t *journalTx) InsertLines(ctx context.Context, entryID int64, lines []journals.JournalLine) ([]journals.JournalLine, error) {
	e, ok := t.st.entries[entryID]
	if !ok {
		return nil, shared.ErrJournalNotFound
	}
	out := make([]journals.JournalLine, 0, len(lines))
	for _, line := range lines {
		t.st.lineSeq++
		line.ID = t.st.lineSeq
		line.JournalID = entryID
		line.CreatedAt = e.CreatedAt
		out = append(out, line)
	}
	e.Lines = append(append([]journals.JournalLine(nil), e.Lines...), out...)
	t.st.entries[entryID] = e
	return out, nil
}

func (t *journalTx) LinkSource(ctx context.Context, key journals.SourceKey, entryID int64) error {
	if _, ok := t.st.sources[key]; ok {
		return shared.ErrSourceAlreadyLinked
	}
	e, ok := t.st.entries[entryID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	t.st.sources[key] = entryID
	src := key
	e.Source = &src
	t.st.entries[entryID] = e
	return nil
}

func (t *journalTx) GetEntry(ctx context.Context, id int64) (journals.JournalEntry, error) {
	return t.st.entry(id)
}

func (t *journalTx) FindReversal(ctx context.Context, entryID int64) (int64, bool, error) {
	for _, e := range t.st.entries {
		if e.ReversalOf != nil && *e.ReversalOf == entryID {
			return e.ID, true, nil
		}
	}
	return 0, false, nil
}
