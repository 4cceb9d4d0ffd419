package journals

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

type fakeLedger struct {
	periods  []periods.Period
	accounts map[int64]accounts.Account
	entries  map[int64]JournalEntry
	sources  map[SourceKey]int64
	number   int64
	nextLine int64
	failNext error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: map[int64]accounts.Account{
			1: {ID: 1, Code: "1101", Name: "Customer A", Type: accounts.AccountTypeAsset, IsActive: true},
			2: {ID: 2, Code: "4000", Name: "Revenue", Type: accounts.AccountTypeRevenue, IsActive: true},
			3: {ID: 3, Code: "1200", Name: "Bank", Type: accounts.AccountTypeAsset, IsActive: false},
		},
		periods: []periods.Period{
			{ID: 10, StartDate: date("2024-01-01"), EndDate: date("2024-01-31"), Status: periods.PeriodStatusOpen, OpenedAt: date("2023-12-01")},
		},
		entries: make(map[int64]JournalEntry),
		sources: make(map[SourceKey]int64),
	}
}

func (f *fakeLedger) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]JournalEntry, len(f.entries))
	for k, v := range f.entries {
		snapshot[k] = v
	}
	number := f.number
	if err := fn(ctx, f); err != nil {
		f.entries = snapshot
		f.number = number
		return err
	}
	return nil
}

func (f *fakeLedger) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return f.GetEntry(ctx, id)
}

func (f *fakeLedger) List(ctx context.Context, filter ListFilter) ([]JournalEntry, int, error) {
	var out []JournalEntry
	for id := int64(1); id <= f.number; id++ {
		if e, ok := f.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (f *fakeLedger) FindByReference(ctx context.Context, ref Reference) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range f.entries {
		if e.Reference == ref {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindBySource(ctx context.Context, key SourceKey) (JournalEntry, error) {
	id, ok := f.sources[key]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return f.GetEntry(ctx, id)
}

func (f *fakeLedger) OpenPeriodsCovering(ctx context.Context, d time.Time) ([]periods.Period, error) {
	var out []periods.Period
	for _, p := range f.periods {
		if p.IsOpen() && p.Covers(d) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLedger) NextOpenPeriodAfter(ctx context.Context, d time.Time) (periods.Period, error) {
	var best *periods.Period
	for i, p := range f.periods {
		if p.IsOpen() && p.StartDate.After(d) && (best == nil || p.StartDate.Before(best.StartDate)) {
			best = &f.periods[i]
		}
	}
	if best == nil {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return *best, nil
}

func (f *fakeLedger) AccountsByID(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	out := make(map[int64]accounts.Account)
	for _, id := range ids {
		if acc, ok := f.accounts[id]; ok {
			out[id] = acc
		}
	}
	return out, nil
}

func (f *fakeLedger) NextNumber(ctx context.Context) (int64, error) {
	f.number++
	return f.number, nil
}

func (f *fakeLedger) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return JournalEntry{}, err
	}
	e.ID = e.Number
	e.CreatedAt = e.PostedAt
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeLedger) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error) {
	out := make([]JournalLine, len(lines))
	for i, line := range lines {
		f.nextLine++
		line.ID = f.nextLine
		line.JournalID = entryID
		out[i] = line
	}
	e := f.entries[entryID]
	e.Lines = out
	f.entries[entryID] = e
	return out, nil
}

func (f *fakeLedger) LinkSource(ctx context.Context, key SourceKey, entryID int64) error {
	if _, ok := f.sources[key]; ok {
		return shared.ErrSourceAlreadyLinked
	}
	f.sources[key] = entryID
	return nil
}

func (f *fakeLedger) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return e, nil
}

func (f *fakeLedger) FindReversal(ctx context.Context, entryID int64) (int64, bool, error) {
	for _, e := range f.entries {
		if e.ReversalOf != nil && *e.ReversalOf == entryID {
			return e.ID, true, nil
		}
	}
	return 0, false, nil
}

type recordingAudit struct{ logs []shared.AuditLog }

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingMetrics struct {
	recorded map[string]int
	rejected map[string]int
}

func (m *countingMetrics) PostingRecorded(kind string)   { m.recorded[kind]++ }
func (m *countingMetrics) PostingRejected(reason string) { m.rejected[reason]++ }

func date(raw string) time.Time {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		panic(err)
	}
	return t
}

func amt(raw string) decimal.Decimal { return decimal.RequireFromString(raw) }

func newTestService(t *testing.T) (*Service, *fakeLedger, *recordingAudit, *countingMetrics, *bytes.Buffer) {
	t.Helper()
	fake := newFakeLedger()
	audit := &recordingAudit{}
	metrics := &countingMetrics{recorded: map[string]int{}, rejected: map[string]int{}}
	var logs bytes.Buffer
	svc := NewService(fake, audit, slog.New(slog.NewTextHandler(&logs, nil)))
	svc.WithMetrics(metrics)
	svc.WithNow(func() time.Time { return time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC) })
	return svc, fake, audit, metrics, &logs
}

func roomCharge(amount string) PostingInput {
	return PostingInput{
		EntryDate:   date("2024-01-05"),
		Description: "Room charge",
		Reference:   BookingRef{BookingID: 77},
		ActorID:     9,
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: amt(amount)},
			{AccountID: 2, Credit: amt(amount)},
		},
	}
}

func TestPostEntryPersistsBalancedEntry(t *testing.T) {
	svc, fake, audit, metrics, _ := newTestService(t)

	entry, err := svc.PostEntry(context.Background(), roomCharge("1000"))
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, entry.Status)
	require.Equal(t, int64(10), entry.PeriodID)
	require.Equal(t, "JV-000001", entry.VoucherNumber)
	require.Len(t, entry.Lines, 2)
	debit, credit := entry.Totals()
	require.True(t, debit.Equal(credit))
	require.Equal(t, BookingRef{BookingID: 77}, entry.Reference)

	require.Len(t, fake.entries, 1)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "journal.post", audit.logs[0].Action)
	require.Equal(t, int64(9), audit.logs[0].ActorID)
	require.Equal(t, 1, metrics.recorded["BOOKING"])
}

func TestPostEntryValidation(t *testing.T) {
	svc, fake, _, metrics, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]struct {
		mutate func(*PostingInput)
		kind   error
	}{
		"single line": {func(in *PostingInput) { in.Lines = in.Lines[:1] }, shared.ErrTooFewLines},
		"unbalanced":  {func(in *PostingInput) { in.Lines[1].Credit = amt("999.99") }, shared.ErrUnbalanced},
		"both sides":  {func(in *PostingInput) { in.Lines[0].Credit = amt("1") }, shared.ErrInvalidAmount},
		"zero line":   {func(in *PostingInput) { in.Lines[0].Debit = decimal.Zero }, shared.ErrInvalidAmount},
		"negative":    {func(in *PostingInput) { in.Lines[0].Debit = amt("-5") }, shared.ErrInvalidAmount},
		"sub cent":    {func(in *PostingInput) { in.Lines[0].Debit = amt("1000.005"); in.Lines[1].Credit = amt("1000.005") }, shared.ErrInvalidAmount},
		"no date":     {func(in *PostingInput) { in.EntryDate = time.Time{} }, shared.ErrMissingField},
		"no memo":     {func(in *PostingInput) { in.Description = " " }, shared.ErrMissingField},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := roomCharge("1000")
			tc.mutate(&in)
			_, err := svc.PostEntry(ctx, in)
			require.ErrorIs(t, err, shared.ErrValidation)
			require.ErrorIs(t, err, tc.kind)
		})
	}
	require.Empty(t, fake.entries)
	require.Equal(t, len(cases), metrics.rejected["validation"])
}

func TestPostEntryUnbalancedReportsAmounts(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	in := roomCharge("100.10")
	in.Lines[1].Credit = amt("100.01")

	_, err := svc.PostEntry(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	require.Contains(t, err.Error(), "100.1")
	require.Contains(t, err.Error(), "100.01")
}

func TestPostEntryRejectsClosedDate(t *testing.T) {
	svc, fake, _, metrics, _ := newTestService(t)
	in := roomCharge("50")
	in.EntryDate = date("2024-02-02")

	_, err := svc.PostEntry(context.Background(), in)
	var closed *shared.PeriodClosedError
	require.True(t, errors.As(err, &closed))
	require.Equal(t, date("2024-02-02"), closed.Date)
	require.Empty(t, fake.entries)
	require.Equal(t, 1, metrics.rejected["period_closed"])
}

func TestPostEntryInsideOpenPeriodDespiteClosedOverlap(t *testing.T) {
	svc, fake, _, _, _ := newTestService(t)
	fake.periods = append(fake.periods, periods.Period{
		ID: 11, StartDate: date("2024-01-01"), EndDate: date("2024-12-31"), Status: periods.PeriodStatusClosed, OpenedAt: date("2024-01-10"),
	})

	entry, err := svc.PostEntry(context.Background(), roomCharge("10"))
	require.NoError(t, err)
	require.Equal(t, int64(10), entry.PeriodID)
}

func TestPostEntryPicksMostRecentlyOpenedPeriod(t *testing.T) {
	svc, fake, _, _, logs := newTestService(t)
	fake.periods = append(fake.periods, periods.Period{
		ID: 12, StartDate: date("2024-01-01"), EndDate: date("2024-03-31"), Status: periods.PeriodStatusOpen, OpenedAt: date("2024-01-02"),
	})

	entry, err := svc.PostEntry(context.Background(), roomCharge("10"))
	require.NoError(t, err)
	require.Equal(t, int64(12), entry.PeriodID)
	require.Contains(t, logs.String(), "overlapping open periods")
}

func TestPostEntryRejectsUnknownAndInactiveAccounts(t *testing.T) {
	svc, fake, _, _, _ := newTestService(t)
	ctx := context.Background()

	in := roomCharge("10")
	in.Lines[0].AccountID = 404
	_, err := svc.PostEntry(ctx, in)
	require.ErrorIs(t, err, shared.ErrReference)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
	require.Contains(t, err.Error(), "404")

	in = roomCharge("10")
	in.Lines[0].AccountID = 3
	_, err = svc.PostEntry(ctx, in)
	require.ErrorIs(t, err, shared.ErrAccountInactive)
	require.Contains(t, err.Error(), "1200")
	require.Empty(t, fake.entries)
}

func TestPostEntryIsAllOrNothing(t *testing.T) {
	svc, fake, audit, _, _ := newTestService(t)
	fake.failNext = errors.New("disk full")

	_, err := svc.PostEntry(context.Background(), roomCharge("10"))
	require.Error(t, err)
	require.Empty(t, fake.entries)
	require.Empty(t, audit.logs)
}

func TestPostEntryRejectsReplayedSource(t *testing.T) {
	svc, fake, _, _, _ := newTestService(t)
	ctx := context.Background()
	key := NewSourceKey("INVOICE", 501)

	in := roomCharge("10")
	in.Source = &key
	_, err := svc.PostEntry(ctx, in)
	require.NoError(t, err)

	_, err = svc.PostEntry(ctx, in)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
	require.Len(t, fake.entries, 1)
	require.Equal(t, key, NewSourceKey("INVOICE", 501))
}

func TestReverseEntryMirrorsLines(t *testing.T) {
	svc, _, audit, _, _ := newTestService(t)
	ctx := context.Background()

	original, err := svc.PostEntry(ctx, roomCharge("250.50"))
	require.NoError(t, err)

	reversal, err := svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID, ActorID: 4})
	require.NoError(t, err)
	require.Equal(t, EntryRef{EntryID: original.ID}, reversal.Reference)
	require.Equal(t, original.ID, *reversal.ReversalOf)
	require.Equal(t, original.EntryDate, reversal.EntryDate)
	require.Equal(t, "Reversal of JV-000001", reversal.Description)
	require.Len(t, reversal.Lines, 2)
	require.True(t, reversal.Lines[0].Credit.Equal(original.Lines[0].Debit))
	require.True(t, reversal.Lines[1].Debit.Equal(original.Lines[1].Credit))
	require.Equal(t, "journal.reverse", audit.logs[len(audit.logs)-1].Action)

	_, err = svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID, ActorID: 4})
	require.ErrorIs(t, err, shared.ErrAlreadyReversed)
}

func TestReverseEntryRollsForwardFromClosedPeriod(t *testing.T) {
	svc, fake, _, _, _ := newTestService(t)
	ctx := context.Background()

	original, err := svc.PostEntry(ctx, roomCharge("80"))
	require.NoError(t, err)

	fake.periods[0].Status = periods.PeriodStatusClosed
	_, err = svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID})
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	fake.periods = append(fake.periods, periods.Period{
		ID: 20, StartDate: date("2024-02-01"), EndDate: date("2024-02-29"), Status: periods.PeriodStatusOpen, OpenedAt: date("2024-01-25"),
	})
	reversal, err := svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID})
	require.NoError(t, err)
	require.Equal(t, date("2024-02-01"), reversal.EntryDate)
	require.Equal(t, int64(20), reversal.PeriodID)

	target := date("2024-01-10")
	fake.entries = map[int64]JournalEntry{original.ID: fake.entries[original.ID]}
	_, err = svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID, TargetDate: &target})
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestReverseEntryAllowsDeactivatedAccounts(t *testing.T) {
	svc, fake, _, _, _ := newTestService(t)
	ctx := context.Background()

	original, err := svc.PostEntry(ctx, roomCharge("15"))
	require.NoError(t, err)

	acc := fake.accounts[1]
	acc.IsActive = false
	fake.accounts[1] = acc

	_, err = svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID})
	require.NoError(t, err)
}

func TestReverseEntryUnknown(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.ReverseEntry(context.Background(), ReverseInput{EntryID: 99})
	require.ErrorIs(t, err, shared.ErrJournalNotFound)

	_, err = svc.ReverseEntry(context.Background(), ReverseInput{})
	require.ErrorIs(t, err, shared.ErrMissingField)
}

func TestRejectionReason(t *testing.T) {
	require.Equal(t, "period_closed", RejectionReason(&shared.PeriodClosedError{}))
	require.Equal(t, "validation", RejectionReason(shared.Invalid(shared.ErrUnbalanced, "lines", "x")))
	require.Equal(t, "reference", RejectionReason(shared.Unresolved(shared.ErrAccountNotFound, "account", 1)))
	require.Equal(t, "error", RejectionReason(errors.New("boom")))
}
