package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/subledger"
)

type books struct {
	store     *memstore.Store
	journals  *journals.Service
	customers *subledger.Service
	generator *Generator
	ids       map[string]int64
}

func day(raw string) time.Time {
	t, err := shared.ParseDate("date", raw)
	if err != nil {
		panic(err)
	}
	return t
}

func newBooks(t *testing.T) *books {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	b := &books{
		store:     store,
		journals:  journals.NewService(store.Journals(), store, nil),
		customers: subledger.NewService(store.Subledger(), store, nil),
		ids:       map[string]int64{},
	}
	b.generator = NewGenerator(ledger.NewEngine(store.Ledger()), b.customers, nil)
	add := func(code, name string, typ accounts.AccountType, parent string) {
		acc := accounts.Account{Code: code, Name: name, Type: typ, IsActive: true}
		if parent != "" {
			pid := b.ids[parent]
			acc.ParentID = &pid
		}
		created, err := store.Accounts().Insert(ctx, acc)
		require.NoError(t, err)
		b.ids[code] = created.ID
	}
	add("1000", "Cash", accounts.AccountTypeAsset, "")
	add("1200", "Accounts Receivable", accounts.AccountTypeAsset, "")
	add("1300", "Platform Receivable", accounts.AccountTypeAsset, "")
	add("2100", "Tax Payable", accounts.AccountTypeLiability, "")
	add("4000", "Room Revenue", accounts.AccountTypeRevenue, "")
	add("4100", "Food Revenue", accounts.AccountTypeRevenue, "4000")
	_, err := store.Mappings().Upsert(ctx, mappings.AccountMapping{
		Module: mappings.ModuleSubledger, Key: mappings.KeyReceivablesControl, AccountID: b.ids["1200"],
	})
	require.NoError(t, err)
	_, err = store.Periods().Insert(ctx, periods.Period{
		Name: "FY2025", StartDate: day("2025-01-01"), EndDate: day("2025-12-31"),
		Status: periods.PeriodStatusOpen, OpenedAt: time.Now(),
	})
	require.NoError(t, err)
	return b
}

func (b *books) post(t *testing.T, date, debit, credit, amount string, ref journals.Reference) journals.JournalEntry {
	t.Helper()
	entry, err := b.journals.PostEntry(context.Background(), journals.PostingInput{
		EntryDate:   day(date),
		Description: "posting " + date,
		Reference:   ref,
		Lines: []journals.PostingLineInput{
			{AccountID: b.ids[debit], Debit: dec(amount)},
			{AccountID: b.ids[credit], Credit: dec(amount)},
		},
	})
	require.NoError(t, err)
	return entry
}

func TestStatementRunningBalance(t *testing.T) {
	b := newBooks(t)
	b.post(t, "2025-01-15", "1000", "4000", "500.00", nil)
	b.post(t, "2025-02-01", "1000", "4000", "120.00", journals.BookingRef{BookingID: 77})
	b.post(t, "2025-02-10", "2100", "1000", "20.00", nil)
	b.post(t, "2025-03-01", "1000", "4000", "999.00", nil)

	st, err := b.generator.GenerateStatement(context.Background(), b.ids["1000"], day("2025-02-01"), day("2025-02-28"), false)
	require.NoError(t, err)
	require.True(t, st.Opening.Equal(dec("500")), st.Opening.String())
	require.Len(t, st.Lines, 2)
	require.True(t, st.Lines[0].Balance.Equal(dec("620")))
	require.True(t, st.Lines[1].Balance.Equal(dec("600")))
	require.Equal(t, "/bookings/77", st.Lines[0].Reference.Path)
	require.Nil(t, st.Lines[1].Reference)
	require.Empty(t, st.Lines[0].AccountCode)
	require.True(t, st.TotalDebit.Equal(dec("120")))
	require.True(t, st.TotalCredit.Equal(dec("20")))
	require.True(t, st.Closing.Equal(dec("600")))
	require.True(t, st.Closing.Equal(st.Lines[len(st.Lines)-1].Balance))
}

func TestStatementClosingIsNextOpening(t *testing.T) {
	b := newBooks(t)
	b.post(t, "2025-01-31", "1000", "4000", "10.00", nil)
	b.post(t, "2025-02-01", "1000", "4000", "20.00", nil)
	b.post(t, "2025-02-28", "4000", "1000", "5.00", nil)
	b.post(t, "2025-03-01", "1000", "4000", "40.00", nil)

	ctx := context.Background()
	feb, err := b.generator.GenerateStatement(ctx, b.ids["1000"], day("2025-02-01"), day("2025-02-28"), false)
	require.NoError(t, err)
	mar, err := b.generator.GenerateStatement(ctx, b.ids["1000"], day("2025-03-01"), day("2025-03-31"), false)
	require.NoError(t, err)
	require.True(t, feb.Closing.Equal(mar.Opening), "%s != %s", feb.Closing, mar.Opening)
}

func TestRecursiveStatementNamesOriginAccount(t *testing.T) {
	b := newBooks(t)
	b.post(t, "2025-04-01", "1000", "4000", "100.00", nil)
	b.post(t, "2025-04-02", "1000", "4100", "30.00", nil)

	st, err := b.generator.GenerateStatement(context.Background(), b.ids["4000"], day("2025-04-01"), day("2025-04-30"), true)
	require.NoError(t, err)
	require.Len(t, st.Lines, 2)
	require.Equal(t, "4000", st.Lines[0].AccountCode)
	require.Equal(t, "4100", st.Lines[1].AccountCode)
	require.Equal(t, "Food Revenue", st.Lines[1].AccountName)
	require.True(t, st.Closing.Equal(dec("-130")))
}

func TestStatementIsRepeatable(t *testing.T) {
	b := newBooks(t)
	b.post(t, "2025-05-01", "1000", "4000", "10.00", nil)
	ctx := context.Background()
	first, err := b.generator.GenerateStatement(ctx, b.ids["1000"], day("2025-01-01"), day("2025-12-31"), true)
	require.NoError(t, err)
	second, err := b.generator.GenerateStatement(ctx, b.ids["1000"], day("2025-01-01"), day("2025-12-31"), true)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestStatementErrors(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()

	_, err := b.generator.GenerateStatement(ctx, 404, day("2025-01-01"), day("2025-01-31"), false)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)

	_, err = b.generator.GenerateStatement(ctx, b.ids["1000"], day("2025-02-01"), day("2025-01-01"), false)
	require.ErrorIs(t, err, shared.ErrInvalidDateRange)

	_, err = b.generator.CustomerStatement(ctx, 12, day("2025-01-01"), day("2025-01-31"))
	require.ErrorIs(t, err, shared.ErrCustomerNotLinked)
}

func TestCustomerStatementUsesLinkedAccount(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	ca, err := b.customers.OpenCustomerAccount(ctx, subledger.OpenInput{CustomerID: 12, Name: "Guest 12"})
	require.NoError(t, err)
	b.ids["guest"] = ca.Account.ID
	b.post(t, "2025-06-01", "guest", "4000", "250.00", journals.InvoiceRef{InvoiceID: 3})
	b.post(t, "2025-06-05", "1000", "guest", "100.00", journals.PaymentRef{PaymentID: 8})

	st, err := b.generator.CustomerStatement(ctx, 12, day("2025-06-01"), day("2025-06-30"))
	require.NoError(t, err)
	require.Equal(t, int64(12), st.CustomerID)
	require.Equal(t, ca.Account.ID, st.Account.ID)
	require.True(t, st.Closing.Equal(dec("150")))
	require.Equal(t, "/payments/8", st.Lines[1].Reference.Path)

	ar, err := b.generator.GenerateStatement(ctx, b.ids["1200"], day("2025-06-01"), day("2025-06-30"), true)
	require.NoError(t, err)
	require.True(t, ar.Closing.Equal(dec("150")))
}

func TestTrialBalanceBalancesAndFlagsInactive(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	b.post(t, "2025-01-10", "1000", "4000", "300.00", nil)
	b.post(t, "2025-02-10", "1300", "4100", "45.50", nil)
	b.post(t, "2025-02-11", "1000", "1300", "45.50", nil)

	platform, err := b.store.Accounts().Get(ctx, b.ids["1300"])
	require.NoError(t, err)
	platform.IsActive = false
	_, err = b.store.Accounts().Update(ctx, platform)
	require.NoError(t, err)
	tax, err := b.store.Accounts().Get(ctx, b.ids["2100"])
	require.NoError(t, err)
	tax.IsActive = false
	_, err = b.store.Accounts().Update(ctx, tax)
	require.NoError(t, err)

	tb, err := b.generator.TrialBalance(ctx, day("2025-02-01"), day("2025-02-28"))
	require.NoError(t, err)
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
	require.True(t, tb.TotalOpening.IsZero())
	require.True(t, tb.TotalClosing.IsZero())

	byCode := map[string]TrialBalanceRow{}
	for _, r := range tb.Rows {
		byCode[r.Code] = r
	}
	require.NotContains(t, byCode, "2100")
	require.True(t, byCode["1300"].Inactive)
	require.True(t, byCode["1000"].Opening.Equal(dec("300")))
	require.True(t, byCode["1000"].Closing.Equal(dec("345.5")))
	require.True(t, byCode["4100"].Net.Equal(dec("-45.5")))
}

func TestProfitAndLossAndBalanceSheetFromLedger(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	b.post(t, "2025-01-10", "1000", "4000", "300.00", nil)
	b.post(t, "2025-01-11", "1000", "2100", "30.00", nil)

	pl, err := b.generator.ProfitAndLoss(ctx, day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	require.True(t, pl.NetIncome.Equal(dec("300")))

	bs, err := b.generator.BalanceSheet(ctx, day("2025-01-31"))
	require.NoError(t, err)
	require.True(t, bs.Assets.Total.Equal(dec("330")))
	require.True(t, bs.Liabilities.Total.Equal(dec("30")))
	require.True(t, bs.CurrentEarnings.Equal(dec("300")))
	require.True(t, bs.Balanced)
}

type skewedReader struct {
	accounts  []accounts.Account
	openings  map[int64]decimal.Decimal
	movements map[int64]ledger.Movement
}

func (r *skewedReader) Accounts(ctx context.Context) ([]accounts.Account, error) {
	return r.accounts, nil
}

func (r *skewedReader) SumBefore(ctx context.Context, ids []int64, before time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (r *skewedReader) SumBetween(ctx context.Context, ids []int64, start, end time.Time) (ledger.Movement, error) {
	return ledger.Movement{}, nil
}

func (r *skewedReader) LinesBetween(ctx context.Context, ids []int64, start, end time.Time) ([]ledger.LineDetail, error) {
	return nil, nil
}

func (r *skewedReader) BalancesBefore(ctx context.Context, before time.Time) (map[int64]decimal.Decimal, error) {
	return r.openings, nil
}

func (r *skewedReader) MovementsBetween(ctx context.Context, start, end time.Time) (map[int64]ledger.Movement, error) {
	return r.movements, nil
}

type skewedStore struct {
	reader *skewedReader
}

func (s skewedStore) ReadSnapshot(ctx context.Context, fn func(context.Context, ledger.Reader) error) error {
	return fn(ctx, s.reader)
}

func TestTrialBalanceReportsIntegrityError(t *testing.T) {
	accs := []accounts.Account{
		{ID: 1, Code: "1000", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: 2, Code: "4000", Type: accounts.AccountTypeRevenue, IsActive: true},
	}
	reader := &skewedReader{
		accounts:  accs,
		openings:  map[int64]decimal.Decimal{},
		movements: map[int64]ledger.Movement{1: {Debit: dec("100.00"), Credit: decimal.Zero}, 2: {Debit: decimal.Zero, Credit: dec("99.99")}},
	}
	gen := NewGenerator(ledger.NewEngine(skewedStore{reader: reader}), nil, nil)

	_, err := gen.TrialBalance(context.Background(), day("2025-01-01"), day("2025-01-31"))
	require.ErrorIs(t, err, shared.ErrIntegrity)
	var integrity *shared.IntegrityError
	require.ErrorAs(t, err, &integrity)
	require.True(t, integrity.Debit.Equal(dec("100")))
	require.True(t, integrity.Credit.Equal(dec("99.99")))

	reader.movements = map[int64]ledger.Movement{}
	reader.openings = map[int64]decimal.Decimal{1: dec("10")}
	_, err = gen.TrialBalance(context.Background(), day("2025-01-01"), day("2025-01-31"))
	require.ErrorIs(t, err, shared.ErrIntegrity)
}

func TestTrialBalanceIgnoresCacheForIntegrity(t *testing.T) {
	accs := []accounts.Account{
		{ID: 1, Code: "1000", Type: accounts.AccountTypeAsset, IsActive: true},
		{ID: 2, Code: "4000", Type: accounts.AccountTypeRevenue, IsActive: true},
	}
	reader := &skewedReader{
		accounts:  accs,
		openings:  map[int64]decimal.Decimal{},
		movements: map[int64]ledger.Movement{1: {Debit: dec("100.00"), Credit: decimal.Zero}, 2: {Debit: decimal.Zero, Credit: dec("100.00")}},
	}
	gen := NewGenerator(ledger.NewEngine(skewedStore{reader: reader}), nil, nil)
	cache, _ := newTestCache(t)
	gen.WithCache(cache)
	ctx := context.Background()

	tb, err := gen.TrialBalance(ctx, day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	require.True(t, tb.TotalDebit.Equal(dec("100")))
	_, err = gen.ProfitAndLoss(ctx, day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)

	// Rows change without a journal write, so the cache version stays put.
	reader.movements[2] = ledger.Movement{Debit: decimal.Zero, Credit: dec("99.99")}

	_, err = gen.TrialBalance(ctx, day("2025-01-01"), day("2025-01-31"))
	require.ErrorIs(t, err, shared.ErrIntegrity)
	var integrity *shared.IntegrityError
	require.ErrorAs(t, err, &integrity)
	require.True(t, integrity.Credit.Equal(dec("99.99")))
}
