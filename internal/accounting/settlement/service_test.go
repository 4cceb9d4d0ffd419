package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

type harness struct {
	store   *memstore.Store
	service *Service
	ids     map[string]int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	h := &harness{store: store, ids: map[string]int64{}}
	for _, acc := range []accounts.Account{
		{Code: "1101", Name: "Bank BCA", Type: accounts.AccountTypeAsset, IsActive: true},
		{Code: "1300", Name: "Platform Receivable", Type: accounts.AccountTypeAsset, IsActive: true},
		{Code: "6100", Name: "Commission Expense", Type: accounts.AccountTypeExpense, IsActive: true},
	} {
		created, err := store.Accounts().Insert(ctx, acc)
		require.NoError(t, err)
		h.ids[acc.Code] = created.ID
	}
	_, err := store.Mappings().Upsert(ctx, mappings.AccountMapping{
		Module: mappings.ModuleSettlement, Key: mappings.KeyCommissionExpense, AccountID: h.ids["6100"],
	})
	require.NoError(t, err)
	_, err = store.Periods().Insert(ctx, periods.Period{
		Name: "2024", StartDate: date("2024-01-01"), EndDate: date("2024-12-31"),
		Status: periods.PeriodStatusOpen, OpenedAt: time.Now(),
	})
	require.NoError(t, err)
	posting := journals.NewService(store.Journals(), store, nil)
	h.service = NewService(posting, mappings.NewService(store.Mappings(), store, nil), nil)
	return h
}

func date(raw string) time.Time {
	d, err := shared.ParseDate("date", raw)
	if err != nil {
		panic(err)
	}
	return d
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSettlementPostsCompoundEntry(t *testing.T) {
	h := newHarness(t)
	entry, err := h.service.SettlePlatformBalance(context.Background(), Input{
		PlatformAccountID:   h.ids["1300"],
		TargetBankAccountID: h.ids["1101"],
		Gross:               amount("500"),
		Commission:          amount("50"),
		Date:                date("2024-03-15"),
		SettlementID:        31,
	})
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)

	byAccount := map[int64]journals.JournalLine{}
	for _, line := range entry.Lines {
		byAccount[line.AccountID] = line
	}
	require.True(t, byAccount[h.ids["1101"]].Debit.Equal(amount("450")))
	require.True(t, byAccount[h.ids["6100"]].Debit.Equal(amount("50")))
	require.True(t, byAccount[h.ids["1300"]].Credit.Equal(amount("500")))
	debit, credit := entry.Totals()
	require.True(t, debit.Equal(amount("500")))
	require.True(t, credit.Equal(amount("500")))
	require.Equal(t, journals.SettlementRef{SettlementID: 31}, entry.Reference)
}

func TestSettlementRejectsCommissionAboveGross(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.SettlePlatformBalance(context.Background(), Input{
		PlatformAccountID:   h.ids["1300"],
		TargetBankAccountID: h.ids["1101"],
		Gross:               amount("500"),
		Commission:          amount("600"),
		Date:                date("2024-03-15"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	require.Contains(t, err.Error(), "600")
}

func TestSettlementValidation(t *testing.T) {
	h := newHarness(t)
	base := Input{
		PlatformAccountID:   h.ids["1300"],
		TargetBankAccountID: h.ids["1101"],
		Gross:               amount("100"),
		Date:                date("2024-03-15"),
	}
	cases := map[string]func(in *Input){
		"zero gross":          func(in *Input) { in.Gross = decimal.Zero },
		"negative commission": func(in *Input) { in.Commission = amount("-1") },
		"same accounts":       func(in *Input) { in.TargetBankAccountID = in.PlatformAccountID },
		"missing date":        func(in *Input) { in.Date = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := h.service.SettlePlatformBalance(context.Background(), in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestSettlementOmitsZeroLegs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	noCommission, err := h.service.SettlePlatformBalance(ctx, Input{
		PlatformAccountID: h.ids["1300"], TargetBankAccountID: h.ids["1101"],
		Gross: amount("80"), Date: date("2024-04-01"),
	})
	require.NoError(t, err)
	require.Len(t, noCommission.Lines, 2)

	allCommission, err := h.service.SettlePlatformBalance(ctx, Input{
		PlatformAccountID: h.ids["1300"], TargetBankAccountID: h.ids["1101"],
		Gross: amount("20"), Commission: amount("20"), Date: date("2024-04-02"),
	})
	require.NoError(t, err)
	require.Len(t, allCommission.Lines, 2)
	require.Equal(t, h.ids["6100"], allCommission.Lines[0].AccountID)
}

func TestSettlementGoesThroughPeriodGuard(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.SettlePlatformBalance(context.Background(), Input{
		PlatformAccountID: h.ids["1300"], TargetBankAccountID: h.ids["1101"],
		Gross: amount("10"), Date: date("2025-01-01"),
	})
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestSettlementReplayReturnsExistingEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := Input{
		PlatformAccountID: h.ids["1300"], TargetBankAccountID: h.ids["1101"],
		Gross: amount("300"), Commission: amount("30"), Date: date("2024-05-01"), SettlementID: 9,
	}
	first, err := h.service.SettlePlatformBalance(ctx, in)
	require.NoError(t, err)
	second, err := h.service.SettlePlatformBalance(ctx, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, total, err := h.store.Journals().List(ctx, journals.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestSettlementRequiresCommissionMapping(t *testing.T) {
	store := memstore.New()
	svc := NewService(journals.NewService(store.Journals(), nil, nil), mappings.NewService(store.Mappings(), nil, nil), nil)
	_, err := svc.SettlePlatformBalance(context.Background(), Input{
		PlatformAccountID: 1, TargetBankAccountID: 2,
		Gross: amount("10"), Commission: amount("1"), Date: date("2024-01-01"),
	})
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
}
