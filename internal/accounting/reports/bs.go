package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// Liabilities and equity are shown credit-positive; unclosed revenue and
// expense balances appear as current earnings inside equity.
type BalanceSheet struct {
	AsOf                      time.Time           `json:"as_of"`
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	CurrentEarnings           decimal.Decimal     `json:"current_earnings"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	Balanced                  bool                `json:"balanced"`
}

// BuildBalanceSheet aggregates closing balances into assets, liabilities, and equity sections.
func BuildBalanceSheet(rows []TrialBalanceRow) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}
	earnings := decimal.Zero

	for _, r := range rows {
		row := BalanceSheetAccount{AccountID: r.AccountID, Code: r.Code, Name: r.Name, Balance: r.Closing}
		switch r.Type {
		case accounts.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case accounts.AccountTypeLiability:
			row.Balance = r.Closing.Neg()
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case accounts.AccountTypeEquity:
			row.Balance = r.Closing.Neg()
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case accounts.AccountTypeRevenue, accounts.AccountTypeExpense:
			earnings = earnings.Sub(r.Closing)
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })

	equity.Total = equity.Total.Add(earnings)
	total := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		CurrentEarnings:           earnings,
		TotalLiabilitiesAndEquity: total,
		Balanced:                  assets.Total.Equal(total),
	}
}

// BalanceSheet reports closing balances through asOf inclusive.
func (g *Generator) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if asOf.IsZero() {
		return BalanceSheet{}, shared.Invalid(shared.ErrMissingField, "as_of", "")
	}
	asOf = shared.Day(asOf)
	return cached(ctx, g.cache, "bs", []string{asOf.Format(shared.DateLayout)}, func(ctx context.Context) (BalanceSheet, error) {
		rows, err := g.trialRows(ctx, asOf, asOf)
		if err != nil {
			return BalanceSheet{}, err
		}
		bs := BuildBalanceSheet(rows)
		bs.AsOf = asOf
		return bs, nil
	})
}
