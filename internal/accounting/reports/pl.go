package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Start     time.Time            `json:"start_date"`
	End       time.Time            `json:"end_date"`
	Revenue   ProfitAndLossSection `json:"revenue"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetIncome decimal.Decimal      `json:"net_income"`
}

// BuildProfitAndLoss aggregates period movement into revenue and expense
// sections. Revenue is shown credit-positive.
func BuildProfitAndLoss(rows []TrialBalanceRow) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue", Total: decimal.Zero}
	expense := ProfitAndLossSection{Label: "Expense", Total: decimal.Zero}

	for _, r := range rows {
		row := ProfitAndLossAccount{AccountID: r.AccountID, Code: r.Code, Name: r.Name, Amount: r.Net}
		switch r.Type {
		case accounts.AccountTypeRevenue:
			row.Amount = r.Net.Neg()
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case accounts.AccountTypeExpense:
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}

// ProfitAndLoss reports revenue and expense movement over [start, end].
func (g *Generator) ProfitAndLoss(ctx context.Context, start, end time.Time) (ProfitAndLoss, error) {
	if err := shared.ValidateRange(start, end); err != nil {
		return ProfitAndLoss{}, err
	}
	start, end = shared.Day(start), shared.Day(end)
	args := []string{start.Format(shared.DateLayout), end.Format(shared.DateLayout)}
	return cached(ctx, g.cache, "pl", args, func(ctx context.Context) (ProfitAndLoss, error) {
		rows, err := g.trialRows(ctx, start, end)
		if err != nil {
			return ProfitAndLoss{}, err
		}
		pl := BuildProfitAndLoss(rows)
		pl.Start, pl.End = start, end
		return pl, nil
	})
}
