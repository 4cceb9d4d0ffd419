package reports

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// TrialBalanceRow is one account's own activity, without roll-up.
type TrialBalanceRow struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"type"`
	ParentID  *int64               `json:"parent_id,omitempty"`
	Inactive  bool                 `json:"inactive,omitempty"`
	Opening   decimal.Decimal      `json:"opening"`
	Debit     decimal.Decimal      `json:"period_debit"`
	Credit    decimal.Decimal      `json:"period_credit"`
	Net       decimal.Decimal      `json:"net"`
	Closing   decimal.Decimal      `json:"closing"`
}

// GroupKey returns the key used for grouping trial balance rows: the account
// class, the first character of the code. Sub-ledger codes share their control
// account's prefix and so land in the same group.
func (r TrialBalanceRow) GroupKey() string {
	if r.Code == "" {
		return ""
	}
	return r.Code[:1]
}

// TrialBalanceGroup aggregates rows for presentation.
type TrialBalanceGroup struct {
	Key     string            `json:"key"`
	Rows    []TrialBalanceRow `json:"rows"`
	Opening decimal.Decimal   `json:"opening"`
	Debit   decimal.Decimal   `json:"period_debit"`
	Credit  decimal.Decimal   `json:"period_credit"`
	Closing decimal.Decimal   `json:"closing"`
}

// TrialBalance lists every active account plus inactive accounts that still
// carry a balance or activity.
type TrialBalance struct {
	Start        time.Time           `json:"start_date"`
	End          time.Time           `json:"end_date"`
	Rows         []TrialBalanceRow   `json:"rows"`
	Groups       []TrialBalanceGroup `json:"groups"`
	TotalOpening decimal.Decimal     `json:"total_opening"`
	TotalDebit   decimal.Decimal     `json:"total_debit"`
	TotalCredit  decimal.Decimal     `json:"total_credit"`
	TotalClosing decimal.Decimal     `json:"total_closing"`
}

// BuildTrialBalance groups rows and sums the columns. Rows keep their order.
func BuildTrialBalance(rows []TrialBalanceRow) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	result := TrialBalance{
		Rows:         rows,
		TotalOpening: decimal.Zero,
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		TotalClosing: decimal.Zero,
	}
	for _, row := range rows {
		key := row.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Opening: decimal.Zero, Debit: decimal.Zero, Credit: decimal.Zero, Closing: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Rows = append(grp.Rows, row)
		grp.Opening = grp.Opening.Add(row.Opening)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Closing = grp.Closing.Add(row.Closing)
	}
	sort.Strings(keys)
	for _, key := range keys {
		grp := groups[key]
		sort.SliceStable(grp.Rows, func(i, j int) bool { return grp.Rows[i].Code < grp.Rows[j].Code })
		result.Groups = append(result.Groups, *grp)
		result.TotalOpening = result.TotalOpening.Add(grp.Opening)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
		result.TotalClosing = result.TotalClosing.Add(grp.Closing)
	}
	return result
}

// TrialBalance reports every account's opening balance and period movement
// over [start, end]. It fails with an IntegrityError when the ledger's debits
// and credits diverge, either before start or within the range. It always
// reads the ledger and never the report cache.
func (g *Generator) TrialBalance(ctx context.Context, start, end time.Time) (TrialBalance, error) {
	if err := shared.ValidateRange(start, end); err != nil {
		return TrialBalance{}, err
	}
	start, end = shared.Day(start), shared.Day(end)
	rows, err := g.trialRows(ctx, start, end)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(rows)
	tb.Start, tb.End = start, end
	return tb, nil
}

func (g *Generator) trialRows(ctx context.Context, start, end time.Time) ([]TrialBalanceRow, error) {
	var rows []TrialBalanceRow
	err := g.engine.Snapshot(ctx, func(ctx context.Context, scope *ledger.Scope) error {
		openings, err := scope.Reader().BalancesBefore(ctx, start)
		if err != nil {
			return err
		}
		movements, err := scope.Reader().MovementsBetween(ctx, start, end)
		if err != nil {
			return err
		}
		if err := checkIntegrity(start, end, openings, movements); err != nil {
			g.logger.Error("trial balance integrity failure", slog.Any("error", err))
			return err
		}
		for _, acc := range scope.Tree().Flatten() {
			opening := openings[acc.ID]
			m := movements[acc.ID]
			row := TrialBalanceRow{
				AccountID: acc.ID,
				Code:      acc.Code,
				Name:      acc.Name,
				Type:      acc.Type,
				ParentID:  acc.ParentID,
				Inactive:  !acc.IsActive,
				Opening:   opening,
				Debit:     m.Debit,
				Credit:    m.Credit,
				Net:       m.Net(),
			}
			row.Closing = opening.Add(row.Net)
			if row.Inactive && opening.IsZero() && m.Debit.IsZero() && m.Credit.IsZero() {
				continue
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

func checkIntegrity(start, end time.Time, openings map[int64]decimal.Decimal, movements map[int64]ledger.Movement) error {
	debit, credit := decimal.Zero, decimal.Zero
	for _, bal := range openings {
		if bal.IsPositive() {
			debit = debit.Add(bal)
		} else {
			credit = credit.Sub(bal)
		}
	}
	if !debit.Equal(credit) {
		return &shared.IntegrityError{End: start.AddDate(0, 0, -1), Debit: debit, Credit: credit}
	}
	debit, credit = decimal.Zero, decimal.Zero
	for _, m := range movements {
		debit = debit.Add(m.Debit)
		credit = credit.Add(m.Credit)
	}
	if !debit.Equal(credit) {
		return &shared.IntegrityError{Start: start, End: end, Debit: debit, Credit: credit}
	}
	return nil
}
