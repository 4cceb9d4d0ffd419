package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// TrialBalancer builds trial balances.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, start, end time.Time) (reports.TrialBalance, error)
}

// IntegritySummary is printed by CheckIntegrity.
type IntegritySummary struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Accounts    int    `json:"accounts"`
	TotalDebit  string `json:"total_debit"`
	TotalCredit string `json:"total_credit"`
	Balanced    bool   `json:"balanced"`
}

// CheckIntegrity builds the trial balance for [start, end] inline and writes
// a JSON summary to out. An integrity failure is written and also returned.
func CheckIntegrity(ctx context.Context, tb TrialBalancer, start, end string, out io.Writer) error {
	from, err := shared.ParseDate("start_date", start)
	if err != nil {
		return err
	}
	to, err := shared.ParseDate("end_date", end)
	if err != nil {
		return err
	}
	summary := IntegritySummary{StartDate: start, EndDate: end}
	result, err := tb.TrialBalance(ctx, from, to)
	var integrityErr *shared.IntegrityError
	switch {
	case errors.As(err, &integrityErr):
		summary.TotalDebit = integrityErr.Debit.String()
		summary.TotalCredit = integrityErr.Credit.String()
	case err != nil:
		return fmt.Errorf("check integrity: %w", err)
	default:
		summary.Accounts = len(result.Rows)
		summary.TotalDebit = result.TotalDebit.String()
		summary.TotalCredit = result.TotalCredit.String()
		summary.Balanced = true
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(summary); encErr != nil {
		return encErr
	}
	return err
}
