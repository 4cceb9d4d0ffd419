package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/jobs"
)

type stubBalancer struct {
	tb  reports.TrialBalance
	err error
}

func (s stubBalancer) TrialBalance(context.Context, time.Time, time.Time) (reports.TrialBalance, error) {
	return s.tb, s.err
}

func TestCheckIntegrityBalanced(t *testing.T) {
	var buf bytes.Buffer
	tb := reports.TrialBalance{
		Rows:        make([]reports.TrialBalanceRow, 3),
		TotalDebit:  decimal.RequireFromString("1500.00"),
		TotalCredit: decimal.RequireFromString("1500.00"),
	}
	require.NoError(t, CheckIntegrity(context.Background(), stubBalancer{tb: tb}, "2024-01-01", "2024-01-31", &buf))

	var summary IntegritySummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
	require.True(t, summary.Balanced)
	require.Equal(t, 3, summary.Accounts)
	require.Equal(t, "1500", summary.TotalDebit)
}

func TestCheckIntegrityReportsMismatch(t *testing.T) {
	var buf bytes.Buffer
	stub := stubBalancer{err: &shared.IntegrityError{Debit: decimal.NewFromInt(10), Credit: decimal.NewFromInt(7)}}
	err := CheckIntegrity(context.Background(), stub, "2024-01-01", "2024-01-31", &buf)
	require.ErrorIs(t, err, shared.ErrIntegrity)

	var summary IntegritySummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
	require.False(t, summary.Balanced)
	require.Equal(t, "10", summary.TotalDebit)
	require.Equal(t, "7", summary.TotalCredit)
}

func TestCheckIntegrityRejectsBadDates(t *testing.T) {
	err := CheckIntegrity(context.Background(), stubBalancer{}, "01/01/2024", "2024-01-31", &bytes.Buffer{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildTask(t *testing.T) {
	task, err := buildTask(jobs.TaskGLIntegrity, []string{"2024-01-01", "2024-01-31"})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskGLIntegrity, task.Type())
	require.JSONEq(t, `{"start_date":"2024-01-01","end_date":"2024-01-31"}`, string(task.Payload()))

	_, err = buildTask(jobs.TaskGLIntegrity, []string{"2024-01-01"})
	require.Error(t, err)
	_, err = buildTask("mail:send", nil)
	require.ErrorContains(t, err, "unsupported job")
}
