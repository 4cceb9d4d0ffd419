package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	jobmetrics "github.com/odyssey-erp/hotel-ledger/internal/jobs"
)

// TrialBalancer builds trial balances.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, start, end time.Time) (reports.TrialBalance, error)
}

// IntegrityRecorder counts failed integrity checks.
type IntegrityRecorder interface {
	IntegrityFailed()
}

// GLIntegrityJob rebuilds the trial balance and escalates when debits and
// credits disagree.
type GLIntegrityJob struct {
	Reports   TrialBalancer
	Integrity IntegrityRecorder
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewGLIntegrityJob wires dependencies for the integrity handler.
func NewGLIntegrityJob(reports TrialBalancer, integrity IntegrityRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{
		Reports:   reports,
		Integrity: integrity,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs the check. Integrity failures are never retried.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			j.Metrics.Skip(TaskGLIntegrity, "payload")
			return asynq.SkipRetry
		}
	}
	start, end, err := payload.window(j.clock())
	if err != nil {
		j.Metrics.Skip(TaskGLIntegrity, "payload")
		return fmt.Errorf("gl integrity: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskGLIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("start_date", start.Format(shared.DateLayout)),
		slog.String("end_date", end.Format(shared.DateLayout)),
	)
	tb, err := j.Reports.TrialBalance(ctx, start, end)
	var integrityErr *shared.IntegrityError
	switch {
	case errors.As(err, &integrityErr):
		logger.Error("gl integrity check failed",
			slog.String("debit", integrityErr.Debit.String()),
			slog.String("credit", integrityErr.Credit.String()),
			slog.Any("error", err))
		if j.Integrity != nil {
			j.Integrity.IntegrityFailed()
		}
		j.Metrics.Skip(TaskGLIntegrity, "integrity")
		return fmt.Errorf("gl integrity: %v: %w", err, asynq.SkipRetry)
	case err != nil:
		logger.Error("gl integrity check errored", slog.Any("error", err))
		return err
	}
	logger.Info("gl integrity check passed",
		slog.Int("accounts", len(tb.Rows)),
		slog.String("total_debit", tb.TotalDebit.String()),
		slog.String("total_credit", tb.TotalCredit.String()))
	return nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
