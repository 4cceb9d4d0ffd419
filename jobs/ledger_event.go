package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/integration"
	jobmetrics "github.com/odyssey-erp/hotel-ledger/internal/jobs"
)

// Dispatcher posts an upstream event.
type Dispatcher interface {
	Dispatch(ctx context.Context, env integration.Envelope) (integration.Outcome, error)
}

// LedgerEventJob drains queued events into the ledger.
type LedgerEventJob struct {
	Hooks   Dispatcher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerEventJob wires dependencies for the event handler.
func NewLedgerEventJob(hooks Dispatcher, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerEventJob {
	return &LedgerEventJob{Hooks: hooks, Logger: logger, Metrics: metrics}
}

// Handle dispatches one envelope. Events that can never post (bad payload,
// closed period, conflicting voucher) are dropped; anything else is retried
// so a missing mapping or an outage can be fixed in the meantime.
func (j *LedgerEventJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Hooks == nil {
		return errors.New("ledger event: handler not configured")
	}
	var env integration.Envelope
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		j.Metrics.Skip(TaskLedgerEvent, "payload")
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskLedgerEvent)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("event_id", env.ID.String()), slog.String("type", env.Type))
	out, err := j.Hooks.Dispatch(ctx, env)
	if err == nil {
		logger.Info("queued ledger event posted", slog.Int64("entry_id", out.EntryID))
		return nil
	}
	if reason, permanent := permanentFailure(err); permanent {
		logger.Warn("ledger event dropped", slog.String("reason", reason), slog.Any("error", err))
		j.Metrics.Skip(TaskLedgerEvent, reason)
		return fmt.Errorf("ledger event: %v: %w", err, asynq.SkipRetry)
	}
	logger.Error("ledger event failed", slog.Any("error", err))
	return err
}

func permanentFailure(err error) (string, bool) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return "validation", true
	case errors.Is(err, shared.ErrPeriodClosed):
		return "period_closed", true
	case errors.Is(err, shared.ErrDuplicateVoucher), errors.Is(err, shared.ErrCustomerAlreadyLinked):
		return "conflict", true
	}
	return "", false
}

func (j *LedgerEventJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
