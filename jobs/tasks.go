package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/integration"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity checks that the trial balance debits equal credits.
	TaskGLIntegrity = "ledger:gl_integrity"
	// TaskLedgerEvent posts a queued upstream event.
	TaskLedgerEvent = "ledger:event"

	// GLIntegrityCron runs the integrity check nightly at 02:00 UTC.
	GLIntegrityCron = "0 2 * * *"
)

// GLIntegrityPayload narrows the checked range. Empty dates mean the current
// month to date.
type GLIntegrityPayload struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

func (p GLIntegrityPayload) window(now time.Time) (time.Time, time.Time, error) {
	today := shared.Day(now)
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := today
	var err error
	if p.StartDate != "" {
		if start, err = shared.ParseDate("start_date", p.StartDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if p.EndDate != "" {
		if end, err = shared.ParseDate("end_date", p.EndDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, shared.ValidateRange(start, end)
}

// NewGLIntegrityTask constructs an integrity task for the given payload.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// NewLedgerEventTask wraps env. The envelope id doubles as the task id so a
// redelivered event is not queued twice.
func NewLedgerEventTask(env integration.Envelope) (*asynq.Task, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerEvent, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(env.ID.String()),
		asynq.MaxRetry(10),
	), nil
}
