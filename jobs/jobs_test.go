package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/integration"
)

type stubBalancer struct {
	err        error
	start, end time.Time
}

func (s *stubBalancer) TrialBalance(_ context.Context, start, end time.Time) (reports.TrialBalance, error) {
	s.start, s.end = start, end
	return reports.TrialBalance{Start: start, End: end}, s.err
}

type countingRecorder struct{ n int }

func (c *countingRecorder) IntegrityFailed() { c.n++ }

func fixedClock() time.Time { return time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC) }

func TestGLIntegrityDefaultsToMonthToDate(t *testing.T) {
	tb := &stubBalancer{}
	job := NewGLIntegrityJob(tb, nil, nil, nil)
	job.clock = fixedClock

	task, err := NewGLIntegrityTask(GLIntegrityPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), tb.start)
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), tb.end)
}

func TestGLIntegrityFailureIsNotRetried(t *testing.T) {
	tb := &stubBalancer{err: &shared.IntegrityError{Debit: decimal.NewFromInt(10), Credit: decimal.NewFromInt(9)}}
	recorder := &countingRecorder{}
	job := NewGLIntegrityJob(tb, recorder, nil, nil)
	job.clock = fixedClock

	task, err := NewGLIntegrityTask(GLIntegrityPayload{StartDate: "2024-01-01", EndDate: "2024-01-31"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, 1, recorder.n)
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), tb.end)
}

func TestGLIntegrityInfrastructureErrorRetries(t *testing.T) {
	boom := errors.New("connection reset")
	job := NewGLIntegrityJob(&stubBalancer{err: boom}, nil, nil, nil)
	job.clock = fixedClock

	task, err := NewGLIntegrityTask(GLIntegrityPayload{})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestGLIntegrityRejectsBadPayload(t *testing.T) {
	job := NewGLIntegrityJob(&stubBalancer{}, nil, nil, nil)
	job.clock = fixedClock

	task, err := NewGLIntegrityTask(GLIntegrityPayload{StartDate: "2024-02-01", EndDate: "2024-01-01"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskGLIntegrity, []byte("{"))), asynq.SkipRetry)
}

type stubDispatcher struct {
	err  error
	seen []integration.Envelope
}

func (s *stubDispatcher) Dispatch(_ context.Context, env integration.Envelope) (integration.Outcome, error) {
	s.seen = append(s.seen, env)
	return integration.Outcome{Type: env.Type, EntryID: 9}, s.err
}

func TestLedgerEventRetryPolicy(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		skip  bool
		retry bool
	}{
		{name: "posted"},
		{name: "validation", err: shared.Invalid(shared.ErrInvalidAmount, "amount", "0"), skip: true},
		{name: "closed period", err: &shared.PeriodClosedError{Date: fixedClock()}, skip: true},
		{name: "missing mapping", err: shared.Unresolved(shared.ErrMappingNotFound, "mapping", "PAYMENT/cash.qris"), retry: true},
		{name: "outage", err: errors.New("dial tcp: refused"), retry: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &stubDispatcher{err: tc.err}
			job := NewLedgerEventJob(hooks, nil, nil)
			env := integration.Envelope{ID: uuid.New(), Type: integration.EventPaymentRecorded, Payload: json.RawMessage(`{}`)}
			task, err := NewLedgerEventTask(env)
			require.NoError(t, err)

			err = job.Handle(context.Background(), task)
			require.Len(t, hooks.seen, 1)
			require.Equal(t, env.ID, hooks.seen[0].ID)
			switch {
			case tc.skip:
				require.ErrorIs(t, err, asynq.SkipRetry)
			case tc.retry:
				require.Error(t, err)
				require.False(t, errors.Is(err, asynq.SkipRetry))
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestLedgerEventUndecodablePayload(t *testing.T) {
	job := NewLedgerEventJob(&stubDispatcher{}, nil, nil)
	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskLedgerEvent, []byte("not json"))), asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"archived":0}`, rec.Body.String())
}
