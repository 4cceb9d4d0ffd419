package periods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// AuditPort records period status changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// OpenInput describes a new accounting period.
type OpenInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	ActorID   int64
}

// OpenResult carries the created period and any open periods it overlaps.
// Overlaps are warnings; the period is created regardless.
type OpenResult struct {
	Period   Period   `json:"period"`
	Overlaps []Period `json:"overlaps,omitempty"`
}

// Service implements the period guard.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the period guard.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns every period ordered by start date.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// Get loads one period.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrPeriodNotFound) {
		return Period{}, shared.Unresolved(shared.ErrPeriodNotFound, "period", id)
	}
	return p, err
}

// IsDateOpen reports whether at least one open period covers date.
func (s *Service) IsDateOpen(ctx context.Context, date time.Time) (bool, error) {
	candidates, err := s.repo.OpenCovering(ctx, shared.Day(date))
	if err != nil {
		return false, err
	}
	_, covering := SelectForPosting(candidates, date)
	return covering > 0, nil
}

// PeriodFor returns the open period that governs a posting on date.
func (s *Service) PeriodFor(ctx context.Context, date time.Time) (Period, error) {
	day := shared.Day(date)
	candidates, err := s.repo.OpenCovering(ctx, day)
	if err != nil {
		return Period{}, err
	}
	return Resolve(candidates, day, s.logger)
}

// OpenPeriod creates a new open period. Overlap with another open period is
// reported and logged but never blocks creation.
func (s *Service) OpenPeriod(ctx context.Context, in OpenInput) (OpenResult, error) {
	if err := shared.ValidateRange(in.StartDate, in.EndDate); err != nil {
		return OpenResult{}, err
	}
	start, end := shared.Day(in.StartDate), shared.Day(in.EndDate)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = start.Format(shared.DateLayout) + ".." + end.Format(shared.DateLayout)
	}
	overlaps, err := s.repo.OpenOverlapping(ctx, start, end)
	if err != nil {
		return OpenResult{}, err
	}
	now := s.now()
	created, err := s.repo.Insert(ctx, Period{
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    PeriodStatusOpen,
		OpenedAt:  now,
		OpenedBy:  in.ActorID,
	})
	if err != nil {
		return OpenResult{}, err
	}
	if len(overlaps) > 0 {
		ids := make([]int64, 0, len(overlaps))
		for _, p := range overlaps {
			ids = append(ids, p.ID)
		}
		s.logger.Warn("opened period overlaps open periods",
			slog.Int64("period_id", created.ID),
			slog.Any("overlapping_ids", ids),
		)
	}
	s.record(ctx, in.ActorID, "period.open", created, map[string]any{
		"start":    start.Format(shared.DateLayout),
		"end":      end.Format(shared.DateLayout),
		"overlaps": len(overlaps),
	})
	return OpenResult{Period: created, Overlaps: overlaps}, nil
}

// ClosePeriod flips a period to CLOSED. Posted entries are untouched.
func (s *Service) ClosePeriod(ctx context.Context, id, actorID int64) (Period, error) {
	return s.transition(ctx, id, actorID, PeriodStatusClosed)
}

// ReopenPeriod flips a closed period back to OPEN. The reopen time counts as
// its opening time when overlapping periods compete for a posting date.
func (s *Service) ReopenPeriod(ctx context.Context, id, actorID int64) (Period, error) {
	return s.transition(ctx, id, actorID, PeriodStatusOpen)
}

func (s *Service) transition(ctx context.Context, id, actorID int64, target PeriodStatus) (Period, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Period{}, err
	}
	if err := ValidateTransition(current.Status, target); err != nil {
		return Period{}, err
	}
	if current.Status == target {
		return current, nil
	}
	now := s.now()
	next := current
	next.Status = target
	switch target {
	case PeriodStatusClosed:
		next.ClosedAt = &now
		next.ClosedBy = &actorID
	case PeriodStatusOpen:
		next.OpenedAt = now
		next.OpenedBy = actorID
		next.ClosedAt = nil
		next.ClosedBy = nil
	}
	updated, err := s.repo.UpdateStatus(ctx, next)
	if err != nil {
		if errors.Is(err, shared.ErrPeriodNotFound) {
			return Period{}, shared.Unresolved(shared.ErrPeriodNotFound, "period", id)
		}
		return Period{}, err
	}
	action := "period.close"
	if target == PeriodStatusOpen {
		action = "period.reopen"
	}
	s.record(ctx, actorID, action, updated, map[string]any{"from": string(current.Status)})
	return updated, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, p Period, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "accounting_period",
		EntityID: fmt.Sprintf("%d", p.ID),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit period change", slog.String("action", action), slog.Any("error", err))
	}
}
