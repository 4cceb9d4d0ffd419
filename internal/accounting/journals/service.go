package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ChangeNotifier is told about every committed posting so cached reports expire.
type ChangeNotifier interface {
	Bump(ctx context.Context) error
}

// Metrics counts posting outcomes.
type Metrics interface {
	PostingRecorded(kind string)
	PostingRejected(reason string)
}

// Service posts and reverses journal entries.
type Service struct {
	repo     Repository
	audit    AuditPort
	notifier ChangeNotifier
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the journal store.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNotifier registers the cache invalidation hook.
func (s *Service) WithNotifier(n ChangeNotifier) {
	s.notifier = n
}

// WithMetrics registers posting counters.
func (s *Service) WithMetrics(m Metrics) {
	s.metrics = m
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get loads one entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrJournalNotFound) {
		return JournalEntry{}, shared.Unresolved(shared.ErrJournalNotFound, "journal entry", id)
	}
	return entry, err
}

// List returns a page of entries, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, shared.Pagination, error) {
	if filter.From != nil && filter.To != nil {
		if err := shared.ValidateRange(*filter.From, *filter.To); err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// FindByReference returns the posted entries caused by ref.
func (s *Service) FindByReference(ctx context.Context, ref Reference) ([]JournalEntry, error) {
	return s.repo.FindByReference(ctx, ref)
}

// FindBySource returns the entry already posted for a business event.
func (s *Service) FindBySource(ctx context.Context, key SourceKey) (JournalEntry, error) {
	entry, err := s.repo.FindBySource(ctx, key)
	if errors.Is(err, shared.ErrJournalNotFound) {
		return JournalEntry{}, shared.Unresolved(shared.ErrJournalNotFound, "journal source", key.Module+"/"+key.Ref.String())
	}
	return entry, err
}

// PostEntry validates and persists a new journal entry in one transaction.
func (s *Service) PostEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		s.rejected(err)
		return JournalEntry{}, err
	}
	date := shared.Day(in.EntryDate)
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := s.governingPeriod(ctx, tx, date)
		if err != nil {
			return err
		}
		ids := make([]int64, len(in.Lines))
		for i, line := range in.Lines {
			ids[i] = line.AccountID
		}
		if err := checkAccounts(ctx, tx, ids, true); err != nil {
			return err
		}
		lines := make([]JournalLine, len(in.Lines))
		for i, line := range in.Lines {
			lines[i] = JournalLine{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit}
		}
		entry, err = s.insert(ctx, tx, JournalEntry{
			PeriodID:      period.ID,
			EntryDate:     date,
			VoucherNumber: strings.TrimSpace(in.VoucherNumber),
			Description:   strings.TrimSpace(in.Description),
			Reference:     in.Reference,
			PostedBy:      in.ActorID,
		}, lines, in.Source)
		return err
	})
	if err != nil {
		s.rejected(err)
		return JournalEntry{}, err
	}
	meta := map[string]any{"number": entry.Number, "voucher": entry.VoucherNumber}
	if entry.Reference != nil {
		meta["reference_type"] = string(entry.Reference.Kind())
		meta["reference_id"] = entry.Reference.RefID()
	}
	if in.Source != nil {
		meta["source_module"] = in.Source.Module
		meta["source_id"] = in.Source.Ref.String()
	}
	s.committed(ctx, in.ActorID, "journal.post", entry, meta)
	return entry, nil
}

// ReverseEntry posts a new entry mirroring the lines of entryID. An entry can
// be reversed once.
func (s *Service) ReverseEntry(ctx context.Context, in ReverseInput) (JournalEntry, error) {
	if in.EntryID <= 0 {
		return JournalEntry{}, shared.Invalid(shared.ErrMissingField, "entry_id", in.EntryID)
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntry(ctx, in.EntryID)
		if err != nil {
			if errors.Is(err, shared.ErrJournalNotFound) {
				return shared.Unresolved(shared.ErrJournalNotFound, "journal entry", in.EntryID)
			}
			return err
		}
		if original.Status != JournalStatusPosted {
			return shared.Invalid(shared.ErrInvalidStatus, "status", string(original.Status))
		}
		if reversalID, ok, err := tx.FindReversal(ctx, original.ID); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: %s already reversed by entry %d", shared.ErrAlreadyReversed, original.VoucherNumber, reversalID)
		}

		var period periods.Period
		date := original.EntryDate
		if in.TargetDate != nil {
			date = shared.Day(*in.TargetDate)
			if period, err = s.governingPeriod(ctx, tx, date); err != nil {
				return err
			}
		} else if period, date, err = s.rollForward(ctx, tx, date); err != nil {
			return err
		}

		ids := make([]int64, len(original.Lines))
		lines := make([]JournalLine, len(original.Lines))
		for i, line := range original.Lines {
			ids[i] = line.AccountID
			lines[i] = JournalLine{AccountID: line.AccountID, Debit: line.Credit, Credit: line.Debit}
		}
		if err := checkAccounts(ctx, tx, ids, false); err != nil {
			return err
		}
		description := strings.TrimSpace(in.Description)
		if description == "" {
			description = "Reversal of " + original.VoucherNumber
		}
		originalID := original.ID
		reversal, err = s.insert(ctx, tx, JournalEntry{
			PeriodID:    period.ID,
			EntryDate:   date,
			Description: description,
			Reference:   EntryRef{EntryID: original.ID},
			ReversalOf:  &originalID,
			PostedBy:    in.ActorID,
		}, lines, nil)
		return err
	})
	if err != nil {
		s.rejected(err)
		return JournalEntry{}, err
	}
	s.committed(ctx, in.ActorID, "journal.reverse", reversal, map[string]any{
		"number":      reversal.Number,
		"reversal_of": in.EntryID,
	})
	return reversal, nil
}

func (s *Service) governingPeriod(ctx context.Context, tx TxRepository, date time.Time) (periods.Period, error) {
	candidates, err := tx.OpenPeriodsCovering(ctx, date)
	if err != nil {
		return periods.Period{}, err
	}
	return periods.Resolve(candidates, date, s.logger)
}

// rollForward keeps date when an open period covers it, otherwise moves to the
// first day of the next open period.
func (s *Service) rollForward(ctx context.Context, tx TxRepository, date time.Time) (periods.Period, time.Time, error) {
	period, err := s.governingPeriod(ctx, tx, date)
	if err == nil {
		return period, date, nil
	}
	if !errors.Is(err, shared.ErrPeriodClosed) {
		return periods.Period{}, time.Time{}, err
	}
	next, err := tx.NextOpenPeriodAfter(ctx, date)
	if err != nil {
		if errors.Is(err, shared.ErrPeriodNotFound) {
			return periods.Period{}, time.Time{}, &shared.PeriodClosedError{Date: date}
		}
		return periods.Period{}, time.Time{}, err
	}
	target := shared.Day(next.StartDate)
	s.logger.Info("reversal rolled forward to next open period",
		slog.String("original_date", date.Format(shared.DateLayout)),
		slog.String("date", target.Format(shared.DateLayout)),
		slog.Int64("period_id", next.ID),
	)
	return next, target, nil
}

// checkAccounts resolves every referenced account inside the transaction.
func checkAccounts(ctx context.Context, tx TxRepository, ids []int64, requireActive bool) error {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	found, err := tx.AccountsByID(ctx, unique)
	if err != nil {
		return err
	}
	for _, id := range unique {
		acc, ok := found[id]
		if !ok {
			return shared.Unresolved(shared.ErrAccountNotFound, "account", id)
		}
		if requireActive && !acc.IsActive {
			return shared.Unresolved(shared.ErrAccountInactive, "account", acc.Code)
		}
	}
	return nil
}

func (s *Service) insert(ctx context.Context, tx TxRepository, entry JournalEntry, lines []JournalLine, source *SourceKey) (JournalEntry, error) {
	number, err := tx.NextNumber(ctx)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Number = number
	if entry.VoucherNumber == "" {
		entry.VoucherNumber = fmt.Sprintf("JV-%06d", number)
	}
	entry.Status = JournalStatusPosted
	entry.PostedAt = s.now()
	inserted, err := tx.InsertEntry(ctx, entry)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateVoucher) {
			return JournalEntry{}, shared.Invalid(shared.ErrDuplicateVoucher, "voucher_number", entry.VoucherNumber)
		}
		return JournalEntry{}, err
	}
	if inserted.Lines, err = tx.InsertLines(ctx, inserted.ID, lines); err != nil {
		return JournalEntry{}, err
	}
	if source != nil {
		if err := tx.LinkSource(ctx, *source, inserted.ID); err != nil {
			if errors.Is(err, shared.ErrSourceAlreadyLinked) {
				return JournalEntry{}, fmt.Errorf("%w: %s/%s", shared.ErrSourceAlreadyLinked, source.Module, source.Ref)
			}
			return JournalEntry{}, err
		}
		inserted.Source = source
	}
	debit, credit := inserted.Totals()
	if !debit.Equal(credit) {
		return JournalEntry{}, &shared.IntegrityError{Start: entry.EntryDate, End: entry.EntryDate, Debit: debit, Credit: credit}
	}
	return inserted, nil
}

func (s *Service) committed(ctx context.Context, actorID int64, action string, entry JournalEntry, meta map[string]any) {
	if s.metrics != nil {
		kind := "MANUAL"
		if entry.Reference != nil {
			kind = string(entry.Reference.Kind())
		}
		s.metrics.PostingRecorded(kind)
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta:     meta,
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit journal", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	debit, _ := entry.Totals()
	s.logger.Info("journal posted",
		slog.String("action", action),
		slog.Int64("entry_id", entry.ID),
		slog.String("voucher", entry.VoucherNumber),
		slog.String("date", entry.EntryDate.Format(shared.DateLayout)),
		slog.String("amount", debit.StringFixed(AmountScale)),
	)
}

func (s *Service) rejected(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.PostingRejected(RejectionReason(err))
}

// RejectionReason buckets a posting error for metrics labels.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrPeriodClosed):
		return "period_closed"
	case errors.Is(err, shared.ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, shared.ErrSourceAlreadyLinked):
		return "duplicate_source"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrReference):
		return "reference"
	case errors.Is(err, shared.ErrIntegrity):
		return "integrity"
	default:
		return "error"
	}
}
