package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// Poster is the journal store entry point every settlement goes through.
type Poster interface {
	PostEntry(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, error)
	FindBySource(ctx context.Context, key journals.SourceKey) (journals.JournalEntry, error)
}

// AccountResolver resolves fixed accounts from the mapping table.
type AccountResolver interface {
	AccountID(ctx context.Context, module, key string) (int64, error)
}

// Input describes one platform payout.
type Input struct {
	PlatformAccountID   int64
	TargetBankAccountID int64
	Gross               decimal.Decimal
	Commission          decimal.Decimal
	Date                time.Time
	SettlementID        int64
	VoucherNumber       string
	Description         string
	ActorID             int64
}

// Validate checks amounts and required accounts.
func (in Input) Validate() error {
	if in.PlatformAccountID <= 0 {
		return shared.Invalid(shared.ErrMissingField, "platform_account_id", in.PlatformAccountID)
	}
	if in.TargetBankAccountID <= 0 {
		return shared.Invalid(shared.ErrMissingField, "bank_account_id", in.TargetBankAccountID)
	}
	if in.PlatformAccountID == in.TargetBankAccountID {
		return shared.Invalid(shared.ErrValidation, "bank_account_id", in.TargetBankAccountID)
	}
	if in.Date.IsZero() {
		return shared.Invalid(shared.ErrMissingField, "date", "")
	}
	if !in.Gross.IsPositive() {
		return shared.Invalid(shared.ErrInvalidAmount, "gross_amount", in.Gross.String())
	}
	if in.Commission.IsNegative() || in.Commission.GreaterThan(in.Gross) {
		return shared.Invalid(shared.ErrInvalidAmount, "commission_amount", in.Commission.String())
	}
	return nil
}

// Service posts platform settlements as compound journal entries.
type Service struct {
	poster   Poster
	accounts AccountResolver
	logger   *slog.Logger
}

// NewService constructs the settlement workflow.
func NewService(poster Poster, accounts AccountResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{poster: poster, accounts: accounts, logger: logger}
}

// SettlePlatformBalance moves a platform receivable to the bank net of the
// platform's commission: Dr bank (gross-commission), Dr commission expense
// (commission), Cr platform (gross). Zero legs are left out. Replaying a
// settlement id returns the entry already posted for it.
func (s *Service) SettlePlatformBalance(ctx context.Context, in Input) (journals.JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	net := in.Gross.Sub(in.Commission)
	lines := make([]journals.PostingLineInput, 0, 3)
	if net.IsPositive() {
		lines = append(lines, journals.PostingLineInput{AccountID: in.TargetBankAccountID, Debit: net})
	}
	if in.Commission.IsPositive() {
		commissionID, err := s.accounts.AccountID(ctx, mappings.ModuleSettlement, mappings.KeyCommissionExpense)
		if err != nil {
			return journals.JournalEntry{}, err
		}
		lines = append(lines, journals.PostingLineInput{AccountID: commissionID, Debit: in.Commission})
	}
	lines = append(lines, journals.PostingLineInput{AccountID: in.PlatformAccountID, Credit: in.Gross})

	posting := journals.PostingInput{
		EntryDate:     in.Date,
		Description:   strings.TrimSpace(in.Description),
		VoucherNumber: in.VoucherNumber,
		ActorID:       in.ActorID,
		Lines:         lines,
	}
	if posting.Description == "" {
		posting.Description = fmt.Sprintf("Platform settlement %s", in.Gross.StringFixed(journals.AmountScale))
	}
	if in.SettlementID > 0 {
		key := journals.NewSourceKey(mappings.ModuleSettlement, in.SettlementID)
		posting.Reference = journals.SettlementRef{SettlementID: in.SettlementID}
		posting.Source = &key
	}

	entry, err := s.poster.PostEntry(ctx, posting)
	if errors.Is(err, shared.ErrSourceAlreadyLinked) && posting.Source != nil {
		s.logger.Info("settlement already posted", slog.Int64("settlement_id", in.SettlementID))
		return s.poster.FindBySource(ctx, *posting.Source)
	}
	if err != nil {
		return journals.JournalEntry{}, err
	}
	s.logger.Info("platform settlement posted",
		slog.Int64("entry_id", entry.ID),
		slog.String("gross", in.Gross.String()),
		slog.String("commission", in.Commission.String()),
	)
	return entry, nil
}
