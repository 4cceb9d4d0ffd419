package journals

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// AmountScale is the number of decimal places amounts are stored with.
const AmountScale = 2

// PostingLineInput describes a journal line for posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	EntryDate     time.Time
	Description   string
	VoucherNumber string
	Reference     Reference
	Source        *SourceKey
	ActorID       int64
	Lines         []PostingLineInput
}

// Validate ensures posting input meets minimum criteria. Amounts are compared
// exactly; nothing is rounded.
func (in PostingInput) Validate() error {
	if in.EntryDate.IsZero() {
		return shared.Invalid(shared.ErrMissingField, "entry_date", "")
	}
	if strings.TrimSpace(in.Description) == "" {
		return shared.Invalid(shared.ErrMissingField, "description", in.Description)
	}
	if len(in.Lines) < 2 {
		return shared.Invalid(shared.ErrTooFewLines, "lines", len(in.Lines))
	}
	var debit, credit decimal.Decimal
	for idx, line := range in.Lines {
		if err := validateLine(idx, line); err != nil {
			return err
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return shared.Invalid(shared.ErrUnbalanced, "lines", fmt.Sprintf("debit %s != credit %s", debit.String(), credit.String()))
	}
	if in.Source != nil {
		if strings.TrimSpace(in.Source.Module) == "" {
			return shared.Invalid(shared.ErrMissingField, "source.module", in.Source.Module)
		}
		if in.Source.Ref == uuid.Nil {
			return shared.Invalid(shared.ErrMissingField, "source.ref", in.Source.Ref)
		}
	}
	return nil
}

func validateLine(idx int, line PostingLineInput) error {
	field := func(name string) string { return fmt.Sprintf("lines[%d].%s", idx, name) }
	if line.AccountID <= 0 {
		return shared.Invalid(shared.ErrMissingField, field("account_id"), line.AccountID)
	}
	if line.Debit.IsNegative() {
		return shared.Invalid(shared.ErrInvalidAmount, field("debit"), line.Debit.String())
	}
	if line.Credit.IsNegative() {
		return shared.Invalid(shared.ErrInvalidAmount, field("credit"), line.Credit.String())
	}
	if line.Debit.IsPositive() == line.Credit.IsPositive() {
		return shared.Invalid(shared.ErrInvalidAmount, field("amount"),
			fmt.Sprintf("debit=%s credit=%s", line.Debit.String(), line.Credit.String()))
	}
	if line.Debit.Exponent() < -AmountScale && !line.Debit.Equal(line.Debit.Truncate(AmountScale)) {
		return shared.Invalid(shared.ErrInvalidAmount, field("debit"), line.Debit.String())
	}
	if line.Credit.Exponent() < -AmountScale && !line.Credit.Equal(line.Credit.Truncate(AmountScale)) {
		return shared.Invalid(shared.ErrInvalidAmount, field("credit"), line.Credit.String())
	}
	return nil
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID     int64
	ActorID     int64
	Description string
	// TargetDate posts the reversal on a specific date. When nil the original
	// date is used, rolling forward to the next open period if it is closed.
	TargetDate *time.Time
}

// ListFilter narrows a journal listing.
type ListFilter struct {
	From      *time.Time
	To        *time.Time
	AccountID int64
	Page      int
	PerPage   int
}
