package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Error classes. Every error returned by the ledger core matches exactly one
// of these with errors.Is.
var (
	// ErrValidation indicates input rejected before any write.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrReference indicates an unknown or unusable referenced record.
	ErrReference = errors.New("accounting: invalid reference")
	// ErrPeriodClosed indicates no open period covers a posting date.
	ErrPeriodClosed = errors.New("accounting: no open period covers date")
	// ErrIntegrity indicates the ledger violates the double-entry invariant.
	ErrIntegrity = errors.New("accounting: ledger integrity violated")
	// ErrAccountInUse indicates a delete against a referenced account.
	ErrAccountInUse = errors.New("accounting: account in use")
)

// Error kinds, wrapped by the typed errors below or returned directly.
var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrInvalidAmount indicates a negative, zero, or two-sided line amount.
	ErrInvalidAmount = errors.New("accounting: invalid line amount")
	// ErrMissingField indicates a required field was empty.
	ErrMissingField = errors.New("accounting: required field missing")
	// ErrInvalidDateRange indicates start after end.
	ErrInvalidDateRange = errors.New("accounting: invalid date range")
	// ErrDuplicateCode indicates an account code already exists.
	ErrDuplicateCode = errors.New("accounting: account code already exists")
	// ErrInvalidParent indicates the parent account does not resolve or forms a cycle.
	ErrInvalidParent = errors.New("accounting: invalid parent account")
	// ErrInvalidAccountType indicates an unknown account type.
	ErrInvalidAccountType = errors.New("accounting: invalid account type")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrAccountInactive indicates a posting against a deactivated account.
	ErrAccountInactive = errors.New("accounting: account inactive")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrDuplicateVoucher indicates a voucher number already in use.
	ErrDuplicateVoucher = errors.New("accounting: voucher number already exists")
	// ErrAlreadyReversed indicates a reversal already exists for the entry.
	ErrAlreadyReversed = errors.New("accounting: journal entry already reversed")
	// ErrInvalidStatus indicates action can't proceed.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrPeriodNotFound indicates a missing accounting period.
	ErrPeriodNotFound = errors.New("accounting: period not found")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
	// ErrCustomerNotLinked indicates a customer has no sub-ledger account.
	ErrCustomerNotLinked = errors.New("accounting: customer has no sub-ledger account")
	// ErrCustomerAlreadyLinked indicates the customer already owns a sub-ledger account.
	ErrCustomerAlreadyLinked = errors.New("accounting: customer already linked")
)

// ValidationError reports rejected input together with the offending value.
type ValidationError struct {
	Kind  error
	Field string
	Value string
}

// Invalid builds a ValidationError.
func Invalid(kind error, field string, value any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Value: fmt.Sprint(value)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v (value %s)", e.Kind, e.Value)
	}
	return fmt.Sprintf("%v: %s=%s", e.Kind, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Kind} }

// ReferenceError reports an unknown or unusable referenced record.
type ReferenceError struct {
	Kind   error
	Entity string
	Value  string
}

// Unresolved builds a ReferenceError.
func Unresolved(kind error, entity string, value any) *ReferenceError {
	return &ReferenceError{Kind: kind, Entity: entity, Value: fmt.Sprint(value)}
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.Kind, e.Entity, e.Value)
}

func (e *ReferenceError) Unwrap() []error { return []error{ErrReference, e.Kind} }

// PeriodClosedError reports a posting date outside every open period.
type PeriodClosedError struct {
	Date time.Time
}

func (e *PeriodClosedError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPeriodClosed, e.Date.Format(DateLayout))
}

func (e *PeriodClosedError) Unwrap() error { return ErrPeriodClosed }

// IntegrityError reports diverging debit and credit totals for a date range.
type IntegrityError struct {
	Start  time.Time
	End    time.Time
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: %s..%s debit %s != credit %s", ErrIntegrity,
		e.Start.Format(DateLayout), e.End.Format(DateLayout), e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// AccountInUseError reports why an account cannot be deleted.
type AccountInUseError struct {
	Code     string
	Lines    int64
	Children int64
}

func (e *AccountInUseError) Error() string {
	return fmt.Sprintf("%v: %s has %d journal lines and %d child accounts", ErrAccountInUse, e.Code, e.Lines, e.Children)
}

func (e *AccountInUseError) Unwrap() error { return ErrAccountInUse }
