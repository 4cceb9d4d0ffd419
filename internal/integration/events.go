package integration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// BookingCreated is raised when a reservation is confirmed.
type BookingCreated struct {
	BookingID    int64
	CustomerID   int64
	CustomerName string
	Amount       decimal.Decimal
	Date         time.Time
}

// Validate checks the fields the ledger needs.
func (e BookingCreated) Validate() error {
	switch {
	case e.BookingID <= 0:
		return shared.Invalid(shared.ErrMissingField, "booking_id", e.BookingID)
	case e.CustomerID <= 0:
		return shared.Invalid(shared.ErrMissingField, "customer_id", e.CustomerID)
	case !e.Amount.IsPositive():
		return shared.Invalid(shared.ErrInvalidAmount, "amount", e.Amount.String())
	case e.Date.IsZero():
		return shared.Invalid(shared.ErrMissingField, "date", "")
	}
	return nil
}

// InvoiceIssued is raised when a drafted invoice is finalised.
type InvoiceIssued struct {
	InvoiceID  int64
	Number     string
	CustomerID int64
	BookingID  int64
	Net        decimal.Decimal
	Tax        decimal.Decimal
	Date       time.Time
}

// Total is net plus tax.
func (e InvoiceIssued) Total() decimal.Decimal {
	return e.Net.Add(e.Tax)
}

// Validate checks the fields the ledger needs.
func (e InvoiceIssued) Validate() error {
	switch {
	case e.InvoiceID <= 0:
		return shared.Invalid(shared.ErrMissingField, "invoice_id", e.InvoiceID)
	case e.CustomerID <= 0:
		return shared.Invalid(shared.ErrMissingField, "customer_id", e.CustomerID)
	case !e.Net.IsPositive():
		return shared.Invalid(shared.ErrInvalidAmount, "net_amount", e.Net.String())
	case e.Tax.IsNegative():
		return shared.Invalid(shared.ErrInvalidAmount, "tax_amount", e.Tax.String())
	case e.Date.IsZero():
		return shared.Invalid(shared.ErrMissingField, "date", "")
	}
	return nil
}

// PaymentRecorded is raised when money is received from a guest.
type PaymentRecorded struct {
	PaymentID int64
	Amount    decimal.Decimal
	Method    string
	Date      time.Time
	InvoiceID *int64
}

// Validate checks the fields the ledger needs.
func (e PaymentRecorded) Validate() error {
	switch {
	case e.PaymentID <= 0:
		return shared.Invalid(shared.ErrMissingField, "payment_id", e.PaymentID)
	case !e.Amount.IsPositive():
		return shared.Invalid(shared.ErrInvalidAmount, "amount", e.Amount.String())
	case e.Method == "":
		return shared.Invalid(shared.ErrMissingField, "method", "")
	case e.Date.IsZero():
		return shared.Invalid(shared.ErrMissingField, "date", "")
	case e.InvoiceID != nil && *e.InvoiceID <= 0:
		return shared.Invalid(shared.ErrMissingField, "invoice_id", *e.InvoiceID)
	}
	return nil
}

// InvoiceDraft asks the invoicing collaborator to prepare an invoice.
type InvoiceDraft struct {
	BookingID  int64
	CustomerID int64
	AccountID  int64
	Amount     decimal.Decimal
	Date       time.Time
}
