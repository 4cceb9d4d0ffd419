package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// Event type names carried by Envelope.Type.
const (
	EventBookingCreated  = "booking.created"
	EventInvoiceIssued   = "invoice.issued"
	EventPaymentRecorded = "payment.recorded"
)

// Envelope wraps an upstream event for transport.
type Envelope struct {
	ID      uuid.UUID       `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outcome reports what handling an event produced.
type Outcome struct {
	Type      string `json:"type"`
	EntryID   int64  `json:"entry_id,omitempty"`
	AccountID int64  `json:"account_id,omitempty"`
}

type bookingPayload struct {
	BookingID    int64           `json:"booking_id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
}

type invoicePayload struct {
	InvoiceID  int64           `json:"invoice_id"`
	Number     string          `json:"number"`
	CustomerID int64           `json:"customer_id"`
	BookingID  int64           `json:"booking_id"`
	Net        decimal.Decimal `json:"net_amount"`
	Tax        decimal.Decimal `json:"tax_amount"`
	Date       string          `json:"date"`
}

type paymentPayload struct {
	PaymentID int64           `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Date      string          `json:"date"`
	InvoiceID *int64          `json:"invoice_id"`
}

// Dispatch decodes env and routes it to the matching hook.
func (h *Hooks) Dispatch(ctx context.Context, env Envelope) (Outcome, error) {
	out := Outcome{Type: env.Type}
	switch env.Type {
	case EventBookingCreated:
		var p bookingPayload
		if err := decode(env, &p); err != nil {
			return out, err
		}
		date, err := shared.ParseDate("date", p.Date)
		if err != nil {
			return out, err
		}
		ca, err := h.OnBookingCreated(ctx, BookingCreated{
			BookingID:    p.BookingID,
			CustomerID:   p.CustomerID,
			CustomerName: p.CustomerName,
			Amount:       p.Amount,
			Date:         date,
		})
		if err != nil {
			return out, err
		}
		out.AccountID = ca.Account.ID
	case EventInvoiceIssued:
		var p invoicePayload
		if err := decode(env, &p); err != nil {
			return out, err
		}
		date, err := shared.ParseDate("date", p.Date)
		if err != nil {
			return out, err
		}
		entry, err := h.OnInvoiceIssued(ctx, InvoiceIssued{
			InvoiceID:  p.InvoiceID,
			Number:     p.Number,
			CustomerID: p.CustomerID,
			BookingID:  p.BookingID,
			Net:        p.Net,
			Tax:        p.Tax,
			Date:       date,
		})
		if err != nil {
			return out, err
		}
		out.EntryID = entry.ID
	case EventPaymentRecorded:
		var p paymentPayload
		if err := decode(env, &p); err != nil {
			return out, err
		}
		date, err := shared.ParseDate("date", p.Date)
		if err != nil {
			return out, err
		}
		entry, err := h.OnPaymentRecorded(ctx, PaymentRecorded{
			PaymentID: p.PaymentID,
			Amount:    p.Amount,
			Method:    p.Method,
			Date:      date,
			InvoiceID: p.InvoiceID,
		})
		if err != nil {
			return out, err
		}
		out.EntryID = entry.ID
	default:
		return out, shared.Invalid(shared.ErrValidation, "type", env.Type)
	}
	h.logger.Info("ledger event handled",
		slog.String("event_id", env.ID.String()),
		slog.String("type", env.Type),
		slog.Int64("entry_id", out.EntryID))
	return out, nil
}

func decode(env Envelope, target any) error {
	if len(env.Payload) == 0 {
		return shared.Invalid(shared.ErrMissingField, "payload", "")
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return fmt.Errorf("integration: decode %s payload: %w", env.Type, shared.Invalid(shared.ErrValidation, "payload", err.Error()))
	}
	return nil
}
