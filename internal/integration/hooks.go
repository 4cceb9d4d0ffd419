package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/subledger"
)

// Ledger exposes the journal operations integrations need.
type Ledger interface {
	PostEntry(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, error)
	FindBySource(ctx context.Context, key journals.SourceKey) (journals.JournalEntry, error)
	FindByReference(ctx context.Context, ref journals.Reference) ([]journals.JournalEntry, error)
}

// AccountResolver provides mapping lookups.
type AccountResolver interface {
	AccountID(ctx context.Context, module, key string) (int64, error)
}

// CustomerAccounts opens and resolves customer receivable sub-accounts.
type CustomerAccounts interface {
	OpenCustomerAccount(ctx context.Context, in subledger.OpenInput) (subledger.CustomerAccount, error)
}

// InvoiceDrafter is the invoicing collaborator.
type InvoiceDrafter interface {
	DraftInvoice(ctx context.Context, draft InvoiceDraft) error
}

// Hooks turns booking, invoice and payment events into ledger postings.
type Hooks struct {
	ledger    Ledger
	accounts  AccountResolver
	customers CustomerAccounts
	drafter   InvoiceDrafter
	logger    *slog.Logger
}

// NewHooks constructs integration hooks.
func NewHooks(ledger Ledger, accounts AccountResolver, customers CustomerAccounts, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{ledger: ledger, accounts: accounts, customers: customers, logger: logger}
}

// WithDrafter registers the invoicing collaborator called on new bookings.
func (h *Hooks) WithDrafter(d InvoiceDrafter) {
	h.drafter = d
}

// OnBookingCreated makes sure the guest has a receivable sub-account and asks
// for an invoice draft. Nothing is posted until the invoice is issued.
func (h *Hooks) OnBookingCreated(ctx context.Context, evt BookingCreated) (subledger.CustomerAccount, error) {
	if err := evt.Validate(); err != nil {
		return subledger.CustomerAccount{}, err
	}
	ca, err := h.customers.OpenCustomerAccount(ctx, subledger.OpenInput{CustomerID: evt.CustomerID, Name: evt.CustomerName})
	if err != nil {
		return subledger.CustomerAccount{}, err
	}
	if h.drafter != nil {
		if err := h.drafter.DraftInvoice(ctx, InvoiceDraft{
			BookingID:  evt.BookingID,
			CustomerID: evt.CustomerID,
			AccountID:  ca.Account.ID,
			Amount:     evt.Amount,
			Date:       evt.Date,
		}); err != nil {
			return subledger.CustomerAccount{}, fmt.Errorf("integration: draft invoice for booking %d: %w", evt.BookingID, err)
		}
	}
	return ca, nil
}

// OnInvoiceIssued posts Dr customer sub-account (total), Cr room revenue (net),
// Cr tax payable (tax).
func (h *Hooks) OnInvoiceIssued(ctx context.Context, evt InvoiceIssued) (journals.JournalEntry, error) {
	if err := evt.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	ca, err := h.customers.OpenCustomerAccount(ctx, subledger.OpenInput{CustomerID: evt.CustomerID})
	if err != nil {
		return journals.JournalEntry{}, err
	}
	revenue, err := h.accounts.AccountID(ctx, mappings.ModuleInvoice, mappings.KeyRoomRevenue)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	var tax int64
	if evt.Tax.IsPositive() {
		if tax, err = h.accounts.AccountID(ctx, mappings.ModuleInvoice, mappings.KeyTaxPayable); err != nil {
			return journals.JournalEntry{}, err
		}
	}
	description := fmt.Sprintf("Invoice %d", evt.InvoiceID)
	if evt.Number != "" {
		description = "Invoice " + evt.Number
	}
	return h.post(ctx, mappings.ModuleInvoice, evt.InvoiceID, journals.PostingInput{
		EntryDate:   evt.Date,
		Description: description,
		Reference:   journals.InvoiceRef{InvoiceID: evt.InvoiceID},
		Lines:       invoiceLines(ca.Account.ID, revenue, tax, evt),
	})
}

// OnPaymentRecorded posts Dr the cash account mapped for the payment method
// against the customer sub-account charged by the invoice, or against
// customer advances when the payment settles no invoice.
func (h *Hooks) OnPaymentRecorded(ctx context.Context, evt PaymentRecorded) (journals.JournalEntry, error) {
	if err := evt.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	cash, err := h.accounts.AccountID(ctx, mappings.ModulePayment, mappings.CashKey(evt.Method))
	if err != nil {
		return journals.JournalEntry{}, err
	}
	var credit int64
	if evt.InvoiceID != nil {
		if credit, err = h.invoiceReceivable(ctx, *evt.InvoiceID); err != nil {
			return journals.JournalEntry{}, err
		}
	} else if credit, err = h.accounts.AccountID(ctx, mappings.ModulePayment, mappings.KeyCustomerAdvances); err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, mappings.ModulePayment, evt.PaymentID, journals.PostingInput{
		EntryDate:   evt.Date,
		Description: fmt.Sprintf("Payment %d (%s)", evt.PaymentID, evt.Method),
		Reference:   journals.PaymentRef{PaymentID: evt.PaymentID},
		Lines:       paymentLines(cash, credit, evt.Amount),
	})
}

// invoiceReceivable returns the account debited by the invoice's live posting.
// Postings that have been reversed are void and cannot take payments.
func (h *Hooks) invoiceReceivable(ctx context.Context, invoiceID int64) (int64, error) {
	entries, err := h.ledger.FindByReference(ctx, journals.InvoiceRef{InvoiceID: invoiceID})
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		reversed, err := h.isReversed(ctx, entry.ID)
		if err != nil {
			return 0, err
		}
		if reversed {
			h.logger.Info("skipping reversed invoice posting",
				slog.Int64("invoice_id", invoiceID),
				slog.Int64("entry_id", entry.ID),
			)
			continue
		}
		if id, ok := receivableAccount(entry); ok {
			return id, nil
		}
	}
	return 0, shared.Unresolved(shared.ErrJournalNotFound, "invoice posting", invoiceID)
}

func (h *Hooks) isReversed(ctx context.Context, entryID int64) (bool, error) {
	reversals, err := h.ledger.FindByReference(ctx, journals.EntryRef{EntryID: entryID})
	if err != nil {
		return false, err
	}
	for _, r := range reversals {
		if r.ReversalOf != nil && *r.ReversalOf == entryID {
			return true, nil
		}
	}
	return false, nil
}

// post submits in with a source key derived from module and id. A replayed
// event returns the entry posted the first time.
func (h *Hooks) post(ctx context.Context, module string, id int64, in journals.PostingInput) (journals.JournalEntry, error) {
	key := journals.NewSourceKey(module, id)
	in.Source = &key
	entry, err := h.ledger.PostEntry(ctx, in)
	if errors.Is(err, shared.ErrSourceAlreadyLinked) {
		h.logger.Info("ledger event already posted", slog.String("module", module), slog.Int64("id", id))
		return h.ledger.FindBySource(ctx, key)
	}
	return entry, err
}
