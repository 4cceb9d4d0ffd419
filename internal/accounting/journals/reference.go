package journals

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// ReferenceKind names the business object behind a journal entry.
type ReferenceKind string

const (
	RefBooking    ReferenceKind = "BOOKING"
	RefInvoice    ReferenceKind = "INVOICE"
	RefPayment    ReferenceKind = "PAYMENT"
	RefSettlement ReferenceKind = "SETTLEMENT"
	RefEntry      ReferenceKind = "ENTRY"
)

// Reference points from an entry back to the object that caused it. The set
// of implementations is closed; see DrillDownPath.
type Reference interface {
	Kind() ReferenceKind
	RefID() int64
	isReference()
}

// BookingRef references a booking.
type BookingRef struct{ BookingID int64 }

// InvoiceRef references an issued invoice.
type InvoiceRef struct{ InvoiceID int64 }

// PaymentRef references a recorded payment.
type PaymentRef struct{ PaymentID int64 }

// SettlementRef references a platform settlement.
type SettlementRef struct{ SettlementID int64 }

// EntryRef references another journal entry, used by reversals.
type EntryRef struct{ EntryID int64 }

func (r BookingRef) Kind() ReferenceKind    { return RefBooking }
func (r InvoiceRef) Kind() ReferenceKind    { return RefInvoice }
func (r PaymentRef) Kind() ReferenceKind    { return RefPayment }
func (r SettlementRef) Kind() ReferenceKind { return RefSettlement }
func (r EntryRef) Kind() ReferenceKind      { return RefEntry }

func (r BookingRef) RefID() int64    { return r.BookingID }
func (r InvoiceRef) RefID() int64    { return r.InvoiceID }
func (r PaymentRef) RefID() int64    { return r.PaymentID }
func (r SettlementRef) RefID() int64 { return r.SettlementID }
func (r EntryRef) RefID() int64      { return r.EntryID }

func (BookingRef) isReference()    {}
func (InvoiceRef) isReference()    {}
func (PaymentRef) isReference()    {}
func (SettlementRef) isReference() {}
func (EntryRef) isReference()      {}

// ParseReference rebuilds a reference from its stored kind and id. An empty
// kind yields a nil reference.
func ParseReference(kind string, id int64) (Reference, error) {
	k := ReferenceKind(strings.ToUpper(strings.TrimSpace(kind)))
	if k == "" {
		return nil, nil
	}
	if id <= 0 {
		return nil, shared.Invalid(shared.ErrMissingField, "reference_id", id)
	}
	switch k {
	case RefBooking:
		return BookingRef{BookingID: id}, nil
	case RefInvoice:
		return InvoiceRef{InvoiceID: id}, nil
	case RefPayment:
		return PaymentRef{PaymentID: id}, nil
	case RefSettlement:
		return SettlementRef{SettlementID: id}, nil
	case RefEntry:
		return EntryRef{EntryID: id}, nil
	}
	return nil, shared.Invalid(shared.ErrValidation, "reference_type", kind)
}

// DrillDownPath returns the UI route of the referenced object.
func DrillDownPath(ref Reference) string {
	switch r := ref.(type) {
	case BookingRef:
		return fmt.Sprintf("/bookings/%d", r.BookingID)
	case InvoiceRef:
		return fmt.Sprintf("/invoices/%d", r.InvoiceID)
	case PaymentRef:
		return fmt.Sprintf("/payments/%d", r.PaymentID)
	case SettlementRef:
		return fmt.Sprintf("/settlements/%d", r.SettlementID)
	case EntryRef:
		return fmt.Sprintf("/accounting/journals/%d", r.EntryID)
	case nil:
		return ""
	default:
		panic(fmt.Sprintf("journals: unhandled reference %T", ref))
	}
}

// ReferenceView is the wire form of a Reference.
type ReferenceView struct {
	Type ReferenceKind `json:"type"`
	ID   int64         `json:"id"`
	Path string        `json:"path"`
}

// ViewOf flattens ref for JSON; nil stays nil.
func ViewOf(ref Reference) *ReferenceView {
	if ref == nil {
		return nil
	}
	return &ReferenceView{Type: ref.Kind(), ID: ref.RefID(), Path: DrillDownPath(ref)}
}

// splitReference returns the storable columns of ref.
func splitReference(ref Reference) (*string, *int64) {
	if ref == nil {
		return nil, nil
	}
	kind := string(ref.Kind())
	id := ref.RefID()
	return &kind, &id
}
