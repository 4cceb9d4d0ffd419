package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement holds gross debit and credit over a date range. The two sides are
// never netted so reports can show both columns.
type Movement struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Add returns the column-wise sum.
func (m Movement) Add(o Movement) Movement {
	return Movement{Debit: m.Debit.Add(o.Debit), Credit: m.Credit.Add(o.Credit)}
}

// Net returns debit minus credit.
func (m Movement) Net() decimal.Decimal {
	return m.Debit.Sub(m.Credit)
}

// LineDetail is a posted journal line joined with its entry header.
type LineDetail struct {
	LineID        int64           `json:"line_id"`
	EntryID       int64           `json:"entry_id"`
	EntryNumber   int64           `json:"entry_number"`
	EntryDate     time.Time       `json:"entry_date"`
	VoucherNumber string          `json:"voucher_number"`
	Description   string          `json:"description"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   int64           `json:"reference_id,omitempty"`
	AccountID     int64           `json:"account_id"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the line's balance contribution.
func (l LineDetail) Signed() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}
