package journals

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
)

// SourceKey identifies the business event behind a posting so replays of the
// same event never post twice.
type SourceKey struct {
	Module string    `json:"module"`
	Ref    uuid.UUID `json:"ref"`
}

// NewSourceKey derives a deterministic key from module and a natural id.
func NewSourceKey(module string, naturalID any) SourceKey {
	return SourceKey{Module: module, Ref: uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%v", module, naturalID)))}
}

// JournalEntry captures posting metadata.
type JournalEntry struct {
	ID            int64         `json:"id"`
	Number        int64         `json:"number"`
	PeriodID      int64         `json:"period_id"`
	EntryDate     time.Time     `json:"entry_date"`
	VoucherNumber string        `json:"voucher_number"`
	Description   string        `json:"description"`
	Status        JournalStatus `json:"status"`
	Reference     Reference     `json:"-"`
	ReversalOf    *int64        `json:"reversal_of,omitempty"`
	Source        *SourceKey    `json:"source,omitempty"`
	PostedBy      int64         `json:"posted_by,omitempty"`
	PostedAt      time.Time     `json:"posted_at"`
	CreatedAt     time.Time     `json:"created_at"`
	Lines         []JournalLine `json:"lines,omitempty"`
}

// MarshalJSON renders the reference as a tagged object.
func (e JournalEntry) MarshalJSON() ([]byte, error) {
	type alias JournalEntry
	return json.Marshal(struct {
		alias
		EntryDate string         `json:"entry_date"`
		Reference *ReferenceView `json:"reference,omitempty"`
	}{
		alias:     alias(e),
		EntryDate: e.EntryDate.Format("2006-01-02"),
		Reference: ViewOf(e.Reference),
	})
}

// Totals sums the entry's debit and credit columns.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID        int64           `json:"id"`
	JournalID int64           `json:"journal_entry_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	CreatedAt time.Time       `json:"created_at"`
}

// Signed returns the line's balance contribution, debit minus credit.
func (l JournalLine) Signed() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}
