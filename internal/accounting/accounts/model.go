package accounts

import (
	"strings"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether balances of this type display debit-positive.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// ParseAccountType accepts any letter case.
func ParseAccountType(raw string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", shared.Invalid(shared.ErrInvalidAccountType, "type", raw)
	}
	return t, nil
}

// Account models a chart of accounts node.
type Account struct {
	ID        int64       `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	ParentID  *int64      `json:"parent_id,omitempty"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
