package mappings

import (
	"strings"
	"time"
)

// Well known mapping modules and keys.
const (
	ModuleSubledger  = "SUBLEDGER"
	ModuleSettlement = "SETTLEMENT"
	ModuleInvoice    = "INVOICE"
	ModulePayment    = "PAYMENT"

	KeyReceivablesControl = "receivables.control"
	KeyCommissionExpense  = "commission.expense"
	KeyRoomRevenue        = "revenue.room"
	KeyTaxPayable         = "tax.payable"
	KeyCustomerAdvances   = "customer.advances"
	keyCashPrefix         = "cash."
)

// CashKey returns the mapping key for a payment method, e.g. cash.transfer.
func CashKey(method string) string {
	return keyCashPrefix + strings.ToLower(strings.TrimSpace(method))
}

// AccountMapping links integration keys to ledger accounts.
type AccountMapping struct {
	Module    string    `json:"module"`
	Key       string    `json:"key"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize upper-cases the module and trims both parts.
func Normalize(module, key string) (string, string) {
	return strings.ToUpper(strings.TrimSpace(module)), strings.TrimSpace(key)
}
