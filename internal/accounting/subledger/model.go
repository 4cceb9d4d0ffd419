package subledger

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
)

// Link associates a customer with its receivables sub-account.
type Link struct {
	CustomerID int64     `json:"customer_id"`
	AccountID  int64     `json:"account_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomerAccount is a link together with the account it points at.
type CustomerAccount struct {
	Link    Link             `json:"link"`
	Account accounts.Account `json:"account"`
	Created bool             `json:"created"`
}

// CustomerCode derives the sub-account code from the control account code so
// customer accounts sort directly under their parent.
func CustomerCode(controlCode string, customerID int64) string {
	return fmt.Sprintf("%s-%06d", controlCode, customerID)
}
