package integration

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
)

// invoiceLines splits an invoice into Dr receivable / Cr revenue / Cr tax.
// A zero tax leg is left out.
func invoiceLines(customerAccount, revenueAccount, taxAccount int64, evt InvoiceIssued) []journals.PostingLineInput {
	lines := []journals.PostingLineInput{
		{AccountID: customerAccount, Debit: evt.Total()},
		{AccountID: revenueAccount, Credit: evt.Net},
	}
	if evt.Tax.IsPositive() {
		lines = append(lines, journals.PostingLineInput{AccountID: taxAccount, Credit: evt.Tax})
	}
	return lines
}

// paymentLines moves amount from the credited account into cash.
func paymentLines(cashAccount, creditAccount int64, amount decimal.Decimal) []journals.PostingLineInput {
	return []journals.PostingLineInput{
		{AccountID: cashAccount, Debit: amount},
		{AccountID: creditAccount, Credit: amount},
	}
}

// receivableAccount returns the account debited by an invoice posting.
func receivableAccount(entry journals.JournalEntry) (int64, bool) {
	for _, line := range entry.Lines {
		if line.Debit.IsPositive() {
			return line.AccountID, true
		}
	}
	return 0, false
}
