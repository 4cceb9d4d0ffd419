package reports

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// CustomerResolver maps a customer to its receivables sub-account.
type CustomerResolver interface {
	Resolve(ctx context.Context, customerID int64) (int64, error)
}

// StatementLine is one posted line with the account balance after it.
type StatementLine struct {
	LineID        int64                   `json:"line_id"`
	EntryID       int64                   `json:"entry_id"`
	EntryNumber   int64                   `json:"entry_number"`
	EntryDate     time.Time               `json:"entry_date"`
	VoucherNumber string                  `json:"voucher_number"`
	Description   string                  `json:"description"`
	AccountID     int64                   `json:"account_id"`
	AccountCode   string                  `json:"account_code,omitempty"`
	AccountName   string                  `json:"account_name,omitempty"`
	Reference     *journals.ReferenceView `json:"reference,omitempty"`
	Debit         decimal.Decimal         `json:"debit"`
	Credit        decimal.Decimal         `json:"credit"`
	Balance       decimal.Decimal         `json:"balance"`
}

// Statement is an account's activity over a date range.
type Statement struct {
	Account     accounts.Account `json:"account"`
	CustomerID  int64            `json:"customer_id,omitempty"`
	Start       time.Time        `json:"start_date"`
	End         time.Time        `json:"end_date"`
	Recursive   bool             `json:"recursive"`
	Opening     decimal.Decimal  `json:"opening_balance"`
	Lines       []StatementLine  `json:"lines"`
	TotalDebit  decimal.Decimal  `json:"total_debit"`
	TotalCredit decimal.Decimal  `json:"total_credit"`
	Closing     decimal.Decimal  `json:"closing_balance"`
}

// Generator builds statements and trial balances on top of the balance engine.
type Generator struct {
	engine    *ledger.Engine
	customers CustomerResolver
	cache     *Cache
	logger    *slog.Logger
}

// NewGenerator constructs a report generator. customers may be nil when
// customer statements are not served.
func NewGenerator(engine *ledger.Engine, customers CustomerResolver, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{engine: engine, customers: customers, logger: logger}
}

// WithCache enables report caching.
func (g *Generator) WithCache(c *Cache) {
	g.cache = c
}

// GenerateStatement returns opening balance, lines with running balances and
// the closing balance of accountID over [start, end]. Opening and lines are
// read from the same snapshot.
func (g *Generator) GenerateStatement(ctx context.Context, accountID int64, start, end time.Time, recursive bool) (Statement, error) {
	if err := shared.ValidateRange(start, end); err != nil {
		return Statement{}, err
	}
	start, end = shared.Day(start), shared.Day(end)
	args := []string{strconv.FormatInt(accountID, 10), start.Format(shared.DateLayout), end.Format(shared.DateLayout), strconv.FormatBool(recursive)}
	return cached(ctx, g.cache, "statement", args, func(ctx context.Context) (Statement, error) {
		var st Statement
		err := g.engine.Snapshot(ctx, func(ctx context.Context, scope *ledger.Scope) error {
			var err error
			st, err = buildStatement(ctx, scope, accountID, start, end, recursive)
			return err
		})
		return st, err
	})
}

// CustomerStatement resolves the customer's sub-account and returns its statement.
func (g *Generator) CustomerStatement(ctx context.Context, customerID int64, start, end time.Time) (Statement, error) {
	if g.customers == nil {
		return Statement{}, shared.Unresolved(shared.ErrCustomerNotLinked, "customer", customerID)
	}
	accountID, err := g.customers.Resolve(ctx, customerID)
	if err != nil {
		return Statement{}, err
	}
	st, err := g.GenerateStatement(ctx, accountID, start, end, false)
	if err != nil {
		return Statement{}, err
	}
	st.CustomerID = customerID
	return st, nil
}

func buildStatement(ctx context.Context, scope *ledger.Scope, accountID int64, start, end time.Time, recursive bool) (Statement, error) {
	acc, err := scope.Account(accountID)
	if err != nil {
		return Statement{}, err
	}
	opening, err := scope.BalanceAsOf(ctx, accountID, start, recursive)
	if err != nil {
		return Statement{}, err
	}
	details, err := scope.LinesBetween(ctx, accountID, start, end, recursive)
	if err != nil {
		return Statement{}, err
	}
	st := Statement{
		Account:     acc,
		Start:       start,
		End:         end,
		Recursive:   recursive,
		Opening:     opening,
		Lines:       make([]StatementLine, 0, len(details)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	running := opening
	for _, d := range details {
		running = running.Add(d.Signed())
		line := StatementLine{
			LineID:        d.LineID,
			EntryID:       d.EntryID,
			EntryNumber:   d.EntryNumber,
			EntryDate:     d.EntryDate,
			VoucherNumber: d.VoucherNumber,
			Description:   d.Description,
			AccountID:     d.AccountID,
			Debit:         d.Debit,
			Credit:        d.Credit,
			Balance:       running,
		}
		if recursive {
			if origin, err := scope.Account(d.AccountID); err == nil {
				line.AccountCode = origin.Code
				line.AccountName = origin.Name
			}
		}
		if ref, err := journals.ParseReference(d.ReferenceType, d.ReferenceID); err == nil {
			line.Reference = journals.ViewOf(ref)
		}
		st.TotalDebit = st.TotalDebit.Add(d.Debit)
		st.TotalCredit = st.TotalCredit.Add(d.Credit)
		st.Lines = append(st.Lines, line)
	}
	st.Closing = opening.Add(st.TotalDebit).Sub(st.TotalCredit)
	return st, nil
}
