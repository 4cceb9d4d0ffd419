package accounting

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/settlement"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/subledger"
	"github.com/odyssey-erp/hotel-ledger/internal/integration"
)

// Options tunes a Ledger. Every field is optional.
type Options struct {
	Logger  *slog.Logger
	Cache   *reports.Cache
	Metrics journals.Metrics
	Drafter integration.InvoiceDrafter
	Queue   integration.Enqueuer
	Now     func() time.Time
}

// Ledger is the accounting core: chart of accounts, journal, periods,
// balances, reports and the inbound integration hooks, all over one backend.
type Ledger struct {
	Accounts   *accounts.Service
	Periods    *periods.Service
	Journals   *journals.Service
	Mappings   *mappings.Service
	Subledger  *subledger.Service
	Engine     *ledger.Engine
	Reports    *reports.Generator
	Settlement *settlement.Service
	Hooks      *integration.Hooks

	logger *slog.Logger
	cache  *reports.Cache
	queue  integration.Enqueuer
}

// New wires every ledger service onto backend.
func New(backend Backend, opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		Accounts:  accounts.NewService(backend.Accounts, backend.Audit, logger),
		Periods:   periods.NewService(backend.Periods, backend.Audit, logger),
		Journals:  journals.NewService(backend.Journals, backend.Audit, logger),
		Mappings:  mappings.NewService(backend.Mappings, backend.Audit, logger),
		Subledger: subledger.NewService(backend.Subledger, backend.Audit, logger),
		Engine:    ledger.NewEngine(backend.Balances),
		logger:    logger,
		cache:     opts.Cache,
		queue:     opts.Queue,
	}
	l.Reports = reports.NewGenerator(l.Engine, l.Subledger, logger)
	l.Settlement = settlement.NewService(l.Journals, l.Mappings, logger)
	l.Hooks = integration.NewHooks(l.Journals, l.Mappings, l.Subledger, logger)
	if opts.Drafter != nil {
		l.Hooks.WithDrafter(opts.Drafter)
	}
	if opts.Cache != nil {
		l.Accounts.WithNotifier(opts.Cache)
		l.Journals.WithNotifier(opts.Cache)
		l.Subledger.WithNotifier(opts.Cache)
		l.Reports.WithCache(opts.Cache)
	}
	if opts.Metrics != nil {
		l.Journals.WithMetrics(opts.Metrics)
	}
	if opts.Now != nil {
		l.Accounts.WithNow(opts.Now)
		l.Periods.WithNow(opts.Now)
		l.Journals.WithNow(opts.Now)
		l.Subledger.WithNow(opts.Now)
	}
	return l
}

// PostEntry records a balanced journal entry.
func (l *Ledger) PostEntry(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, error) {
	return l.Journals.PostEntry(ctx, in)
}

// ReverseEntry posts the mirror image of a posted entry.
func (l *Ledger) ReverseEntry(ctx context.Context, in journals.ReverseInput) (journals.JournalEntry, error) {
	return l.Journals.ReverseEntry(ctx, in)
}

// BalanceAsOf returns Σ(debit − credit) strictly before date.
func (l *Ledger) BalanceAsOf(ctx context.Context, accountID int64, date time.Time, recursive bool) (decimal.Decimal, error) {
	return l.Engine.BalanceAsOf(ctx, accountID, date, recursive)
}

// MovementBetween returns debit and credit totals in [start, end].
func (l *Ledger) MovementBetween(ctx context.Context, accountID int64, start, end time.Time, recursive bool) (ledger.Movement, error) {
	return l.Engine.MovementBetween(ctx, accountID, start, end, recursive)
}

// GenerateStatement builds an account statement with running balances.
func (l *Ledger) GenerateStatement(ctx context.Context, accountID int64, start, end time.Time, recursive bool) (reports.Statement, error) {
	return l.Reports.GenerateStatement(ctx, accountID, start, end, recursive)
}

// TrialBalance lists every account's opening, movement and closing.
func (l *Ledger) TrialBalance(ctx context.Context, start, end time.Time) (reports.TrialBalance, error) {
	return l.Reports.TrialBalance(ctx, start, end)
}

// SettlePlatformBalance clears a platform receivable into the bank.
func (l *Ledger) SettlePlatformBalance(ctx context.Context, in settlement.Input) (journals.JournalEntry, error) {
	return l.Settlement.SettlePlatformBalance(ctx, in)
}

// OnBookingCreated handles a confirmed booking.
func (l *Ledger) OnBookingCreated(ctx context.Context, evt integration.BookingCreated) (subledger.CustomerAccount, error) {
	return l.Hooks.OnBookingCreated(ctx, evt)
}

// OnInvoiceIssued posts an issued invoice.
func (l *Ledger) OnInvoiceIssued(ctx context.Context, evt integration.InvoiceIssued) (journals.JournalEntry, error) {
	return l.Hooks.OnInvoiceIssued(ctx, evt)
}

// OnPaymentRecorded posts a received payment.
func (l *Ledger) OnPaymentRecorded(ctx context.Context, evt integration.PaymentRecorded) (journals.JournalEntry, error) {
	return l.Hooks.OnPaymentRecorded(ctx, evt)
}
