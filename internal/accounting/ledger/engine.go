package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// Reader answers aggregate queries over POSTED journal lines. Every method
// sees the same snapshot for the lifetime of one ReadSnapshot call.
type Reader interface {
	Accounts(ctx context.Context) ([]accounts.Account, error)
	// SumBefore returns Σ(debit − credit) for entries dated strictly before before.
	SumBefore(ctx context.Context, accountIDs []int64, before time.Time) (decimal.Decimal, error)
	// SumBetween returns gross debit and credit for start ≤ entry_date ≤ end.
	SumBetween(ctx context.Context, accountIDs []int64, start, end time.Time) (Movement, error)
	// LinesBetween lists lines ordered by entry date, entry creation, line id.
	LinesBetween(ctx context.Context, accountIDs []int64, start, end time.Time) ([]LineDetail, error)
	// BalancesBefore is SumBefore grouped by account over the whole ledger.
	BalancesBefore(ctx context.Context, before time.Time) (map[int64]decimal.Decimal, error)
	// MovementsBetween is SumBetween grouped by account over the whole ledger.
	MovementsBetween(ctx context.Context, start, end time.Time) (map[int64]Movement, error)
}

// Store opens consistent read snapshots.
type Store interface {
	ReadSnapshot(ctx context.Context, fn func(context.Context, Reader) error) error
}

// Engine computes balances and movements. It never writes.
type Engine struct {
	store Store
}

// NewEngine constructs the balance engine.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Snapshot runs fn with a Scope bound to one read snapshot.
func (e *Engine) Snapshot(ctx context.Context, fn func(context.Context, *Scope) error) error {
	return e.store.ReadSnapshot(ctx, func(ctx context.Context, r Reader) error {
		scope, err := NewScope(ctx, r)
		if err != nil {
			return err
		}
		return fn(ctx, scope)
	})
}

// BalanceAsOf returns the signed balance of accountID before date.
func (e *Engine) BalanceAsOf(ctx context.Context, accountID int64, date time.Time, recursive bool) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := e.Snapshot(ctx, func(ctx context.Context, s *Scope) error {
		var err error
		out, err = s.BalanceAsOf(ctx, accountID, date, recursive)
		return err
	})
	return out, err
}

// MovementBetween returns gross debit and credit of accountID within [start, end].
func (e *Engine) MovementBetween(ctx context.Context, accountID int64, start, end time.Time, recursive bool) (Movement, error) {
	var out Movement
	err := e.Snapshot(ctx, func(ctx context.Context, s *Scope) error {
		var err error
		out, err = s.MovementBetween(ctx, accountID, start, end, recursive)
		return err
	})
	return out, err
}

// Scope memoises the account hierarchy and descendant sets for one query.
// It must not be shared across requests.
type Scope struct {
	reader      Reader
	tree        *accounts.Tree
	descendants map[int64][]int64
}

// NewScope loads the chart of accounts through r.
func NewScope(ctx context.Context, r Reader) (*Scope, error) {
	all, err := r.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{reader: r, tree: accounts.NewTree(all), descendants: make(map[int64][]int64)}, nil
}

// Tree exposes the hierarchy loaded for this scope.
func (s *Scope) Tree() *accounts.Tree { return s.tree }

// Reader exposes the snapshot reader.
func (s *Scope) Reader() Reader { return s.reader }

// Account resolves id or fails with a reference error.
func (s *Scope) Account(id int64) (accounts.Account, error) {
	node, ok := s.tree.Node(id)
	if !ok {
		return accounts.Account{}, shared.Unresolved(shared.ErrAccountNotFound, "account", id)
	}
	return node.Account, nil
}

// AccountSet returns id alone or id followed by its transitive descendants.
func (s *Scope) AccountSet(id int64, recursive bool) ([]int64, error) {
	if _, err := s.Account(id); err != nil {
		return nil, err
	}
	if !recursive {
		return []int64{id}, nil
	}
	if set, ok := s.descendants[id]; ok {
		return set, nil
	}
	set := append([]int64{id}, s.tree.Descendants(id)...)
	s.descendants[id] = set
	return set, nil
}

// BalanceAsOf sums debit minus credit over entries dated strictly before date.
func (s *Scope) BalanceAsOf(ctx context.Context, id int64, date time.Time, recursive bool) (decimal.Decimal, error) {
	set, err := s.AccountSet(id, recursive)
	if err != nil {
		return decimal.Zero, err
	}
	return s.reader.SumBefore(ctx, set, shared.Day(date))
}

// MovementBetween sums debit and credit separately over start ≤ entry_date ≤ end.
func (s *Scope) MovementBetween(ctx context.Context, id int64, start, end time.Time, recursive bool) (Movement, error) {
	if err := shared.ValidateRange(start, end); err != nil {
		return Movement{}, err
	}
	set, err := s.AccountSet(id, recursive)
	if err != nil {
		return Movement{}, err
	}
	return s.reader.SumBetween(ctx, set, shared.Day(start), shared.Day(end))
}

// LinesBetween lists the posted lines of the account set within [start, end].
func (s *Scope) LinesBetween(ctx context.Context, id int64, start, end time.Time, recursive bool) ([]LineDetail, error) {
	if err := shared.ValidateRange(start, end); err != nil {
		return nil, err
	}
	set, err := s.AccountSet(id, recursive)
	if err != nil {
		return nil, err
	}
	return s.reader.LinesBetween(ctx, set, shared.Day(start), shared.Day(end))
}
