package memstore

import (
	"context"
	"sort"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/subledger"
)

type subledgerRepo struct {
	s *Store
}

func (r *subledgerRepo) Get(ctx context.Context, customerID int64) (subledger.Link, error) {
	l, ok := r.s.snapshot().links[customerID]
	if !ok {
		return subledger.Link{}, shared.ErrCustomerNotLinked
	}
	return l, nil
}

func (r *subledgerRepo) List(ctx context.Context) ([]subledger.Link, error) {
	st := r.s.snapshot()
	out := make([]subledger.Link, 0, len(st.links))
	for _, l := range st.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

func (r *subledgerRepo) WithTx(ctx context.Context, fn func(context.Context, subledger.TxRepository) error) error {
	return r.s.write(func(st *state) error {
		return fn(ctx, &subledgerTx{st: st, s: r.s})
	})
}

type subledgerTx struct {
	st *state
	s  *Store
}

func (t *subledgerTx) GetLink(ctx context.Context, customerID int64) (subledger.Link, error) {
	l, ok := t.st.links[customerID]
	if !ok {
		return subledger.Link{}, shared.ErrCustomerNotLinked
	}
	return l, nil
}

func (t *subledgerTx) LinkByAccount(ctx context.Context, accountID int64) (subledger.Link, error) {
	for _, l := range t.st.links {
		if l.AccountID == accountID {
			return l, nil
		}
	}
	return subledger.Link{}, shared.ErrCustomerNotLinked
}

func (t *subledgerTx) ControlAccount(ctx context.Context) (accounts.Account, error) {
	m, err := t.st.mapping(mappings.ModuleSubledger, mappings.KeyReceivablesControl)
	if err != nil {
		return accounts.Account{}, err
	}
	return t.GetAccount(ctx, m.AccountID)
}

func (t *subledgerTx) GetAccount(ctx context.Context, id int64) (accounts.Account, error) {
	acc, ok := t.st.accounts[id]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return acc, nil
}

func (t *subledgerTx) InsertAccount(ctx context.Context, acc accounts.Account) (accounts.Account, error) {
	return t.st.insertAccount(acc, t.s.now())
}

func (t *subledgerTx) InsertLink(ctx context.Context, link subledger.Link) (subledger.Link, error) {
	if _, ok := t.st.links[link.CustomerID]; ok {
		return subledger.Link{}, shared.ErrCustomerAlreadyLinked
	}
	for _, l := range t.st.links {
		if l.AccountID == link.AccountID {
			return subledger.Link{}, shared.ErrCustomerAlreadyLinked
		}
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = t.s.now()
	}
	t.st.links[link.CustomerID] = link
	return link, nil
}
