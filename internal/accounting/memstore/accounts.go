package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

type accountRepo struct {
	s *Store
}

func sortedAccounts(st *state) []accounts.Account {
	out := make([]accounts.Account, 0, len(st.accounts))
	for _, acc := range st.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *accountRepo) List(ctx context.Context) ([]accounts.Account, error) {
	return sortedAccounts(r.s.snapshot()), nil
}

func (r *accountRepo) Get(ctx context.Context, id int64) (accounts.Account, error) {
	acc, ok := r.s.snapshot().accounts[id]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return acc, nil
}

func (r *accountRepo) GetByCode(ctx context.Context, code string) (accounts.Account, error) {
	for _, acc := range r.s.snapshot().accounts {
		if acc.Code == code {
			return acc, nil
		}
	}
	return accounts.Account{}, shared.ErrAccountNotFound
}

func (r *accountRepo) Insert(ctx context.Context, acc accounts.Account) (accounts.Account, error) {
	err := r.s.write(func(st *state) error {
		var err error
		acc, err = st.insertAccount(acc, r.s.now())
		return err
	})
	return acc, err
}

func (st *state) insertAccount(acc accounts.Account, now time.Time) (accounts.Account, error) {
	if err := st.checkAccount(acc); err != nil {
		return accounts.Account{}, err
	}
	st.accountSeq++
	acc.ID = st.accountSeq
	acc.CreatedAt, acc.UpdatedAt = now, now
	st.accounts[acc.ID] = acc
	return acc, nil
}

func (st *state) checkAccount(acc accounts.Account) error {
	for _, existing := range st.accounts {
		if existing.Code == acc.Code && existing.ID != acc.ID {
			return shared.ErrDuplicateCode
		}
	}
	if acc.ParentID != nil {
		if _, ok := st.accounts[*acc.ParentID]; !ok {
			return shared.ErrInvalidParent
		}
	}
	return nil
}

func (r *accountRepo) Update(ctx context.Context, acc accounts.Account) (accounts.Account, error) {
	err := r.s.write(func(st *state) error {
		current, ok := st.accounts[acc.ID]
		if !ok {
			return shared.ErrAccountNotFound
		}
		if err := st.checkAccount(acc); err != nil {
			return err
		}
		acc.CreatedAt = current.CreatedAt
		acc.UpdatedAt = r.s.now()
		st.accounts[acc.ID] = acc
		return nil
	})
	if err != nil {
		return accounts.Account{}, err
	}
	return acc, nil
}

func (r *accountRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return shared.ErrAccountNotFound
		}
		if st.usage(id).InUse() {
			return shared.ErrAccountInUse
		}
		for _, m := range st.mappings {
			if m.AccountID == id {
				return shared.ErrAccountInUse
			}
		}
		delete(st.accounts, id)
		return nil
	})
}

func (r *accountRepo) Usage(ctx context.Context, id int64) (accounts.Usage, error) {
	return r.s.snapshot().usage(id), nil
}

func (st *state) usage(id int64) accounts.Usage {
	var u accounts.Usage
	for _, e := range st.entries {
		for _, line := range e.Lines {
			if line.AccountID == id {
				u.Lines++
			}
		}
	}
	for _, acc := range st.accounts {
		if acc.ParentID != nil && *acc.ParentID == id {
			u.Children++
		}
	}
	for _, l := range st.links {
		if l.AccountID == id {
			u.Links++
		}
	}
	return u
}
