package memstore

import (
	"context"
	"sort"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

type mappingRepo struct {
	s *Store
}

func (st *state) mapping(module, key string) (mappings.AccountMapping, error) {
	module, key = mappings.Normalize(module, key)
	m, ok := st.mappings[mappingKey{module: module, key: key}]
	if !ok {
		return mappings.AccountMapping{}, shared.ErrMappingNotFound
	}
	return m, nil
}

func (r *mappingRepo) Get(ctx context.Context, module, key string) (mappings.AccountMapping, error) {
	return r.s.snapshot().mapping(module, key)
}

func (r *mappingRepo) List(ctx context.Context) ([]mappings.AccountMapping, error) {
	st := r.s.snapshot()
	out := make([]mappings.AccountMapping, 0, len(st.mappings))
	for _, m := range st.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r *mappingRepo) Upsert(ctx context.Context, m mappings.AccountMapping) (mappings.AccountMapping, error) {
	err := r.s.write(func(st *state) error {
		if _, ok := st.accounts[m.AccountID]; !ok {
			return shared.ErrAccountNotFound
		}
		m.Module, m.Key = mappings.Normalize(m.Module, m.Key)
		k := mappingKey{module: m.Module, key: m.Key}
		now := r.s.now()
		m.CreatedAt = now
		if existing, ok := st.mappings[k]; ok {
			m.CreatedAt = existing.CreatedAt
		}
		m.UpdatedAt = now
		st.mappings[k] = m
		return nil
	})
	if err != nil {
		return mappings.AccountMapping{}, err
	}
	return m, nil
}
