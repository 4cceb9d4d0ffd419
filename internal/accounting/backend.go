package accounting

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/subledger"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Backend bundles the repositories a Ledger runs on.
type Backend struct {
	Accounts  accounts.Repository
	Periods   periods.Repository
	Journals  journals.Repository
	Mappings  mappings.Repository
	Subledger subledger.Repository
	Balances  ledger.Store
	Audit     AuditPort
}

// PostgresBackend wires the pgx repositories onto pool.
func PostgresBackend(pool *pgxpool.Pool) Backend {
	return Backend{
		Accounts:  accounts.NewRepository(pool),
		Periods:   periods.NewRepository(pool),
		Journals:  journals.NewRepository(pool),
		Mappings:  mappings.NewRepository(pool),
		Subledger: subledger.NewRepository(pool),
		Balances:  ledger.NewStore(pool),
		Audit:     shared.NewAuditLogger(pool),
	}
}

// MemoryBackend wires the in-process store. Audit records stay in store.
func MemoryBackend(store *memstore.Store) Backend {
	return Backend{
		Accounts:  store.Accounts(),
		Periods:   store.Periods(),
		Journals:  store.Journals(),
		Mappings:  store.Mappings(),
		Subledger: store.Subledger(),
		Balances:  store.Ledger(),
		Audit:     store,
	}
}
