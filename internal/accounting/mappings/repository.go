package mappings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/db"
)

// Repository persists account mappings.
type Repository interface {
	Get(ctx context.Context, module, key string) (AccountMapping, error)
	List(ctx context.Context) ([]AccountMapping, error)
	Upsert(ctx context.Context, m AccountMapping) (AccountMapping, error)
}

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Lookup resolves a mapping through q so transactional callers can reuse it.
func Lookup(ctx context.Context, q Querier, module, key string) (AccountMapping, error) {
	module, key = Normalize(module, key)
	if module == "" || key == "" {
		return AccountMapping{}, shared.Invalid(shared.ErrMissingField, "mapping", module+"/"+key)
	}
	var mapping AccountMapping
	err := q.QueryRow(ctx, `SELECT module, key, account_id, created_at, updated_at FROM account_mappings WHERE module=$1 AND key=$2`, module, key).
		Scan(&mapping.Module, &mapping.Key, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, shared.ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	return Lookup(ctx, r.db, module, key)
}

func (r *repository) List(ctx context.Context) ([]AccountMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT module, key, account_id, created_at, updated_at FROM account_mappings ORDER BY module, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, m AccountMapping) (AccountMapping, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO account_mappings (module, key, account_id) VALUES ($1,$2,$3)
ON CONFLICT (module, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()
RETURNING created_at, updated_at`, m.Module, m.Key, m.AccountID).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if db.ConstraintViolation(err, db.CodeForeignKeyViolation, "") {
			return AccountMapping{}, shared.ErrAccountNotFound
		}
		return AccountMapping{}, err
	}
	return m, nil
}
