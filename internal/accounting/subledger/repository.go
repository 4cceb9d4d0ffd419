package subledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/db"
)

// Repository persists customer links.
type Repository interface {
	Get(ctx context.Context, customerID int64) (Link, error)
	List(ctx context.Context) ([]Link, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the reads and writes needed to open a sub-account atomically.
type TxRepository interface {
	GetLink(ctx context.Context, customerID int64) (Link, error)
	LinkByAccount(ctx context.Context, accountID int64) (Link, error)
	ControlAccount(ctx context.Context) (accounts.Account, error)
	GetAccount(ctx context.Context, id int64) (accounts.Account, error)
	InsertAccount(ctx context.Context, acc accounts.Account) (accounts.Account, error)
	InsertLink(ctx context.Context, link Link) (Link, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanLink(row pgx.Row) (Link, error) {
	var l Link
	if err := row.Scan(&l.CustomerID, &l.AccountID, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, shared.ErrCustomerNotLinked
		}
		return Link{}, err
	}
	return l, nil
}

func (r *repository) Get(ctx context.Context, customerID int64) (Link, error) {
	return scanLink(r.db.QueryRow(ctx, `SELECT customer_id, account_id, created_at FROM customer_account_links WHERE customer_id=$1`, customerID))
}

func (r *repository) List(ctx context.Context) ([]Link, error) {
	rows, err := r.db.Query(ctx, `SELECT customer_id, account_id, created_at FROM customer_account_links ORDER BY customer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetLink(ctx context.Context, customerID int64) (Link, error) {
	return scanLink(r.tx.QueryRow(ctx, `SELECT customer_id, account_id, created_at FROM customer_account_links WHERE customer_id=$1 FOR UPDATE`, customerID))
}

func (r *txRepository) LinkByAccount(ctx context.Context, accountID int64) (Link, error) {
	return scanLink(r.tx.QueryRow(ctx, `SELECT customer_id, account_id, created_at FROM customer_account_links WHERE account_id=$1`, accountID))
}

func (r *txRepository) ControlAccount(ctx context.Context) (accounts.Account, error) {
	m, err := mappings.Lookup(ctx, r.tx, mappings.ModuleSubledger, mappings.KeyReceivablesControl)
	if err != nil {
		return accounts.Account{}, err
	}
	return r.GetAccount(ctx, m.AccountID)
}

func (r *txRepository) GetAccount(ctx context.Context, id int64) (accounts.Account, error) {
	return accounts.ScanAccount(r.tx.QueryRow(ctx, `SELECT id, code, name, type, parent_id, is_active, created_at, updated_at FROM accounts WHERE id=$1`, id))
}

func (r *txRepository) InsertAccount(ctx context.Context, acc accounts.Account) (accounts.Account, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO accounts (code, name, type, parent_id, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`, acc.Code, acc.Name, acc.Type, acc.ParentID, acc.IsActive).
		Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if db.ConstraintViolation(err, db.CodeUniqueViolation, "accounts_code_key") {
			return accounts.Account{}, shared.ErrDuplicateCode
		}
		return accounts.Account{}, err
	}
	return acc, nil
}

func (r *txRepository) InsertLink(ctx context.Context, link Link) (Link, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO customer_account_links (customer_id, account_id) VALUES ($1,$2) RETURNING created_at`,
		link.CustomerID, link.AccountID).Scan(&link.CreatedAt)
	if err != nil {
		if db.ConstraintViolation(err, db.CodeUniqueViolation, "") {
			return Link{}, shared.ErrCustomerAlreadyLinked
		}
		return Link{}, err
	}
	return link, nil
}
