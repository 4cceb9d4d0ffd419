package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/db"
)

// Repository persists chart of accounts nodes.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	Insert(ctx context.Context, acc Account) (Account, error)
	Update(ctx context.Context, acc Account) (Account, error)
	Delete(ctx context.Context, id int64) error
	Usage(ctx context.Context, id int64) (Usage, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type, parent_id, is_active, created_at, updated_at`

// ScanAccount reads a row selected with the accounts column list.
func ScanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := ScanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	return ScanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	return ScanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

func (r *repository) Insert(ctx context.Context, acc Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (code, name, type, parent_id, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`, acc.Code, acc.Name, acc.Type, acc.ParentID, acc.IsActive).
		Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return Account{}, translateWriteError(err)
	}
	return acc, nil
}

func (r *repository) Update(ctx context.Context, acc Account) (Account, error) {
	err := r.db.QueryRow(ctx, `UPDATE accounts SET code=$2, name=$3, type=$4, parent_id=$5, is_active=$6, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`, acc.ID, acc.Code, acc.Name, acc.Type, acc.ParentID, acc.IsActive).
		Scan(&acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, translateWriteError(err)
	}
	return acc, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		if db.ConstraintViolation(err, db.CodeForeignKeyViolation, "") {
			return shared.ErrAccountInUse
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) Usage(ctx context.Context, id int64) (Usage, error) {
	var u Usage
	err := r.db.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM journal_lines WHERE account_id=$1),
	(SELECT COUNT(*) FROM accounts WHERE parent_id=$1),
	(SELECT COUNT(*) FROM customer_account_links WHERE account_id=$1)`, id).
		Scan(&u.Lines, &u.Children, &u.Links)
	return u, err
}

func translateWriteError(err error) error {
	switch {
	case db.ConstraintViolation(err, db.CodeUniqueViolation, "accounts_code_key"):
		return shared.ErrDuplicateCode
	case db.ConstraintViolation(err, db.CodeForeignKeyViolation, "accounts_parent_id_fkey"):
		return shared.ErrInvalidParent
	}
	return err
}
