package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/db"
)

type store struct {
	db *pgxpool.Pool
}

// NewStore returns the Postgres backed snapshot store.
func NewStore(db *pgxpool.Pool) Store {
	return &store{db: db}
}

// ReadSnapshot runs fn inside a read-only repeatable-read transaction.
func (s *store) ReadSnapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	return db.WithReadSnapshot(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, &reader{tx: tx})
	})
}

type reader struct {
	tx pgx.Tx
}

const postedLines = ` FROM journal_lines jl JOIN journal_entries je ON je.id = jl.journal_entry_id WHERE je.status = 'POSTED'`

func (r *reader) Accounts(ctx context.Context) ([]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, name, type, parent_id, is_active, created_at, updated_at FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accounts.Account
	for rows.Next() {
		acc, err := accounts.ScanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (r *reader) SumBefore(ctx context.Context, accountIDs []int64, before time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(jl.debit - jl.credit), 0)`+postedLines+`
AND je.entry_date < $2::date AND jl.account_id = ANY($1)`, accountIDs, before).Scan(&sum)
	return sum, err
}

func (r *reader) SumBetween(ctx context.Context, accountIDs []int64, start, end time.Time) (Movement, error) {
	var m Movement
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)`+postedLines+`
AND je.entry_date BETWEEN $2::date AND $3::date AND jl.account_id = ANY($1)`, accountIDs, start, end).Scan(&m.Debit, &m.Credit)
	return m, err
}

func (r *reader) LinesBetween(ctx context.Context, accountIDs []int64, start, end time.Time) ([]LineDetail, error) {
	rows, err := r.tx.Query(ctx, `SELECT jl.id, je.id, je.number, je.entry_date, je.voucher_number, je.description,
COALESCE(je.reference_type, ''), COALESCE(je.reference_id, 0), jl.account_id, jl.debit, jl.credit, je.created_at`+postedLines+`
AND je.entry_date BETWEEN $2::date AND $3::date AND jl.account_id = ANY($1)
ORDER BY je.entry_date, je.created_at, jl.id`, accountIDs, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LineDetail
	for rows.Next() {
		var l LineDetail
		if err := rows.Scan(&l.LineID, &l.EntryID, &l.EntryNumber, &l.EntryDate, &l.VoucherNumber, &l.Description,
			&l.ReferenceType, &l.ReferenceID, &l.AccountID, &l.Debit, &l.Credit, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *reader) BalancesBefore(ctx context.Context, before time.Time) (map[int64]decimal.Decimal, error) {
	rows, err := r.tx.Query(ctx, `SELECT jl.account_id, SUM(jl.debit - jl.credit)`+postedLines+`
AND je.entry_date < $1::date GROUP BY jl.account_id`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			id  int64
			sum decimal.Decimal
		)
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[id] = sum
	}
	return out, rows.Err()
}

func (r *reader) MovementsBetween(ctx context.Context, start, end time.Time) (map[int64]Movement, error) {
	rows, err := r.tx.Query(ctx, `SELECT jl.account_id, SUM(jl.debit), SUM(jl.credit)`+postedLines+`
AND je.entry_date BETWEEN $1::date AND $2::date GROUP BY jl.account_id`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Movement)
	for rows.Next() {
		var (
			id int64
			m  Movement
		)
		if err := rows.Scan(&id, &m.Debit, &m.Credit); err != nil {
			return nil, err
		}
		out[id] = m
	}
	return out, rows.Err()
}
