package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// Repository persists accounting periods.
type Repository interface {
	List(ctx context.Context) ([]Period, error)
	Get(ctx context.Context, id int64) (Period, error)
	OpenCovering(ctx context.Context, date time.Time) ([]Period, error)
	OpenOverlapping(ctx context.Context, start, end time.Time) ([]Period, error)
	Insert(ctx context.Context, p Period) (Period, error)
	UpdateStatus(ctx context.Context, p Period) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Columns is the select list understood by ScanPeriod.
const Columns = `id, name, start_date, end_date, status, opened_at, opened_by, closed_at, closed_by, created_at, updated_at`

// ScanPeriod reads one row selected with Columns.
func ScanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.OpenedAt, &p.OpenedBy, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}

// CollectPeriods drains rows selected with Columns.
func CollectPeriods(rows pgx.Rows) ([]Period, error) {
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := ScanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+Columns+` FROM accounting_periods ORDER BY start_date, id`)
	if err != nil {
		return nil, err
	}
	return CollectPeriods(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	return ScanPeriod(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM accounting_periods WHERE id=$1`, id))
}

func (r *repository) OpenCovering(ctx context.Context, date time.Time) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+Columns+` FROM accounting_periods
WHERE status='OPEN' AND $1::date BETWEEN start_date AND end_date ORDER BY opened_at DESC, id DESC`, date)
	if err != nil {
		return nil, err
	}
	return CollectPeriods(rows)
}

func (r *repository) OpenOverlapping(ctx context.Context, start, end time.Time) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+Columns+` FROM accounting_periods
WHERE status='OPEN' AND start_date <= $2::date AND end_date >= $1::date ORDER BY start_date, id`, start, end)
	if err != nil {
		return nil, err
	}
	return CollectPeriods(rows)
}

func (r *repository) Insert(ctx context.Context, p Period) (Period, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounting_periods (name, start_date, end_date, status, opened_at, opened_by)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`, p.Name, p.StartDate, p.EndDate, p.Status, p.OpenedAt, p.OpenedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

func (r *repository) UpdateStatus(ctx context.Context, p Period) (Period, error) {
	err := r.db.QueryRow(ctx, `UPDATE accounting_periods SET status=$2, opened_at=$3, opened_by=$4, closed_at=$5, closed_by=$6, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`, p.ID, p.Status, p.OpenedAt, p.OpenedBy, p.ClosedAt, p.ClosedBy).
		Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}
