package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/db"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (JournalEntry, error)
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, int, error)
	FindByReference(ctx context.Context, ref Reference) ([]JournalEntry, error)
	FindBySource(ctx context.Context, key SourceKey) (JournalEntry, error)
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	OpenPeriodsCovering(ctx context.Context, date time.Time) ([]periods.Period, error)
	NextOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error)
	AccountsByID(ctx context.Context, ids []int64) (map[int64]accounts.Account, error)
	NextNumber(ctx context.Context) (int64, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error)
	LinkSource(ctx context.Context, key SourceKey, entryID int64) error
	GetEntry(ctx context.Context, id int64) (JournalEntry, error)
	FindReversal(ctx context.Context, entryID int64) (int64, bool, error)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the Postgres backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `je.id, je.number, je.period_id, je.entry_date, je.voucher_number, je.description, je.status,
je.reference_type, je.reference_id, je.reversal_of, sl.module, sl.ref_id, je.posted_by, je.posted_at, je.created_at`

const entryFrom = ` FROM journal_entries je LEFT JOIN source_links sl ON sl.journal_entry_id = je.id`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var (
		e         JournalEntry
		refType   *string
		refID     *int64
		srcModule *string
		srcRef    *uuid.UUID
		postedBy  *int64
	)
	err := row.Scan(&e.ID, &e.Number, &e.PeriodID, &e.EntryDate, &e.VoucherNumber, &e.Description, &e.Status,
		&refType, &refID, &e.ReversalOf, &srcModule, &srcRef, &postedBy, &e.PostedAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	if refType != nil && refID != nil {
		ref, err := ParseReference(*refType, *refID)
		if err != nil {
			return JournalEntry{}, fmt.Errorf("journals: entry %d: %w", e.ID, err)
		}
		e.Reference = ref
	}
	if srcModule != nil && srcRef != nil {
		e.Source = &SourceKey{Module: *srcModule, Ref: *srcRef}
	}
	if postedBy != nil {
		e.PostedBy = *postedBy
	}
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]JournalEntry, error) {
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func loadLines(ctx context.Context, q queryer, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int64, len(entries))
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
	}
	rows, err := q.Query(ctx, `SELECT id, journal_entry_id, account_id, debit, credit, created_at
FROM journal_lines WHERE journal_entry_id = ANY($1) ORDER BY journal_entry_id, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.JournalID, &line.AccountID, &line.Debit, &line.Credit, &line.CreatedAt); err != nil {
			return err
		}
		i := index[line.JournalID]
		entries[i].Lines = append(entries[i].Lines, line)
	}
	return rows.Err()
}

func getEntry(ctx context.Context, q queryer, id int64) (JournalEntry, error) {
	entry, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE je.id=$1`, id))
	if err != nil {
		return JournalEntry{}, err
	}
	list := []JournalEntry{entry}
	if err := loadLines(ctx, q, list); err != nil {
		return JournalEntry{}, err
	}
	return list[0], nil
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return getEntry(ctx, r.db, id)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.From != nil {
		args = append(args, shared.Day(*filter.From))
		where = append(where, fmt.Sprintf("je.entry_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, shared.Day(*filter.To))
		where = append(where, fmt.Sprintf("je.entry_date <= $%d", len(args)))
	}
	if filter.AccountID > 0 {
		args = append(args, filter.AccountID)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM journal_lines jl WHERE jl.journal_entry_id = je.id AND jl.account_id = $%d)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries je`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, perPage := shared.NormalizePage(filter.Page, filter.PerPage)
	args = append(args, perPage, shared.Offset(page, perPage))
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+entryFrom+clause+
		fmt.Sprintf(` ORDER BY je.entry_date DESC, je.number DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := loadLines(ctx, r.db, entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) FindByReference(ctx context.Context, ref Reference) ([]JournalEntry, error) {
	kind, id := splitReference(ref)
	if kind == nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+entryFrom+`
WHERE je.reference_type=$1 AND je.reference_id=$2 AND je.status='POSTED' ORDER BY je.number`, *kind, *id)
	if err != nil {
		return nil, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	if err := loadLines(ctx, r.db, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindBySource(ctx context.Context, key SourceKey) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE sl.module=$1 AND sl.ref_id=$2`, key.Module, key.Ref))
	if err != nil {
		return JournalEntry{}, err
	}
	list := []JournalEntry{entry}
	if err := loadLines(ctx, r.db, list); err != nil {
		return JournalEntry{}, err
	}
	return list[0], nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// OpenPeriodsCovering share-locks the candidate periods so a concurrent close
// waits for this posting to commit.
func (r *txRepository) OpenPeriodsCovering(ctx context.Context, date time.Time) ([]periods.Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+periods.Columns+` FROM accounting_periods
WHERE status='OPEN' AND $1::date BETWEEN start_date AND end_date ORDER BY opened_at DESC, id DESC FOR SHARE`, date)
	if err != nil {
		return nil, err
	}
	return periods.CollectPeriods(rows)
}

func (r *txRepository) NextOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error) {
	return periods.ScanPeriod(r.tx.QueryRow(ctx, `SELECT `+periods.Columns+` FROM accounting_periods
WHERE status='OPEN' AND start_date > $1::date ORDER BY start_date ASC, opened_at DESC, id DESC LIMIT 1 FOR SHARE`, date))
}

func (r *txRepository) AccountsByID(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, name, type, parent_id, is_active, created_at, updated_at
FROM accounts WHERE id = ANY($1) FOR SHARE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]accounts.Account, len(ids))
	for rows.Next() {
		acc, err := accounts.ScanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[acc.ID] = acc
	}
	return out, rows.Err()
}

func (r *txRepository) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `SELECT nextval('journal_entry_number_seq')`).Scan(&n)
	return n, err
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	refType, refID := splitReference(e.Reference)
	var postedBy *int64
	if e.PostedBy > 0 {
		postedBy = &e.PostedBy
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(number, period_id, entry_date, voucher_number, description, status, reference_type, reference_id, reversal_of, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at`,
		e.Number, e.PeriodID, e.EntryDate, e.VoucherNumber, e.Description, e.Status, refType, refID, e.ReversalOf, postedBy, e.PostedAt).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		switch {
		case db.ConstraintViolation(err, db.CodeUniqueViolation, "journal_entries_reversal_of_key"):
			return JournalEntry{}, shared.ErrAlreadyReversed
		case db.ConstraintViolation(err, db.CodeUniqueViolation, "journal_entries_voucher_number_key"):
			return JournalEntry{}, shared.ErrDuplicateVoucher
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		line.JournalID = entryID
		if err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (journal_entry_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4) RETURNING id, created_at`, entryID, line.AccountID, line.Debit, line.Credit).
			Scan(&line.ID, &line.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) LinkSource(ctx context.Context, key SourceKey, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (module, ref_id, journal_entry_id) VALUES ($1,$2,$3)`, key.Module, key.Ref, entryID)
	if err != nil {
		if db.ConstraintViolation(err, db.CodeUniqueViolation, "source_links_pkey") {
			return shared.ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	return getEntry(ctx, r.tx, id)
}

func (r *txRepository) FindReversal(ctx context.Context, entryID int64) (int64, bool, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM journal_entries WHERE reversal_of=$1`, entryID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}
