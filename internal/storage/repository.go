// Package storage provides the SQLite record store. Rows get monotonically
// increasing ids, so reading back ordered by id reproduces append order —
// the property the income last-write-wins rule needs.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ records.Store = (*SQLiteRepository)(nil)

// Table names used by the sync queue.
const (
	TableExpenses = "expenses"
	TableIncome   = "income"
	TableBudgets  = "category_budgets"
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendExpense implements records.ExpenseWriter.
func (r *SQLiteRepository) AppendExpense(ctx context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, category, description, amount_cents) VALUES (?, ?, ?, ?)`,
		e.Date.Format("2006-01-02"), string(e.Category), e.Description, e.Amount.Cents)
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"category", e.Category,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.Format("2006-01-02"))

	return strconv.FormatInt(id, 10), nil
}

// AppendIncome implements records.IncomeWriter.
func (r *SQLiteRepository) AppendIncome(ctx context.Context, rec core.IncomeRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income (period, amount_cents, source, recorded_at) VALUES (?, ?, ?, ?)`,
		rec.Period.String(), rec.Amount.Cents, rec.Source, rec.RecordedAt.Format("2006-01-02"))
	if err != nil {
		return "", fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("income id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved", "id", id, "period", rec.Period.String(), "amount_cents", rec.Amount.Cents)
	return strconv.FormatInt(id, 10), nil
}

// AppendAllocation implements records.BudgetWriter.
func (r *SQLiteRepository) AppendAllocation(ctx context.Context, a core.BudgetAllocation) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO category_budgets (period, category, planned_cents, recorded_at) VALUES (?, ?, ?, ?)`,
		a.Period.String(), string(a.Category), a.Planned.Cents, a.RecordedAt.Format("2006-01-02"))
	if err != nil {
		return "", fmt.Errorf("insert allocation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("allocation id: %w", err)
	}

	slog.InfoContext(ctx, "Budget allocation saved",
		"id", id, "period", a.Period.String(), "category", a.Category, "planned_cents", a.Planned.Cents)
	return strconv.FormatInt(id, 10), nil
}

// ListExpenses implements records.ExpenseSource. Rows with dates that no
// longer parse are skipped rather than failing the whole read.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, category, description, amount_cents FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		var dateStr, category, description string
		var cents int64
		if err := rows.Scan(&dateStr, &category, &description, &cents); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping expense with unparseable date", "date", dateStr)
			continue
		}
		out = append(out, core.ExpenseRecord{
			Date:        core.Date{Time: t},
			Category:    core.Category(category),
			Description: description,
			Amount:      core.Money{Cents: cents},
		})
	}
	return out, rows.Err()
}

// ListIncome implements records.IncomeSource.
func (r *SQLiteRepository) ListIncome(ctx context.Context) ([]core.IncomeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period, amount_cents, source, recorded_at FROM income ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeRecord
	for rows.Next() {
		var periodStr, source, recordedStr string
		var cents int64
		if err := rows.Scan(&periodStr, &cents, &source, &recordedStr); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		period, err := core.ParsePeriod(periodStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping income with unparseable period", "period", periodStr)
			continue
		}
		rec := core.IncomeRecord{Period: period, Amount: core.Money{Cents: cents}, Source: source}
		if t, err := time.Parse("2006-01-02", recordedStr); err == nil {
			rec.RecordedAt = core.Date{Time: t}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListAllocations implements records.BudgetSource.
func (r *SQLiteRepository) ListAllocations(ctx context.Context) ([]core.BudgetAllocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period, category, planned_cents, recorded_at FROM category_budgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetAllocation
	for rows.Next() {
		var periodStr, category, recordedStr string
		var cents int64
		if err := rows.Scan(&periodStr, &category, &cents, &recordedStr); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		period, err := core.ParsePeriod(periodStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping allocation with unparseable period", "period", periodStr)
			continue
		}
		a := core.BudgetAllocation{Period: period, Category: core.Category(category), Planned: core.Money{Cents: cents}}
		if t, err := time.Parse("2006-01-02", recordedStr); err == nil {
			a.RecordedAt = core.Date{Time: t}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PendingSyncRow identifies a locally stored record that has not reached the
// spreadsheet yet.
type PendingSyncRow struct {
	Table     string
	ID        int64
	CreatedAt time.Time
}

func validTable(table string) error {
	switch table {
	case TableExpenses, TableIncome, TableBudgets:
		return nil
	}
	return fmt.Errorf("unknown record table: %s", table)
}

// ListPendingSync returns up to limit unsynced rows of one table, oldest
// first.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, table string, limit int) ([]PendingSyncRow, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, created_at FROM %s WHERE synced_at IS NULL AND sync_error = 0 ORDER BY id LIMIT ?`, table)
	rows, err := r.db.QueryContext(ctx, q, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending sync rows: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncRow
	for rows.Next() {
		p := PendingSyncRow{Table: table}
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced stamps a row as mirrored to the spreadsheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, table string, id int64) error {
	if err := validTable(table); err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET synced_at = CURRENT_TIMESTAMP, sync_error = 0 WHERE id = ?`, table)
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a row whose sync attempt failed so the periodic sweep
// does not retry it forever.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, table string, id int64) error {
	if err := validTable(table); err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET sync_error = 1 WHERE id = ?`, table)
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Record marked with sync error", "table", table, "id", id)
	return nil
}

// GetExpense fetches one expense row by id for the sync worker.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	var dateStr, category, description string
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT date, category, description, amount_cents FROM expenses WHERE id = ?`, id).
		Scan(&dateStr, &category, &description, &cents)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %d date: %w", id, err)
	}
	return core.ExpenseRecord{
		Date:        core.Date{Time: t},
		Category:    core.Category(category),
		Description: description,
		Amount:      core.Money{Cents: cents},
	}, nil
}

// GetIncome fetches one income row by id for the sync worker.
func (r *SQLiteRepository) GetIncome(ctx context.Context, id int64) (core.IncomeRecord, error) {
	var periodStr, source, recordedStr string
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT period, amount_cents, source, recorded_at FROM income WHERE id = ?`, id).
		Scan(&periodStr, &cents, &source, &recordedStr)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("get income %d: %w", id, err)
	}
	period, err := core.ParsePeriod(periodStr)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("income %d period: %w", id, err)
	}
	rec := core.IncomeRecord{Period: period, Amount: core.Money{Cents: cents}, Source: source}
	if t, err := time.Parse("2006-01-02", recordedStr); err == nil {
		rec.RecordedAt = core.Date{Time: t}
	}
	return rec, nil
}

// GetAllocation fetches one budget allocation row by id for the sync worker.
func (r *SQLiteRepository) GetAllocation(ctx context.Context, id int64) (core.BudgetAllocation, error) {
	var periodStr, category, recordedStr string
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT period, category, planned_cents, recorded_at FROM category_budgets WHERE id = ?`, id).
		Scan(&periodStr, &category, &cents, &recordedStr)
	if err != nil {
		return core.BudgetAllocation{}, fmt.Errorf("get allocation %d: %w", id, err)
	}
	period, err := core.ParsePeriod(periodStr)
	if err != nil {
		return core.BudgetAllocation{}, fmt.Errorf("allocation %d period: %w", id, err)
	}
	a := core.BudgetAllocation{Period: period, Category: core.Category(category), Planned: core.Money{Cents: cents}}
	if t, err := time.Parse("2006-01-02", recordedStr); err == nil {
		a.RecordedAt = core.Date{Time: t}
	}
	return a, nil
}
