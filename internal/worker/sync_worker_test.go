package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/records/memory"
	"fintrack/internal/storage"
)

// fakeQueue is an in-memory RecordQueue for worker tests.
type fakeQueue struct {
	expenses    map[int64]core.ExpenseRecord
	income      map[int64]core.IncomeRecord
	allocations map[int64]core.BudgetAllocation

	pending map[string][]int64
	synced  map[string][]int64
	errored map[string][]int64
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		expenses:    map[int64]core.ExpenseRecord{},
		income:      map[int64]core.IncomeRecord{},
		allocations: map[int64]core.BudgetAllocation{},
		pending:     map[string][]int64{},
		synced:      map[string][]int64{},
		errored:     map[string][]int64{},
	}
}

func (q *fakeQueue) ListPendingSync(_ context.Context, table string, limit int) ([]storage.PendingSyncRow, error) {
	var out []storage.PendingSyncRow
	for _, id := range q.pending[table] {
		if len(out) >= limit {
			break
		}
		out = append(out, storage.PendingSyncRow{Table: table, ID: id})
	}
	return out, nil
}

func (q *fakeQueue) MarkSynced(_ context.Context, table string, id int64) error {
	q.synced[table] = append(q.synced[table], id)
	return nil
}

func (q *fakeQueue) MarkSyncError(_ context.Context, table string, id int64) error {
	q.errored[table] = append(q.errored[table], id)
	return nil
}

func (q *fakeQueue) GetExpense(_ context.Context, id int64) (core.ExpenseRecord, error) {
	e, ok := q.expenses[id]
	if !ok {
		return core.ExpenseRecord{}, errors.New("expense not found")
	}
	return e, nil
}

func (q *fakeQueue) GetIncome(_ context.Context, id int64) (core.IncomeRecord, error) {
	r, ok := q.income[id]
	if !ok {
		return core.IncomeRecord{}, errors.New("income not found")
	}
	return r, nil
}

func (q *fakeQueue) GetAllocation(_ context.Context, id int64) (core.BudgetAllocation, error) {
	a, ok := q.allocations[id]
	if !ok {
		return core.BudgetAllocation{}, errors.New("allocation not found")
	}
	return a, nil
}

func TestHandleSyncMessageMirrorsExpense(t *testing.T) {
	ctx := context.Background()
	queue := newFakeQueue()
	queue.expenses[7] = core.ExpenseRecord{
		Date:        core.NewDate(2024, time.May, 3),
		Category:    "Groceries",
		Description: "weekly shop",
		Amount:      core.Money{Cents: 4550},
	}
	mirror := memory.New()
	w := NewSyncWorker(queue, mirror, 10)

	msg := &amqp.RecordSyncMessage{Table: storage.TableExpenses, ID: 7}
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle sync message: %v", err)
	}

	mirrored, _ := mirror.ListExpenses(ctx)
	if len(mirrored) != 1 || mirrored[0].Amount.Cents != 4550 {
		t.Fatalf("expense not mirrored: %+v", mirrored)
	}
	if got := queue.synced[storage.TableExpenses]; len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected row 7 marked synced, got %v", got)
	}
}

func TestHandleSyncMessageUnknownTable(t *testing.T) {
	w := NewSyncWorker(newFakeQueue(), memory.New(), 10)
	msg := &amqp.RecordSyncMessage{Table: "receipts", ID: 1}
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}

func TestHandleSyncMessageMissingRowMarksError(t *testing.T) {
	queue := newFakeQueue()
	w := NewSyncWorker(queue, memory.New(), 10)

	msg := &amqp.RecordSyncMessage{Table: storage.TableIncome, ID: 42}
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected error for missing row")
	}
	if got := queue.errored[storage.TableIncome]; len(got) != 1 || got[0] != 42 {
		t.Fatalf("expected row 42 marked errored, got %v", got)
	}
}

func TestProcessPendingSweepsAllTables(t *testing.T) {
	ctx := context.Background()
	queue := newFakeQueue()
	p := core.Period{Year: 2024, Month: time.May}

	queue.expenses[1] = core.ExpenseRecord{
		Date: core.NewDate(2024, time.May, 1), Category: "Lunch", Amount: core.Money{Cents: 900},
	}
	queue.income[2] = core.IncomeRecord{Period: p, Amount: core.Money{Cents: 300000}, Source: "Salary"}
	queue.allocations[3] = core.BudgetAllocation{Period: p, Category: "Groceries", Planned: core.Money{Cents: 20000}}
	queue.pending[storage.TableExpenses] = []int64{1}
	queue.pending[storage.TableIncome] = []int64{2}
	queue.pending[storage.TableBudgets] = []int64{3}

	mirror := memory.New()
	w := NewSyncWorker(queue, mirror, 10)

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	if rows, _ := mirror.ListExpenses(ctx); len(rows) != 1 {
		t.Fatalf("expected 1 mirrored expense, got %d", len(rows))
	}
	if rows, _ := mirror.ListIncome(ctx); len(rows) != 1 {
		t.Fatalf("expected 1 mirrored income row, got %d", len(rows))
	}
	if rows, _ := mirror.ListAllocations(ctx); len(rows) != 1 {
		t.Fatalf("expected 1 mirrored allocation, got %d", len(rows))
	}
}

func TestStartupSyncCheckContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	queue := newFakeQueue()
	queue.expenses[1] = core.ExpenseRecord{
		Date: core.NewDate(2024, time.May, 1), Category: "Lunch", Amount: core.Money{Cents: 900},
	}
	// Row 2 is pending but missing from the table: the sweep must flag it and
	// still sync row 1.
	queue.pending[storage.TableExpenses] = []int64{2, 1}

	mirror := memory.New()
	w := NewSyncWorker(queue, mirror, 10)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup sync check: %v", err)
	}

	if rows, _ := mirror.ListExpenses(ctx); len(rows) != 1 {
		t.Fatalf("expected surviving row to sync, got %d rows", len(rows))
	}
	if got := queue.errored[storage.TableExpenses]; len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected row 2 marked errored, got %v", got)
	}
}
