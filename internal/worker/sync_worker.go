// Package worker mirrors locally stored records to the Google Sheets
// spreadsheet. The local database is the write path; the worker drains the
// sync queue so the spreadsheet eventually holds the same rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// RecordQueue is the storage surface the worker needs: pending-row listing,
// per-row fetch, and sync bookkeeping.
type RecordQueue interface {
	ListPendingSync(ctx context.Context, table string, limit int) ([]storage.PendingSyncRow, error)
	MarkSynced(ctx context.Context, table string, id int64) error
	MarkSyncError(ctx context.Context, table string, id int64) error
	GetExpense(ctx context.Context, id int64) (core.ExpenseRecord, error)
	GetIncome(ctx context.Context, id int64) (core.IncomeRecord, error)
	GetAllocation(ctx context.Context, id int64) (core.BudgetAllocation, error)
}

// MirrorWriter is the append-only surface of the spreadsheet client.
type MirrorWriter interface {
	AppendExpense(ctx context.Context, e core.ExpenseRecord) (string, error)
	AppendIncome(ctx context.Context, r core.IncomeRecord) (string, error)
	AppendAllocation(ctx context.Context, a core.BudgetAllocation) (string, error)
}

type SyncWorker struct {
	queue     RecordQueue
	mirror    MirrorWriter
	batchSize int
}

func NewSyncWorker(queue RecordQueue, mirror MirrorWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		queue:     queue,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

var syncTables = []string{storage.TableExpenses, storage.TableIncome, storage.TableBudgets}

// HandleSyncMessage processes a single record sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "table", msg.Table, "id", msg.ID)
	return w.syncRow(ctx, msg.Table, msg.ID)
}

// syncRow fetches one row from local storage and appends it to the mirror.
// A failed append is flagged so the periodic sweep does not retry it forever.
func (w *SyncWorker) syncRow(ctx context.Context, table string, id int64) error {
	ref, err := w.appendToMirror(ctx, table, id)
	if err != nil {
		if markErr := w.queue.MarkSyncError(ctx, table, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "table", table, "id", id, "error", markErr)
		}
		return err
	}

	if err := w.queue.MarkSynced(ctx, table, id); err != nil {
		// The row did reach the spreadsheet; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "table", table, "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Record synced", "table", table, "id", id, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) appendToMirror(ctx context.Context, table string, id int64) (string, error) {
	switch table {
	case storage.TableExpenses:
		e, err := w.queue.GetExpense(ctx, id)
		if err != nil {
			return "", fmt.Errorf("get expense: %w", err)
		}
		return w.mirror.AppendExpense(ctx, e)
	case storage.TableIncome:
		r, err := w.queue.GetIncome(ctx, id)
		if err != nil {
			return "", fmt.Errorf("get income: %w", err)
		}
		return w.mirror.AppendIncome(ctx, r)
	case storage.TableBudgets:
		a, err := w.queue.GetAllocation(ctx, id)
		if err != nil {
			return "", fmt.Errorf("get allocation: %w", err)
		}
		return w.mirror.AppendAllocation(ctx, a)
	default:
		return "", fmt.Errorf("unknown record table: %s", table)
	}
}

// ProcessPending syncs rows that never got a queue message. This is the
// backup mechanism for lost AMQP deliveries.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	for _, table := range syncTables {
		pending, err := w.queue.ListPendingSync(ctx, table, w.batchSize)
		if err != nil {
			return fmt.Errorf("list pending %s rows: %w", table, err)
		}
		if len(pending) == 0 {
			continue
		}

		slog.InfoContext(ctx, "Processing pending rows", "table", table, "count", len(pending))
		for _, row := range pending {
			if err := w.syncRow(ctx, row.Table, row.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to sync pending row",
					"table", row.Table, "id", row.ID, "error", err)
			}
		}
	}
	return nil
}

// StartupSyncCheck drains a larger backlog once at worker startup, to recover
// from downtime while the API kept accepting writes.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total, synced, failed := 0, 0, 0

	for _, table := range syncTables {
		pending, err := w.queue.ListPendingSync(ctx, table, w.batchSize*5)
		if err != nil {
			return fmt.Errorf("list pending %s rows for startup check: %w", table, err)
		}
		total += len(pending)

		for _, row := range pending {
			if err := w.syncRow(ctx, row.Table, row.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to sync row during startup",
					"table", row.Table, "id", row.ID, "error", err)
				failed++
				continue
			}
			synced++
		}
	}

	if total == 0 {
		slog.InfoContext(ctx, "No pending rows found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", total,
		"synced", synced,
		"errors", failed)
	return nil
}
