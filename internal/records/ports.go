package records

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the record store adapters. The store exposes three append-only
// logical tables; readers must return rows in append order, which the income
// last-write-wins rule depends on.
type (
	ExpenseSource interface {
		ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	}

	IncomeSource interface {
		ListIncome(ctx context.Context) ([]core.IncomeRecord, error)
	}

	BudgetSource interface {
		ListAllocations(ctx context.Context) ([]core.BudgetAllocation, error)
	}

	ExpenseWriter interface {
		AppendExpense(ctx context.Context, e core.ExpenseRecord) (rowRef string, err error)
	}

	IncomeWriter interface {
		AppendIncome(ctx context.Context, r core.IncomeRecord) (rowRef string, err error)
	}

	BudgetWriter interface {
		AppendAllocation(ctx context.Context, a core.BudgetAllocation) (rowRef string, err error)
	}

	// Store is the full record store surface the tracker runs against.
	Store interface {
		ExpenseSource
		IncomeSource
		BudgetSource
		ExpenseWriter
		IncomeWriter
		BudgetWriter
	}
)

// LoadSnapshot reads all three tables into an immutable snapshot. Aggregates
// derived from a snapshot taken before a write do not see that write; callers
// reload after appending.
func LoadSnapshot(ctx context.Context, s Store) (core.Snapshot, error) {
	expenses, err := s.ListExpenses(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	income, err := s.ListIncome(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	budgets, err := s.ListAllocations(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Expenses: expenses, Income: income, Budgets: budgets}, nil
}
