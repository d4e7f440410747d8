package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/records"
)

// Store keeps the three record tables in ordered slices. It is the dev and
// test backend; append order is the only ordering it guarantees.
type Store struct {
	mu      sync.Mutex
	items   []core.ExpenseRecord
	income  []core.IncomeRecord
	budgets []core.BudgetAllocation
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Seed preloads records, preserving the given order. Intended for tests.
func Seed(expenses []core.ExpenseRecord, income []core.IncomeRecord, budgets []core.BudgetAllocation) *Store {
	s := New()
	s.items = append(s.items, expenses...)
	s.income = append(s.income, income...)
	s.budgets = append(s.budgets, budgets...)
	return s
}

func (s *Store) AppendExpense(_ context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:expenses:%d", len(s.items)), nil
}

func (s *Store) AppendIncome(_ context.Context, r core.IncomeRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.income = append(s.income, r)
	return fmt.Sprintf("mem:income:%d", len(s.income)), nil
}

func (s *Store) AppendAllocation(_ context.Context, a core.BudgetAllocation) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append(s.budgets, a)
	return fmt.Sprintf("mem:budgets:%d", len(s.budgets)), nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord(nil), s.items...), nil
}

func (s *Store) ListIncome(_ context.Context) ([]core.IncomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.IncomeRecord(nil), s.income...), nil
}

func (s *Store) ListAllocations(_ context.Context) ([]core.BudgetAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BudgetAllocation(nil), s.budgets...), nil
}
