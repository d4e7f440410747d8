package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/records/memory"
)

type capturedSync struct {
	table string
	id    int64
}

type fakePublisher struct {
	published []capturedSync
	err       error
}

func (p *fakePublisher) PublishRecordSync(_ context.Context, table string, id int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, capturedSync{table: table, id: id})
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedMay(t *testing.T, store *memory.Store) core.Period {
	t.Helper()
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: time.May}

	mustAppend := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_, err := store.AppendIncome(ctx, core.IncomeRecord{Period: p, Amount: core.Money{Cents: 300000}, Source: "Salary"})
	mustAppend(err)
	_, err = store.AppendAllocation(ctx, core.BudgetAllocation{Period: p, Category: "Groceries", Planned: core.Money{Cents: 40000}})
	mustAppend(err)
	_, err = store.AppendAllocation(ctx, core.BudgetAllocation{Period: p, Category: "Lunch", Planned: core.Money{Cents: 10000}})
	mustAppend(err)
	_, err = store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 2), Category: "Groceries", Amount: core.Money{Cents: 15000}})
	mustAppend(err)
	_, err = store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 9), Category: "Lunch", Amount: core.Money{Cents: 12000}})
	mustAppend(err)
	return p
}

func TestDashboardCurrentMonth(t *testing.T) {
	store := memory.New()
	p := seedMay(t, store)
	tracker := NewTracker(store, nil).
		WithClock(fixedClock(time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)))

	view, err := tracker.Dashboard(context.Background(), p)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if view.Income.Cents != 300000 {
		t.Fatalf("income: expected 300000, got %d", view.Income.Cents)
	}
	if view.MonthTotal.Cents != 27000 {
		t.Fatalf("month total: expected 27000, got %d", view.MonthTotal.Cents)
	}
	// 27000 / 10 days * 31 days = 83700
	if view.Projected.Cents != 83700 {
		t.Fatalf("projection: expected 83700, got %d", view.Projected.Cents)
	}
	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 budget rows, got %d", len(view.Rows))
	}
	if len(view.OverBudget) != 1 || view.OverBudget[0].Category != "Lunch" || view.OverBudget[0].OverBy.Cents != 2000 {
		t.Fatalf("over budget rows: %+v", view.OverBudget)
	}
}

func TestDashboardPastAndFutureProjection(t *testing.T) {
	store := memory.New()
	p := seedMay(t, store)
	tracker := NewTracker(store, nil).
		WithClock(fixedClock(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)))

	// Past month: the projection is just the recorded total.
	view, err := tracker.Dashboard(context.Background(), p)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if view.Projected.Cents != view.MonthTotal.Cents {
		t.Fatalf("past month projection: expected %d, got %d", view.MonthTotal.Cents, view.Projected.Cents)
	}

	// Future month: nothing has happened yet, projection stays zero.
	future := core.Period{Year: 2024, Month: time.September}
	view, err = tracker.Dashboard(context.Background(), future)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if view.Projected.Cents != 0 {
		t.Fatalf("future month projection: expected 0, got %d", view.Projected.Cents)
	}
}

func TestPlannerUsesStoredIncome(t *testing.T) {
	store := memory.New()
	p := seedMay(t, store)
	tracker := NewTracker(store, nil)

	view, err := tracker.Planner(context.Background(), p)
	if err != nil {
		t.Fatalf("planner: %v", err)
	}
	if !view.HasIncome || view.Income.Cents != 300000 {
		t.Fatalf("stored income: %+v", view)
	}
	if view.Allocated.Cents != 50000 {
		t.Fatalf("allocated: expected 50000, got %d", view.Allocated.Cents)
	}
	if view.Remaining.Cents != 250000 {
		t.Fatalf("remaining: expected 250000, got %d", view.Remaining.Cents)
	}
	if len(view.Allocations) != 2 || view.Allocations[0].Category != "Groceries" {
		t.Fatalf("allocations: %+v", view.Allocations)
	}
}

func TestPlannerEmptyPeriod(t *testing.T) {
	tracker := NewTracker(memory.New(), nil)
	view, err := tracker.Planner(context.Background(), core.Period{Year: 2024, Month: time.May})
	if err != nil {
		t.Fatalf("planner: %v", err)
	}
	if view.HasIncome || view.Income.Cents != 0 || view.Remaining.Cents != 0 {
		t.Fatalf("empty planner view: %+v", view)
	}
}

func TestIncomeReminder(t *testing.T) {
	store := memory.New()
	seedMay(t, store)

	// Before the reminder day the current month is the target; May has
	// income, so no prompt.
	tracker := NewTracker(store, nil).
		WithClock(fixedClock(time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)))
	dec, err := tracker.IncomeReminder(context.Background(), false)
	if err != nil {
		t.Fatalf("reminder: %v", err)
	}
	if dec.Prompt || dec.Target.Month != time.May {
		t.Fatalf("expected no prompt for funded May, got %+v", dec)
	}

	// On day 25 the target rolls to June, which has no income yet.
	tracker.WithClock(fixedClock(time.Date(2024, time.May, 25, 0, 0, 0, 0, time.UTC)))
	dec, err = tracker.IncomeReminder(context.Background(), false)
	if err != nil {
		t.Fatalf("reminder: %v", err)
	}
	if !dec.Prompt || dec.Target.Month != time.June {
		t.Fatalf("expected June prompt, got %+v", dec)
	}

	// Dismissal suppresses the prompt.
	dec, err = tracker.IncomeReminder(context.Background(), true)
	if err != nil {
		t.Fatalf("reminder: %v", err)
	}
	if dec.Prompt {
		t.Fatalf("dismissed prompt must stay off")
	}
}

func TestRecordExpensePublishesSync(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{}
	tracker := NewTracker(store, pub)

	ref, err := tracker.RecordExpense(context.Background(), core.ExpenseRecord{
		Date: core.NewDate(2024, time.May, 3), Category: "Snacks", Amount: core.Money{Cents: 250},
	})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if ref == "" {
		t.Fatalf("expected row ref")
	}
	if len(pub.published) != 1 || pub.published[0].table != "expenses" {
		t.Fatalf("published: %+v", pub.published)
	}
}

func TestRecordIncomeStampsRecordedAt(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, time.April, 28, 0, 0, 0, 0, time.UTC)
	tracker := NewTracker(store, nil).WithClock(fixedClock(now))

	if _, err := tracker.RecordIncome(context.Background(), core.IncomeRecord{
		Period: core.Period{Year: 2024, Month: time.May},
		Amount: core.Money{Cents: 300000},
		Source: "Salary",
	}); err != nil {
		t.Fatalf("record income: %v", err)
	}

	rows, _ := store.ListIncome(context.Background())
	if len(rows) != 1 || !rows[0].RecordedAt.Equal(now) {
		t.Fatalf("recorded-at not stamped: %+v", rows)
	}
}

func TestRecordSurvivesPublishFailure(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{err: context.DeadlineExceeded}
	tracker := NewTracker(store, pub)

	if _, err := tracker.RecordExpense(context.Background(), core.ExpenseRecord{
		Date: core.NewDate(2024, time.May, 3), Category: "Snacks", Amount: core.Money{Cents: 250},
	}); err != nil {
		t.Fatalf("write must not fail on publish error: %v", err)
	}
	rows, _ := store.ListExpenses(context.Background())
	if len(rows) != 1 {
		t.Fatalf("expense not stored")
	}
}

func TestWeeklyAnalysisSkipsFixedCosts(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, _ = store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 6), Category: "Rent", Amount: core.Money{Cents: 90000}})
	_, _ = store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 6), Category: "Groceries", Amount: core.Money{Cents: 4000}})

	tracker := NewTracker(store, nil)
	weeks, err := tracker.WeeklyAnalysis(ctx)
	if err != nil {
		t.Fatalf("weekly analysis: %v", err)
	}
	if len(weeks) != 1 || weeks[0].Category != "Groceries" {
		t.Fatalf("expected rent excluded, got %+v", weeks)
	}
}
