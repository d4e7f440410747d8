// Package services orchestrates record writes and read views on top of the
// record store. Writes land in local storage first; spreadsheet mirroring
// happens asynchronously via the sync queue.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/records"
	"fintrack/internal/storage"
)

// SyncPublisher publishes a sync request for one stored row. *amqp.Client
// satisfies it; a nil publisher disables mirroring.
type SyncPublisher interface {
	PublishRecordSync(ctx context.Context, table string, id int64) error
}

// Tracker is the application service behind the HTTP API.
type Tracker struct {
	store       records.Store
	publisher   SyncPublisher
	clock       func() time.Time
	reminderDay int
	categories  core.Vocabulary
	excluded    []core.Category
}

func NewTracker(store records.Store, publisher SyncPublisher) *Tracker {
	return &Tracker{
		store:       store,
		publisher:   publisher,
		clock:       time.Now,
		reminderDay: core.DefaultReminderDay,
		categories:  core.Vocabulary(core.DefaultCategories()),
		excluded:    core.DefaultOperatingExclusions(),
	}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// WithReminderDay overrides the day of month from which income planning
// targets the upcoming period.
func (t *Tracker) WithReminderDay(day int) *Tracker {
	if day >= 1 && day <= 28 {
		t.reminderDay = day
	}
	return t
}

// WithCategories replaces the category vocabulary.
func (t *Tracker) WithCategories(v core.Vocabulary) *Tracker {
	if len(v) > 0 {
		t.categories = v
	}
	return t
}

// WithOperatingExclusions replaces the categories left out of the weekly
// operating spend view.
func (t *Tracker) WithOperatingExclusions(excluded []core.Category) *Tracker {
	t.excluded = excluded
	return t
}

// Categories returns the configured vocabulary in display order.
func (t *Tracker) Categories() core.Vocabulary {
	return t.categories
}

// DashboardView is the plan-vs-actual summary of one month.
type DashboardView struct {
	Period     core.Period
	Income     core.Money
	MonthTotal core.Money
	Projected  core.Money
	Rows       []core.BudgetRow
	OverBudget []core.OverBudgetRow
	DailyTrend []core.DailyTotal
}

// Dashboard builds the budget dashboard for a period. The month-end
// projection uses today's day of month for the current period, the full
// month for past periods, and stays zero for future ones.
func (t *Tracker) Dashboard(ctx context.Context, p core.Period) (DashboardView, error) {
	snap, err := records.LoadSnapshot(ctx, t.store)
	if err != nil {
		return DashboardView{}, fmt.Errorf("load records: %w", err)
	}

	rows := core.MergePlanActual(snap.PlannedBudget(p), snap.ActualSpend(p))
	total := snap.MonthTotal(p)

	return DashboardView{
		Period:     p,
		Income:     snap.ResolveIncome(p),
		MonthTotal: total,
		Projected:  core.ProjectMonthEnd(total, t.elapsedDays(p), p.Days()),
		Rows:       rows,
		OverBudget: core.OverBudgetRows(rows),
		DailyTrend: snap.DailyTrend(p),
	}, nil
}

// elapsedDays returns how many days of p have passed as of the clock: the
// current day for the running month, the full month once it is over, zero
// for months that have not started.
func (t *Tracker) elapsedDays(p core.Period) int {
	now := t.clock()
	switch {
	case p.Contains(now):
		return now.Day()
	case p.Year < now.Year() || (p.Year == now.Year() && p.Month < now.Month()):
		return p.Days()
	default:
		return 0
	}
}

// WeeklyAnalysis groups operating spend by ISO week and category, skipping
// the configured fixed-cost categories.
func (t *Tracker) WeeklyAnalysis(ctx context.Context) ([]core.WeeklyTotal, error) {
	snap, err := records.LoadSnapshot(ctx, t.store)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return snap.WeeklyOperatingSpend(t.excluded), nil
}

// Comparison compares a month's spending against the month before it.
func (t *Tracker) Comparison(ctx context.Context, p core.Period) (core.MonthComparison, error) {
	snap, err := records.LoadSnapshot(ctx, t.store)
	if err != nil {
		return core.MonthComparison{}, fmt.Errorf("load records: %w", err)
	}
	return snap.MonthComparison(p), nil
}

// AllocationLine is one planned category budget in the planner view.
type AllocationLine struct {
	Category core.Category
	Planned  core.Money
}

// PlannerView summarizes income and allocations for the planning period.
// Remaining is computed from the stored income, never from unsaved input.
type PlannerView struct {
	Period      core.Period
	Income      core.Money
	HasIncome   bool
	Allocations []AllocationLine
	Allocated   core.Money
	Remaining   core.Money
}

// Planner builds the budget planning view for a period.
func (t *Tracker) Planner(ctx context.Context, p core.Period) (PlannerView, error) {
	snap, err := records.LoadSnapshot(ctx, t.store)
	if err != nil {
		return PlannerView{}, fmt.Errorf("load records: %w", err)
	}

	planned := snap.PlannedBudget(p)
	cats := make([]core.Category, 0, len(planned))
	for c := range planned {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	view := PlannerView{
		Period:    p,
		Income:    snap.ResolveIncome(p),
		HasIncome: snap.HasIncome(p),
	}
	for _, c := range cats {
		view.Allocations = append(view.Allocations, AllocationLine{Category: c, Planned: planned[c]})
		view.Allocated = view.Allocated.Add(planned[c])
	}
	view.Remaining = view.Income.Sub(view.Allocated)
	return view, nil
}

// ReminderDecision says whether to prompt for the target period's income.
type ReminderDecision struct {
	Target core.Period
	Prompt bool
}

// IncomeReminder decides whether the income prompt should show. From the
// reminder day onward the upcoming month is the target, before that the
// current one. A dismissal suppresses the prompt regardless of data.
func (t *Tracker) IncomeReminder(ctx context.Context, dismissed bool) (ReminderDecision, error) {
	snap, err := records.LoadSnapshot(ctx, t.store)
	if err != nil {
		return ReminderDecision{}, fmt.Errorf("load records: %w", err)
	}
	target := core.TargetPlanningPeriod(t.clock(), t.reminderDay)
	return ReminderDecision{
		Target: target,
		Prompt: snap.ShouldPromptIncome(target, dismissed),
	}, nil
}

// RecordExpense stores an expense and queues it for spreadsheet mirroring.
func (t *Tracker) RecordExpense(ctx context.Context, e core.ExpenseRecord) (string, error) {
	ref, err := t.store.AppendExpense(ctx, e)
	if err != nil {
		return "", fmt.Errorf("save expense: %w", err)
	}
	t.publishSync(ctx, storage.TableExpenses, ref)
	return ref, nil
}

// RecordIncome stores an income entry. A later entry for the same period
// supersedes earlier ones.
func (t *Tracker) RecordIncome(ctx context.Context, r core.IncomeRecord) (string, error) {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = core.Date{Time: t.clock()}
	}
	ref, err := t.store.AppendIncome(ctx, r)
	if err != nil {
		return "", fmt.Errorf("save income: %w", err)
	}
	t.publishSync(ctx, storage.TableIncome, ref)
	return ref, nil
}

// RecordAllocation stores a budget allocation. Allocations for the same
// period and category accumulate.
func (t *Tracker) RecordAllocation(ctx context.Context, a core.BudgetAllocation) (string, error) {
	if a.RecordedAt.IsZero() {
		a.RecordedAt = core.Date{Time: t.clock()}
	}
	ref, err := t.store.AppendAllocation(ctx, a)
	if err != nil {
		return "", fmt.Errorf("save allocation: %w", err)
	}
	t.publishSync(ctx, storage.TableBudgets, ref)
	return ref, nil
}

// publishSync sends the row to the sync queue. Publish failures never fail
// the write: the row is saved locally and the periodic sweep picks it up.
func (t *Tracker) publishSync(ctx context.Context, table, rowRef string) {
	if t.publisher == nil {
		return
	}
	id, err := strconv.ParseInt(rowRef, 10, 64)
	if err != nil {
		// Non-numeric refs come from backends that mirror nothing.
		slog.DebugContext(ctx, "Skipping sync publish for non-numeric row ref", "table", table, "ref", rowRef)
		return
	}
	if err := t.publisher.PublishRecordSync(ctx, table, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "table", table, "id", id, "error", err)
	}
}

// Close releases the store and publisher when they hold connections.
func (t *Tracker) Close() error {
	var errs []error
	if closer, ok := t.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if closer, ok := t.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close tracker: %v", errs)
	}
	return nil
}
