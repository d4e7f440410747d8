package core

import (
	"sort"
)

// Snapshot is an immutable view of the three record collections, in append
// order. All aggregations below are pure functions of the snapshot: they
// never mutate it, never fail, and degrade to zero or empty results when
// data is missing.
type Snapshot struct {
	Expenses []ExpenseRecord
	Income   []IncomeRecord
	Budgets  []BudgetAllocation
}

type (
	// BudgetRow is one line of the plan-vs-actual comparison.
	BudgetRow struct {
		Category   Category
		Planned    Money
		Actual     Money
		OverBudget bool
	}

	// OverBudgetRow reports by how much a category exceeded its plan.
	OverBudgetRow struct {
		Category Category
		OverBy   Money
	}

	// WeeklyTotal is the operating spend of one category in one ISO week.
	WeeklyTotal struct {
		ISOYear  int
		ISOWeek  int
		Category Category
		Total    Money
	}

	// DailyTotal is the total spend on one day of a month.
	DailyTotal struct {
		Day   int
		Total Money
	}

	// CategoryDelta compares one category across two months.
	CategoryDelta struct {
		Category Category
		Current  Money
		Previous Money
		Delta    Money
	}

	// MonthComparison is the month-over-month spending summary.
	MonthComparison struct {
		Current       Period
		Previous      Period
		CurrentTotal  Money
		PreviousTotal Money
		Delta         Money
		ByCategory    []CategoryDelta
	}
)

// ResolveIncome returns the authoritative income for a period. When several
// records share the period the last appended one wins, regardless of its
// amount or recorded-at date; zero when none exist. The scan goes by slice
// position because recorded-at dates may collide.
func (s Snapshot) ResolveIncome(p Period) Money {
	var out Money
	for _, r := range s.Income {
		if r.Period == p {
			out = r.Amount
		}
	}
	return out
}

// HasIncome reports whether any income record exists for the period.
func (s Snapshot) HasIncome(p Period) bool {
	for _, r := range s.Income {
		if r.Period == p {
			return true
		}
	}
	return false
}

// ShouldPromptIncome decides whether to ask the user for an income entry:
// true iff the target period resolves to zero income and the prompt was not
// dismissed this session. Dismissal state is the caller's to track.
func (s Snapshot) ShouldPromptIncome(target Period, dismissed bool) bool {
	if dismissed {
		return false
	}
	return s.ResolveIncome(target).Cents == 0
}

// PlannedBudget sums budget allocations per category for a period.
// Categories without an allocation are absent from the result. Unlike
// income, duplicate allocations accumulate.
func (s Snapshot) PlannedBudget(p Period) map[Category]Money {
	out := make(map[Category]Money)
	for _, a := range s.Budgets {
		if a.Period == p {
			out[a.Category] = out[a.Category].Add(a.Planned)
		}
	}
	return out
}

// ActualSpend sums expenses per category for a period.
func (s Snapshot) ActualSpend(p Period) map[Category]Money {
	out := make(map[Category]Money)
	for _, e := range s.Expenses {
		if p.Contains(e.Date.Time) {
			out[e.Category] = out[e.Category].Add(e.Amount)
		}
	}
	return out
}

// MergePlanActual outer-joins the planned and actual aggregates on category.
// Every category present on either side appears exactly once, with the
// missing side defaulting to zero. Rows come back sorted by category for
// deterministic output.
func MergePlanActual(planned, actual map[Category]Money) []BudgetRow {
	cats := make([]Category, 0, len(planned)+len(actual))
	seen := make(map[Category]struct{}, len(planned)+len(actual))
	for c := range planned {
		cats = append(cats, c)
		seen[c] = struct{}{}
	}
	for c := range actual {
		if _, ok := seen[c]; !ok {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	rows := make([]BudgetRow, 0, len(cats))
	for _, c := range cats {
		row := BudgetRow{Category: c, Planned: planned[c], Actual: actual[c]}
		row.OverBudget = row.Actual.Cents > row.Planned.Cents
		rows = append(rows, row)
	}
	return rows
}

// OverBudgetRows keeps the merged rows where spending exceeded the plan.
// OverBy is always positive.
func OverBudgetRows(rows []BudgetRow) []OverBudgetRow {
	var out []OverBudgetRow
	for _, r := range rows {
		if r.Actual.Cents > r.Planned.Cents {
			out = append(out, OverBudgetRow{Category: r.Category, OverBy: r.Actual.Sub(r.Planned)})
		}
	}
	return out
}

// ProjectMonthEnd extrapolates the month-end total linearly from the spend
// so far: total / dayOfMonth * daysInMonth, rounded half up. A zero
// dayOfMonth yields zero rather than a division by zero.
func ProjectMonthEnd(total Money, dayOfMonth, daysInMonth int) Money {
	if dayOfMonth <= 0 {
		return Money{}
	}
	d := int64(dayOfMonth)
	return Money{Cents: (total.Cents*int64(daysInMonth) + d/2) / d}
}

// MonthTotal sums all expenses of a period.
func (s Snapshot) MonthTotal(p Period) Money {
	var out Money
	for _, e := range s.Expenses {
		if p.Contains(e.Date.Time) {
			out = out.Add(e.Amount)
		}
	}
	return out
}

// DailyTrend sums expenses per day of the month, sorted by day.
func (s Snapshot) DailyTrend(p Period) []DailyTotal {
	byDay := make(map[int]Money)
	for _, e := range s.Expenses {
		if p.Contains(e.Date.Time) {
			d := e.Date.Day()
			byDay[d] = byDay[d].Add(e.Amount)
		}
	}
	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	out := make([]DailyTotal, 0, len(days))
	for _, d := range days {
		out = append(out, DailyTotal{Day: d, Total: byDay[d]})
	}
	return out
}

// WeeklyOperatingSpend groups expenses outside the excluded categories by
// ISO-8601 year-week and category. Weeks start on Monday and the week's
// year follows the ISO rules, so spend near a year boundary lands in the
// week it belongs to, not the calendar month.
func (s Snapshot) WeeklyOperatingSpend(excluded []Category) []WeeklyTotal {
	skip := make(map[Category]struct{}, len(excluded))
	for _, c := range excluded {
		skip[c] = struct{}{}
	}

	type key struct {
		year, week int
		cat        Category
	}
	totals := make(map[key]Money)
	for _, e := range s.Expenses {
		if _, ok := skip[e.Category]; ok {
			continue
		}
		y, w := e.Date.ISOWeek()
		k := key{year: y, week: w, cat: e.Category}
		totals[k] = totals[k].Add(e.Amount)
	}

	keys := make([]key, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		if keys[i].week != keys[j].week {
			return keys[i].week < keys[j].week
		}
		return keys[i].cat < keys[j].cat
	})

	out := make([]WeeklyTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, WeeklyTotal{ISOYear: k.year, ISOWeek: k.week, Category: k.cat, Total: totals[k]})
	}
	return out
}

// MonthComparison compares spending in curr against the preceding month,
// with a per-category outer join zero-filled on the missing side.
func (s Snapshot) MonthComparison(curr Period) MonthComparison {
	prev := curr.Prev()
	currByCat := s.ActualSpend(curr)
	prevByCat := s.ActualSpend(prev)

	cats := make([]Category, 0, len(currByCat)+len(prevByCat))
	seen := make(map[Category]struct{}, len(currByCat)+len(prevByCat))
	for c := range currByCat {
		cats = append(cats, c)
		seen[c] = struct{}{}
	}
	for c := range prevByCat {
		if _, ok := seen[c]; !ok {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	cmp := MonthComparison{
		Current:       curr,
		Previous:      prev,
		CurrentTotal:  s.MonthTotal(curr),
		PreviousTotal: s.MonthTotal(prev),
	}
	cmp.Delta = cmp.CurrentTotal.Sub(cmp.PreviousTotal)
	for _, c := range cats {
		cmp.ByCategory = append(cmp.ByCategory, CategoryDelta{
			Category: c,
			Current:  currByCat[c],
			Previous: prevByCat[c],
			Delta:    currByCat[c].Sub(prevByCat[c]),
		})
	}
	return cmp
}
