package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseAmountCents parses a spreadsheet amount cell. Decimal comma is
// accepted. Unparseable cells coerce to 0: a malformed amount must not drop
// the whole row.
func parseAmountCents(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f*100.0 + 0.5)
}

// parseExpenseRow converts a [Date, Category, Description, Amount] row.
// Rows with an unparseable date are rejected, because they cannot take part
// in any date-based aggregation.
func parseExpenseRow(row []string) (core.ExpenseRecord, bool) {
	dateStr := safeGet(row, 0)
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.ExpenseRecord{}, false
	}
	cat := core.Category(safeGet(row, 1))
	if strings.TrimSpace(string(cat)) == "" {
		return core.ExpenseRecord{}, false
	}
	return core.ExpenseRecord{
		Date:        core.Date{Time: t},
		Category:    cat,
		Description: safeGet(row, 2),
		Amount:      core.Money{Cents: parseAmountCents(safeGet(row, 3))},
	}, true
}

// parseIncomeRow converts a [Month_Year, Amount, Source, Date_Added] row.
func parseIncomeRow(row []string) (core.IncomeRecord, bool) {
	period, err := core.ParsePeriod(safeGet(row, 0))
	if err != nil {
		return core.IncomeRecord{}, false
	}
	r := core.IncomeRecord{
		Period: period,
		Amount: core.Money{Cents: parseAmountCents(safeGet(row, 1))},
		Source: safeGet(row, 2),
	}
	if t, err := time.Parse("2006-01-02", safeGet(row, 3)); err == nil {
		r.RecordedAt = core.Date{Time: t}
	}
	return r, true
}

// parseAllocationRow converts a [Month_Year, Category, Planned_Amount,
// Date_Added] row.
func parseAllocationRow(row []string) (core.BudgetAllocation, bool) {
	period, err := core.ParsePeriod(safeGet(row, 0))
	if err != nil {
		return core.BudgetAllocation{}, false
	}
	cat := core.Category(safeGet(row, 1))
	if strings.TrimSpace(string(cat)) == "" {
		return core.BudgetAllocation{}, false
	}
	a := core.BudgetAllocation{
		Period:   period,
		Category: cat,
		Planned:  core.Money{Cents: parseAmountCents(safeGet(row, 2))},
	}
	if t, err := time.Parse("2006-01-02", safeGet(row, 3)); err == nil {
		a.RecordedAt = core.Date{Time: t}
	}
	return a, true
}
