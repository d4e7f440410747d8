package google

import (
	"testing"
	"time"
)

func TestParseExpenseRow(t *testing.T) {
	e, ok := parseExpenseRow([]string{"2024-05-03", "Groceries", "weekly shop", "45.50"})
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if e.Date.Day() != 3 || e.Date.Month() != time.May || e.Date.Year() != 2024 {
		t.Fatalf("unexpected date: %v", e.Date)
	}
	if e.Category != "Groceries" || e.Amount.Cents != 4550 {
		t.Fatalf("unexpected record: %+v", e)
	}
}

func TestParseExpenseRowDropsBadDates(t *testing.T) {
	for _, row := range [][]string{
		{"not-a-date", "Groceries", "x", "10"},
		{"", "Groceries", "x", "10"},
		{"03/05/2024", "Groceries", "x", "10"},
	} {
		if _, ok := parseExpenseRow(row); ok {
			t.Fatalf("expected row %v to be dropped", row)
		}
	}
}

func TestParseExpenseRowCoercesBadAmountToZero(t *testing.T) {
	e, ok := parseExpenseRow([]string{"2024-05-03", "Groceries", "x", "n/a"})
	if !ok {
		t.Fatalf("bad amount must not drop the row")
	}
	if e.Amount.Cents != 0 {
		t.Fatalf("expected coerced 0, got %d", e.Amount.Cents)
	}
	// Short row: missing amount cell also coerces to zero.
	e, ok = parseExpenseRow([]string{"2024-05-03", "Groceries"})
	if !ok || e.Amount.Cents != 0 {
		t.Fatalf("short row: ok=%v cents=%d", ok, e.Amount.Cents)
	}
}

func TestParseIncomeRow(t *testing.T) {
	r, ok := parseIncomeRow([]string{"2024-05", "3000", "Salary", "2024-04-28"})
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if r.Period.String() != "2024-05" || r.Amount.Cents != 300000 || r.Source != "Salary" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.RecordedAt.IsZero() {
		t.Fatalf("expected recorded-at date")
	}

	if _, ok := parseIncomeRow([]string{"May 2024", "3000"}); ok {
		t.Fatalf("bad period key must drop the row")
	}
}

func TestParseAllocationRow(t *testing.T) {
	a, ok := parseAllocationRow([]string{"2024-05", "Lunch", "120,50", "2024-04-30"})
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if a.Category != "Lunch" || a.Planned.Cents != 12050 {
		t.Fatalf("unexpected record: %+v", a)
	}
	if _, ok := parseAllocationRow([]string{"2024-05", "", "100"}); ok {
		t.Fatalf("empty category must drop the row")
	}
}

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.34", 1234},
		{"12,34", 1234},
		{"1000", 100000},
		{"", 0},
		{"garbage", 0},
		{"-5", 0}, // amounts are non-negative by contract
	}
	for _, tc := range cases {
		if got := parseAmountCents(tc.in); got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}
