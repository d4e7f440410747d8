package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/records/memory"
	"fintrack/internal/services"
)

func newTestServer(t *testing.T, store *memory.Store, now time.Time) *Server {
	t.Helper()
	tracker := services.NewTracker(store, nil).WithClock(func() time.Time { return now })
	srv := NewServer(":0", tracker).withClock(func() time.Time { return now })
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func seedStore(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: time.May}
	if _, err := store.AppendIncome(ctx, core.IncomeRecord{Period: p, Amount: core.Money{Cents: 300000}, Source: "Salary"}); err != nil {
		t.Fatalf("seed income: %v", err)
	}
	if _, err := store.AppendAllocation(ctx, core.BudgetAllocation{Period: p, Category: "Groceries", Planned: core.Money{Cents: 40000}}); err != nil {
		t.Fatalf("seed allocation: %v", err)
	}
	if _, err := store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 2), Category: "Groceries", Amount: core.Money{Cents: 15000}}); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, memory.New(), time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := doRequest(srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestDashboardEndpoint(t *testing.T) {
	store := memory.New()
	seedStore(t, store)
	srv := newTestServer(t, store, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))

	rr := doRequest(srv, http.MethodGet, "/api/dashboard?period=2024-05", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var dto dashboardDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.Period != "2024-05" || dto.IncomeCents != 300000 || dto.TotalCents != 15000 {
		t.Fatalf("unexpected dashboard: %+v", dto)
	}
	if len(dto.Rows) != 1 || dto.Rows[0].Category != "Groceries" || dto.Rows[0].OverBudget {
		t.Fatalf("unexpected rows: %+v", dto.Rows)
	}
	// 15000 / 10 days * 31 days
	if dto.ProjectedCents != 46500 {
		t.Fatalf("projection: expected 46500, got %d", dto.ProjectedCents)
	}
}

func TestDashboardRejectsBadPeriod(t *testing.T) {
	srv := newTestServer(t, memory.New(), time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))
	if rr := doRequest(srv, http.MethodGet, "/api/dashboard?period=May-2024", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateExpenseInvalidatesDashboardCache(t *testing.T) {
	store := memory.New()
	seedStore(t, store)
	srv := newTestServer(t, store, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))

	// Prime the cache.
	if rr := doRequest(srv, http.MethodGet, "/api/dashboard?period=2024-05", ""); rr.Code != http.StatusOK {
		t.Fatalf("prime status=%d", rr.Code)
	}

	rr := doRequest(srv, http.MethodPost, "/api/expenses",
		`{"date":"2024-05-11","category":"Lunch","description":"pizza","amount":"9.50"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(srv, http.MethodGet, "/api/dashboard?period=2024-05", "")
	var dto dashboardDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.TotalCents != 15950 {
		t.Fatalf("expected fresh total 15950 after write, got %d", dto.TotalCents)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t, memory.New(), time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad date", `{"date":"11/05/2024","category":"Lunch","amount":"9.50"}`, http.StatusUnprocessableEntity},
		{"bad amount", `{"date":"2024-05-11","category":"Lunch","amount":"abc"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"date":"2024-05-11","category":"Lunch","amount":"-5"}`, http.StatusUnprocessableEntity},
		{"empty category", `{"date":"2024-05-11","category":"","amount":"9.50"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rr := doRequest(srv, http.MethodPost, "/api/expenses", tc.body); rr.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rr.Code, rr.Body.String())
			}
		})
	}

	if rr := doRequest(srv, http.MethodGet, "/api/expenses", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCreateIncomeAndPlanner(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, time.Date(2024, time.April, 28, 0, 0, 0, 0, time.UTC))

	if rr := doRequest(srv, http.MethodPost, "/api/income",
		`{"period":"2024-05","amount":"3000","source":"Salary"}`); rr.Code != http.StatusCreated {
		t.Fatalf("income status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := doRequest(srv, http.MethodPost, "/api/budgets",
		`{"period":"2024-05","category":"Groceries","amount":"400"}`); rr.Code != http.StatusCreated {
		t.Fatalf("budget status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := doRequest(srv, http.MethodGet, "/api/planner?period=2024-05", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("planner status=%d", rr.Code)
	}
	var dto plannerDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dto.HasIncome || dto.IncomeCents != 300000 || dto.RemainingCents != 260000 {
		t.Fatalf("unexpected planner view: %+v", dto)
	}
}

func TestReminderEndpoint(t *testing.T) {
	store := memory.New()
	// Day 25: planning target rolls to June, which has no income.
	srv := newTestServer(t, store, time.Date(2024, time.May, 25, 0, 0, 0, 0, time.UTC))

	rr := doRequest(srv, http.MethodGet, "/api/reminder", "")
	var dto reminderDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dto.Prompt || dto.Target != "2024-06" {
		t.Fatalf("expected June prompt, got %+v", dto)
	}

	rr = doRequest(srv, http.MethodGet, "/api/reminder?dismissed=true", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.Prompt {
		t.Fatalf("dismissed reminder must not prompt")
	}
}

func TestWeeklyAnalysisEndpoint(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if _, err := store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 6), Category: "Rent", Amount: core.Money{Cents: 90000}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 6), Category: "Groceries", Amount: core.Money{Cents: 4000}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := newTestServer(t, store, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))

	rr := doRequest(srv, http.MethodGet, "/api/analysis/weekly", "")
	var weeks []weeklyTotalDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &weeks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(weeks) != 1 || weeks[0].Category != "Groceries" || weeks[0].ISOWeek != 19 {
		t.Fatalf("unexpected weekly rows: %+v", weeks)
	}
}

func TestComparisonEndpoint(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if _, err := store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.April, 10), Category: "Lunch", Amount: core.Money{Cents: 10000}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.AppendExpense(ctx, core.ExpenseRecord{Date: core.NewDate(2024, time.May, 10), Category: "Lunch", Amount: core.Money{Cents: 14000}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := newTestServer(t, store, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))

	rr := doRequest(srv, http.MethodGet, "/api/analysis/comparison?period=2024-05", "")
	var dto comparisonDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.Previous != "2024-04" || dto.DeltaCents != 4000 {
		t.Fatalf("unexpected comparison: %+v", dto)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t, memory.New(), time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))
	rr := doRequest(srv, http.MethodGet, "/api/categories", "")
	var cats []string
	if err := json.Unmarshal(rr.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) != 15 || cats[0] != "Groceries" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}
