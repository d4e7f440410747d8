package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const weeklyCacheKey = "weekly"

// Response DTOs. Amounts travel as integer cents.
type (
	budgetRowDTO struct {
		Category     string `json:"category"`
		PlannedCents int64  `json:"planned_cents"`
		ActualCents  int64  `json:"actual_cents"`
		OverBudget   bool   `json:"over_budget"`
	}

	overBudgetDTO struct {
		Category    string `json:"category"`
		OverByCents int64  `json:"over_by_cents"`
	}

	dailyTotalDTO struct {
		Day        int   `json:"day"`
		TotalCents int64 `json:"total_cents"`
	}

	dashboardDTO struct {
		Period         string          `json:"period"`
		IncomeCents    int64           `json:"income_cents"`
		TotalCents     int64           `json:"total_cents"`
		ProjectedCents int64           `json:"projected_cents"`
		Rows           []budgetRowDTO  `json:"rows"`
		OverBudget     []overBudgetDTO `json:"over_budget"`
		DailyTrend     []dailyTotalDTO `json:"daily_trend"`
	}

	weeklyTotalDTO struct {
		ISOYear    int    `json:"iso_year"`
		ISOWeek    int    `json:"iso_week"`
		Category   string `json:"category"`
		TotalCents int64  `json:"total_cents"`
	}

	categoryDeltaDTO struct {
		Category      string `json:"category"`
		CurrentCents  int64  `json:"current_cents"`
		PreviousCents int64  `json:"previous_cents"`
		DeltaCents    int64  `json:"delta_cents"`
	}

	comparisonDTO struct {
		Current       string             `json:"current"`
		Previous      string             `json:"previous"`
		CurrentCents  int64              `json:"current_cents"`
		PreviousCents int64              `json:"previous_cents"`
		DeltaCents    int64              `json:"delta_cents"`
		ByCategory    []categoryDeltaDTO `json:"by_category"`
	}

	allocationDTO struct {
		Category     string `json:"category"`
		PlannedCents int64  `json:"planned_cents"`
	}

	plannerDTO struct {
		Period         string          `json:"period"`
		IncomeCents    int64           `json:"income_cents"`
		HasIncome      bool            `json:"has_income"`
		Allocations    []allocationDTO `json:"allocations"`
		AllocatedCents int64           `json:"allocated_cents"`
		RemainingCents int64           `json:"remaining_cents"`
	}

	reminderDTO struct {
		Target string `json:"target"`
		Prompt bool   `json:"prompt"`
	}

	createdDTO struct {
		Ref string `json:"ref"`
	}
)

func dashboardToDTO(v services.DashboardView) dashboardDTO {
	out := dashboardDTO{
		Period:         v.Period.String(),
		IncomeCents:    v.Income.Cents,
		TotalCents:     v.MonthTotal.Cents,
		ProjectedCents: v.Projected.Cents,
		Rows:           []budgetRowDTO{},
		OverBudget:     []overBudgetDTO{},
		DailyTrend:     []dailyTotalDTO{},
	}
	for _, r := range v.Rows {
		out.Rows = append(out.Rows, budgetRowDTO{
			Category:     string(r.Category),
			PlannedCents: r.Planned.Cents,
			ActualCents:  r.Actual.Cents,
			OverBudget:   r.OverBudget,
		})
	}
	for _, r := range v.OverBudget {
		out.OverBudget = append(out.OverBudget, overBudgetDTO{Category: string(r.Category), OverByCents: r.OverBy.Cents})
	}
	for _, d := range v.DailyTrend {
		out.DailyTrend = append(out.DailyTrend, dailyTotalDTO{Day: d.Day, TotalCents: d.Total.Cents})
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, err := s.parsePeriodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period, expected YYYY-MM")
		return
	}

	key := p.String()
	view, found := s.dashboardCache.Get(key)
	if !found {
		view, err = s.tracker.Dashboard(r.Context(), p)
		if err != nil {
			slog.ErrorContext(r.Context(), "Dashboard error", "error", err, "period", key)
			writeError(w, http.StatusInternalServerError, "failed to build dashboard")
			return
		}
		s.dashboardCache.Set(key, view)
	}
	writeJSON(w, http.StatusOK, dashboardToDTO(view))
}

func (s *Server) handleWeeklyAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	weeks, found := s.weeklyCache.Get(weeklyCacheKey)
	if !found {
		var err error
		weeks, err = s.tracker.WeeklyAnalysis(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Weekly analysis error", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to build weekly analysis")
			return
		}
		s.weeklyCache.Set(weeklyCacheKey, weeks)
	}

	out := []weeklyTotalDTO{}
	for _, wk := range weeks {
		out = append(out, weeklyTotalDTO{
			ISOYear:    wk.ISOYear,
			ISOWeek:    wk.ISOWeek,
			Category:   string(wk.Category),
			TotalCents: wk.Total.Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, err := s.parsePeriodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period, expected YYYY-MM")
		return
	}

	key := p.String()
	cmp, found := s.comparisonCache.Get(key)
	if !found {
		cmp, err = s.tracker.Comparison(r.Context(), p)
		if err != nil {
			slog.ErrorContext(r.Context(), "Comparison error", "error", err, "period", key)
			writeError(w, http.StatusInternalServerError, "failed to build comparison")
			return
		}
		s.comparisonCache.Set(key, cmp)
	}

	out := comparisonDTO{
		Current:       cmp.Current.String(),
		Previous:      cmp.Previous.String(),
		CurrentCents:  cmp.CurrentTotal.Cents,
		PreviousCents: cmp.PreviousTotal.Cents,
		DeltaCents:    cmp.Delta.Cents,
		ByCategory:    []categoryDeltaDTO{},
	}
	for _, d := range cmp.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryDeltaDTO{
			Category:      string(d.Category),
			CurrentCents:  d.Current.Cents,
			PreviousCents: d.Previous.Cents,
			DeltaCents:    d.Delta.Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlanner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, err := s.parsePeriodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period, expected YYYY-MM")
		return
	}

	view, err := s.tracker.Planner(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Planner error", "error", err, "period", p.String())
		writeError(w, http.StatusInternalServerError, "failed to build planner view")
		return
	}

	out := plannerDTO{
		Period:         view.Period.String(),
		IncomeCents:    view.Income.Cents,
		HasIncome:      view.HasIncome,
		Allocations:    []allocationDTO{},
		AllocatedCents: view.Allocated.Cents,
		RemainingCents: view.Remaining.Cents,
	}
	for _, a := range view.Allocations {
		out.Allocations = append(out.Allocations, allocationDTO{Category: string(a.Category), PlannedCents: a.Planned.Cents})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReminder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	dismissed := r.URL.Query().Get("dismissed") == "true"

	dec, err := s.tracker.IncomeReminder(r.Context(), dismissed)
	if err != nil {
		slog.ErrorContext(r.Context(), "Reminder error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to evaluate reminder")
		return
	}
	writeJSON(w, http.StatusOK, reminderDTO{Target: dec.Target.String(), Prompt: dec.Prompt})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	out := []string{}
	for _, c := range s.tracker.Categories() {
		out = append(out, string(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type createExpenseRequest struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	record := core.ExpenseRecord{
		Date:        date,
		Category:    core.Category(sanitizeInput(req.Category)),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
	}
	ref, err := s.tracker.RecordExpense(r.Context(), record)
	if err != nil {
		writeRecordError(w, r, "Expense create error", err)
		return
	}

	s.invalidatePeriod(core.PeriodOf(record.Date.Time))
	writeJSON(w, http.StatusCreated, createdDTO{Ref: ref})
}

type createIncomeRequest struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
	Source string `json:"source"`
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req createIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	period, err := core.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid period, expected YYYY-MM")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	ref, err := s.tracker.RecordIncome(r.Context(), core.IncomeRecord{
		Period: period,
		Amount: core.Money{Cents: cents},
		Source: sanitizeInput(req.Source),
	})
	if err != nil {
		writeRecordError(w, r, "Income create error", err)
		return
	}

	s.invalidatePeriod(period)
	writeJSON(w, http.StatusCreated, createdDTO{Ref: ref})
}

type createAllocationRequest struct {
	Period   string `json:"period"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

func (s *Server) handleCreateAllocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req createAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	period, err := core.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid period, expected YYYY-MM")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	ref, err := s.tracker.RecordAllocation(r.Context(), core.BudgetAllocation{
		Period:   period,
		Category: core.Category(sanitizeInput(req.Category)),
		Planned:  core.Money{Cents: cents},
	})
	if err != nil {
		writeRecordError(w, r, "Allocation create error", err)
		return
	}

	s.invalidatePeriod(period)
	writeJSON(w, http.StatusCreated, createdDTO{Ref: ref})
}

// writeRecordError maps validation failures to 422 and everything else to
// 500.
func writeRecordError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	if isValidationError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.ErrorContext(r.Context(), logMsg, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to save record")
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidPeriod,
		core.ErrEmptyCategory,
		core.ErrEmptyDescription,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
