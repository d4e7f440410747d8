// Package google implements the record store ports on top of a Google
// Sheets spreadsheet with three worksheets: Expenses, Income and
// CategoryBudgets. Row order in the sheet is append order, which the income
// last-write-wins rule relies on.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/records"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	incomeSheet   string
	budgetsSheet  string
}

var _ records.Store = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: EXPENSES_SHEET_NAME (default "Expenses"),
// INCOME_SHEET_NAME (default "Income"),
// BUDGETS_SHEET_NAME (default "CategoryBudgets").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	expenses := strings.TrimSpace(os.Getenv("EXPENSES_SHEET_NAME"))
	if expenses == "" {
		expenses = "Expenses"
	}
	income := strings.TrimSpace(os.Getenv("INCOME_SHEET_NAME"))
	if income == "" {
		income = "Income"
	}
	budgets := strings.TrimSpace(os.Getenv("BUDGETS_SHEET_NAME"))
	if budgets == "" {
		budgets = "CategoryBudgets"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		expensesSheet: expenses,
		incomeSheet:   income,
		budgetsSheet:  budgets,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) readRows(ctx context.Context, sheetName, cols string) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, sheetName string, row []interface{}) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:D", sheetName)
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheetName, err)
	}
	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// ListExpenses reads the Expenses sheet. Rows with an unparseable date are
// dropped; unparseable amounts coerce to 0 so one bad cell never hides the
// rest of the row history.
func (c *Client) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readRows(ctx, c.expensesSheet, "A2:D")
	if err != nil {
		return nil, err
	}
	var out []core.ExpenseRecord
	for i, row := range values {
		e, ok := parseExpenseRow(toStrings(row))
		if !ok {
			slog.DebugContext(ctx, "Skipping unparseable expense row", "sheet", c.expensesSheet, "row", i+2)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListIncome reads the Income sheet in row order.
func (c *Client) ListIncome(ctx context.Context) ([]core.IncomeRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readRows(ctx, c.incomeSheet, "A2:D")
	if err != nil {
		return nil, err
	}
	var out []core.IncomeRecord
	for i, row := range values {
		r, ok := parseIncomeRow(toStrings(row))
		if !ok {
			slog.DebugContext(ctx, "Skipping unparseable income row", "sheet", c.incomeSheet, "row", i+2)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ListAllocations reads the CategoryBudgets sheet in row order.
func (c *Client) ListAllocations(ctx context.Context) ([]core.BudgetAllocation, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readRows(ctx, c.budgetsSheet, "A2:D")
	if err != nil {
		return nil, err
	}
	var out []core.BudgetAllocation
	for i, row := range values {
		a, ok := parseAllocationRow(toStrings(row))
		if !ok {
			slog.DebugContext(ctx, "Skipping unparseable budget row", "sheet", c.budgetsSheet, "row", i+2)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) AppendExpense(ctx context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	return c.appendRow(ctx, c.expensesSheet, []interface{}{
		e.Date.Format("2006-01-02"),
		string(e.Category),
		e.Description,
		e.Amount.Units(),
	})
}

func (c *Client) AppendIncome(ctx context.Context, r core.IncomeRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	return c.appendRow(ctx, c.incomeSheet, []interface{}{
		r.Period.String(),
		r.Amount.Units(),
		r.Source,
		r.RecordedAt.Format("2006-01-02"),
	})
}

func (c *Client) AppendAllocation(ctx context.Context, a core.BudgetAllocation) (string, error) {
	if err := a.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	return c.appendRow(ctx, c.budgetsSheet, []interface{}{
		a.Period.String(),
		string(a.Category),
		a.Planned.Units(),
		a.RecordedAt.Format("2006-01-02"),
	})
}
