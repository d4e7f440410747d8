package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Category tags an expense or budget allocation. The set of known tags
	// comes from configuration; unknown tags are stored as-is and flow
	// through aggregation unchanged.
	Category string

	Date struct {
		time.Time
	}

	// ExpenseRecord is a single logged transaction. Records are append-only
	// and never mutated once stored.
	ExpenseRecord struct {
		Date        Date
		Category    Category
		Description string
		Amount      Money
	}

	// IncomeRecord is the planned income for a period. Several records may
	// share a period; the last appended one is authoritative.
	IncomeRecord struct {
		Period     Period
		Amount     Money
		Source     string
		RecordedAt Date
	}

	// BudgetAllocation is a planned spending limit for one category in one
	// period. Allocations for the same (period, category) are summed.
	BudgetAllocation struct {
		Period     Period
		Category   Category
		Planned    Money
		RecordedAt Date
	}
)

// CategoryOther is the fallback tag offered by selection widgets for
// anything outside the configured vocabulary.
const CategoryOther Category = "Others"

// DefaultCategories returns the built-in category vocabulary, in display
// order.
func DefaultCategories() []Category {
	return []Category{
		"Groceries", "Outside Food", "Lunch", "Snacks", "Petrol",
		"Trip", "Phone", "Bike", "Medical",
		"Rent", "House", "Personal", "Others", "TV/Subscriptions", "Gifts",
	}
}

// DefaultOperatingExclusions returns the fixed-cost categories left out of
// the weekly operating spend view.
func DefaultOperatingExclusions() []Category {
	return []Category{"Rent", "House", "TV/Subscriptions", "Gifts"}
}

// Vocabulary is an ordered allowed-set of category tags.
type Vocabulary []Category

// Contains reports whether c is part of the vocabulary.
func (v Vocabulary) Contains(c Category) bool {
	for _, k := range v {
		if k == c {
			return true
		}
	}
	return false
}

// Canonical returns c when it belongs to the vocabulary and CategoryOther
// otherwise. Only selection widgets use this; stored records keep their
// original tag.
func (v Vocabulary) Canonical(c Category) Category {
	if v.Contains(c) {
		return c
	}
	return CategoryOther
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyDescription = errors.New("empty description")
)

// NewDate creates a Date from year, month and day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(e.Category)) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r IncomeRecord) Validate() error {
	if r.Period.IsZero() {
		return ErrInvalidPeriod
	}
	if r.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a BudgetAllocation) Validate() error {
	if a.Period.IsZero() {
		return ErrInvalidPeriod
	}
	if strings.TrimSpace(string(a.Category)) == "" {
		return ErrEmptyCategory
	}
	if a.Planned.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
