package core

import "time"

// LabeledAmount is one entry of an ordered breakdown (category or tag).
// Breakdowns are slices rather than maps so the descending-by-amount order
// survives serialization.
type LabeledAmount struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// PeriodTotals holds the expense/income/net rollup for one calendar bucket.
// Period is "YYYY-MM" for monthly buckets and "YYYY" for yearly ones.
type PeriodTotals struct {
	Period   string  `json:"period"`
	Expenses float64 `json:"expenses"`
	Income   float64 `json:"income"`
	Net      float64 `json:"net"`
}

// DateRange spans the earliest and latest transaction dates. Both ends are
// nil for an empty dataset.
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Summary is the full aggregate rollup over a transaction snapshot.
type Summary struct {
	TotalExpenses     float64         `json:"total_expenses"`
	TotalIncome       float64         `json:"total_income"`
	Net               float64         `json:"net"`
	Currency          string          `json:"currency"`
	DateRange         DateRange       `json:"date_range"`
	CategoryBreakdown []LabeledAmount `json:"category_breakdown"`
	IncomeBreakdown   []LabeledAmount `json:"income_breakdown"`
	TopTags           []LabeledAmount `json:"top_tags"`
	Monthly           []PeriodTotals  `json:"monthly_summary"`
	Yearly            []PeriodTotals  `json:"yearly_summary"`
	ExpenseCount      int             `json:"expense_count"`
	IncomeCount       int             `json:"income_count"`
}
