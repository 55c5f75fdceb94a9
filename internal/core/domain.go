package core

import (
	"errors"
	"time"
)

type (
	// Transaction is one row of the imported ledger: either an expense or an
	// income entry, never both. ExpenseAmount and IncomeAmount are in the row's
	// original currency; Amount carries the value converted into the reporting
	// currency, which is what every aggregate reads.
	Transaction struct {
		Date              time.Time
		Account           string
		Category          string
		Tags              []string
		Description       string
		ExpenseAmount     float64
		IncomeAmount      float64
		Amount            float64
		Currency          string
		ReportingCurrency string
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrNegativeAmount = errors.New("negative amount")
	ErrNoAmount       = errors.New("transaction has neither expense nor income amount")
	ErrBothAmounts    = errors.New("transaction has both expense and income amounts")
)

// IsExpense reports whether the row is an expense entry.
func (t Transaction) IsExpense() bool {
	return t.ExpenseAmount > 0
}

// IsIncome reports whether the row is an income entry.
func (t Transaction) IsIncome() bool {
	return t.IncomeAmount > 0
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.ExpenseAmount < 0 || t.IncomeAmount < 0 || t.Amount < 0 {
		return ErrNegativeAmount
	}
	if t.ExpenseAmount > 0 && t.IncomeAmount > 0 {
		return ErrBothAmounts
	}
	if t.ExpenseAmount == 0 && t.IncomeAmount == 0 {
		return ErrNoAmount
	}
	return nil
}

// NewDate builds a UTC calendar date. Transactions carry no time-of-day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
