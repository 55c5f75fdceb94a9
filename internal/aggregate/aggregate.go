// Package aggregate derives dashboard rollups from an immutable transaction
// snapshot. Everything here is pure: no trust decisions, no I/O.
package aggregate

import (
	"sort"

	"finlens/internal/core"
)

// TopTagsLimit bounds the tag breakdown in a summary.
const TopTagsLimit = 10

// Summarize computes the full rollup over a snapshot. An empty snapshot yields
// a zero-valued summary, never an error.
func Summarize(txs []core.Transaction) core.Summary {
	s := core.Summary{
		CategoryBreakdown: []core.LabeledAmount{},
		IncomeBreakdown:   []core.LabeledAmount{},
		TopTags:           []core.LabeledAmount{},
		Monthly:           []core.PeriodTotals{},
		Yearly:            []core.PeriodTotals{},
	}

	categoryTotals := make(map[string]float64)
	var categoryOrder []string
	incomeTotals := make(map[string]float64)
	var incomeOrder []string
	tagTotals := make(map[string]float64)
	var tagOrder []string
	monthly := make(map[string]*core.PeriodTotals)
	yearly := make(map[string]*core.PeriodTotals)
	currencyCount := make(map[string]int)
	var currencyOrder []string

	for _, tx := range txs {
		if tx.ReportingCurrency != "" {
			if currencyCount[tx.ReportingCurrency] == 0 {
				currencyOrder = append(currencyOrder, tx.ReportingCurrency)
			}
			currencyCount[tx.ReportingCurrency]++
		}
		if s.DateRange.Start == nil || tx.Date.Before(*s.DateRange.Start) {
			d := tx.Date
			s.DateRange.Start = &d
		}
		if s.DateRange.End == nil || tx.Date.After(*s.DateRange.End) {
			d := tx.Date
			s.DateRange.End = &d
		}

		month := tx.Date.Format("2006-01")
		year := tx.Date.Format("2006")
		mb := bucket(monthly, month)
		yb := bucket(yearly, year)

		switch {
		case tx.IsExpense():
			s.TotalExpenses += tx.Amount
			s.ExpenseCount++
			mb.Expenses += tx.Amount
			yb.Expenses += tx.Amount
			if tx.Category != "" {
				if _, seen := categoryTotals[tx.Category]; !seen {
					categoryOrder = append(categoryOrder, tx.Category)
				}
				categoryTotals[tx.Category] += tx.Amount
			}
			for _, tag := range tx.Tags {
				if tag == "" {
					continue
				}
				if _, seen := tagTotals[tag]; !seen {
					tagOrder = append(tagOrder, tag)
				}
				tagTotals[tag] += tx.Amount
			}
		case tx.IsIncome():
			s.TotalIncome += tx.Amount
			s.IncomeCount++
			mb.Income += tx.Amount
			yb.Income += tx.Amount
			if tx.Category != "" {
				if _, seen := incomeTotals[tx.Category]; !seen {
					incomeOrder = append(incomeOrder, tx.Category)
				}
				incomeTotals[tx.Category] += tx.Amount
			}
		}
	}

	// Net is derived once from the two sums so the identity
	// net == income - expenses holds exactly.
	s.Net = s.TotalIncome - s.TotalExpenses
	s.Currency = dominantCurrency(currencyCount, currencyOrder)
	s.CategoryBreakdown = rankedBreakdown(categoryTotals, categoryOrder, 0)
	s.IncomeBreakdown = rankedBreakdown(incomeTotals, incomeOrder, 0)
	s.TopTags = rankedBreakdown(tagTotals, tagOrder, TopTagsLimit)
	s.Monthly = sortedBuckets(monthly)
	s.Yearly = sortedBuckets(yearly)
	return s
}

func bucket(m map[string]*core.PeriodTotals, key string) *core.PeriodTotals {
	b, ok := m[key]
	if !ok {
		b = &core.PeriodTotals{Period: key}
		m[key] = b
	}
	return b
}

// rankedBreakdown orders labels descending by amount, ties broken by first
// appearance in the input. Non-positive sums are dropped. limit == 0 keeps
// every entry.
func rankedBreakdown(totals map[string]float64, order []string, limit int) []core.LabeledAmount {
	out := make([]core.LabeledAmount, 0, len(order))
	for _, label := range order {
		if totals[label] <= 0 {
			continue
		}
		out = append(out, core.LabeledAmount{Label: label, Amount: totals[label]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortedBuckets(m map[string]*core.PeriodTotals) []core.PeriodTotals {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]core.PeriodTotals, 0, len(keys))
	for _, k := range keys {
		b := *m[k]
		b.Net = b.Income - b.Expenses
		out = append(out, b)
	}
	return out
}

// dominantCurrency picks the most frequent reporting currency, first-seen on
// ties, defaulting to EUR when the snapshot carries none.
func dominantCurrency(count map[string]int, order []string) string {
	best := ""
	for _, c := range order {
		if best == "" || count[c] > count[best] {
			best = c
		}
	}
	if best == "" {
		return "EUR"
	}
	return best
}

// ExpenseRows returns the expense-side partition of a snapshot.
func ExpenseRows(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IsExpense() {
			out = append(out, tx)
		}
	}
	return out
}

// IncomeRows returns the income-side partition of a snapshot.
func IncomeRows(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IsIncome() {
			out = append(out, tx)
		}
	}
	return out
}
