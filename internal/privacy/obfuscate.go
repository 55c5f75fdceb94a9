// Package privacy implements the guest-tier data transform: monetary values
// are scaled by a factor derived from the current UTC date, and income source
// labels are replaced with generic ones. Structure, dates, and counts pass
// through so the dashboard stays demonstrable without exposing real figures.
package privacy

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"finlens/internal/core"
)

const (
	// FactorMin and FactorMax bound the daily scaling factor: [0.2, 0.4).
	FactorMin = 0.2
	FactorMax = 0.4
)

// DailyFactor derives the scaling factor for the given date. The UTC calendar
// date string seeds a generator, so every request on the same day sees the
// same factor while consecutive days get statistically independent draws.
// Knowing an obfuscated value alone is not enough to recover the original.
func DailyFactor(date time.Time) float64 {
	h := fnv.New64a()
	h.Write([]byte(date.UTC().Format("2006-01-02")))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return FactorMin + rng.Float64()*(FactorMax-FactorMin)
}

// TodayFactor is the factor for the current UTC date. Callers draw it once
// per request and reuse it for every value in the response, keeping relative
// proportions intact.
func TodayFactor() float64 {
	return DailyFactor(time.Now().UTC())
}

// ScaleAmount scales one monetary value and rounds to cents.
func ScaleAmount(v, factor float64) float64 {
	return math.Round(v*factor*100) / 100
}

// ScaleSummary returns a copy of s with every monetary figure scaled by the
// same factor. Net is scaled from the precomputed net, never re-derived with
// a different draw, so the net identity survives the transform.
func ScaleSummary(s core.Summary, factor float64) core.Summary {
	out := s
	out.TotalExpenses = ScaleAmount(s.TotalExpenses, factor)
	out.TotalIncome = ScaleAmount(s.TotalIncome, factor)
	out.Net = ScaleAmount(s.Net, factor)
	out.CategoryBreakdown = scaleLabeled(s.CategoryBreakdown, factor)
	out.IncomeBreakdown = anonymizeIncomeBreakdown(s.IncomeBreakdown, factor)
	out.TopTags = scaleLabeled(s.TopTags, factor)
	out.Monthly = scaleBuckets(s.Monthly, factor)
	out.Yearly = scaleBuckets(s.Yearly, factor)
	return out
}

func scaleLabeled(in []core.LabeledAmount, factor float64) []core.LabeledAmount {
	out := make([]core.LabeledAmount, len(in))
	for i, la := range in {
		out[i] = core.LabeledAmount{Label: la.Label, Amount: ScaleAmount(la.Amount, factor)}
	}
	return out
}

// anonymizeIncomeBreakdown replaces income source labels with generic ones
// before scaling. Distinct sources can collapse to the same generic label;
// their raw amounts merge first so one scaled figure comes out per label.
// Order follows the first appearance of each generic label, which tracks the
// raw ranking.
func anonymizeIncomeBreakdown(in []core.LabeledAmount, factor float64) []core.LabeledAmount {
	totals := make(map[string]float64, len(in))
	var order []string
	for _, la := range in {
		generic := AnonymizeIncomeLabel(la.Label)
		if _, seen := totals[generic]; !seen {
			order = append(order, generic)
		}
		totals[generic] += la.Amount
	}
	out := make([]core.LabeledAmount, 0, len(order))
	for _, label := range order {
		out = append(out, core.LabeledAmount{Label: label, Amount: ScaleAmount(totals[label], factor)})
	}
	return out
}

func scaleBuckets(in []core.PeriodTotals, factor float64) []core.PeriodTotals {
	out := make([]core.PeriodTotals, len(in))
	for i, b := range in {
		out[i] = core.PeriodTotals{
			Period:   b.Period,
			Expenses: ScaleAmount(b.Expenses, factor),
			Income:   ScaleAmount(b.Income, factor),
			Net:      ScaleAmount(b.Net, factor),
		}
	}
	return out
}

// ScaleTransactions returns copies of the rows with amounts scaled. Category,
// tags, dates, and descriptions are untouched; use AnonymizeIncomeRows for
// income views, where the labels themselves are sensitive.
func ScaleTransactions(txs []core.Transaction, factor float64) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = scaleTransaction(tx, factor)
	}
	return out
}

func scaleTransaction(tx core.Transaction, factor float64) core.Transaction {
	tx.ExpenseAmount = ScaleAmount(tx.ExpenseAmount, factor)
	tx.IncomeAmount = ScaleAmount(tx.IncomeAmount, factor)
	tx.Amount = ScaleAmount(tx.Amount, factor)
	return tx
}

// AnonymizeIncomeRows scales income rows and replaces their identifying text:
// category and tags map to stable generic labels, the description becomes a
// fixed placeholder.
func AnonymizeIncomeRows(txs []core.Transaction, factor float64) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		row := scaleTransaction(tx, factor)
		if row.Category != "" {
			row.Category = AnonymizeIncomeLabel(row.Category)
		}
		if len(row.Tags) > 0 {
			row.Tags = anonymizeTags(row.Tags)
		}
		if row.Description != "" {
			row.Description = "Income payment"
		}
		out[i] = row
	}
	return out
}

func anonymizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		generic := AnonymizeIncomeLabel(tag)
		if _, dup := seen[generic]; dup {
			continue
		}
		seen[generic] = struct{}{}
		out = append(out, generic)
	}
	return out
}

// Generic replacements for income sources. Longer labels read like category
// names, short ones like tags, mirroring how the data is displayed.
var (
	incomeCategories = []string{
		"Employment Income",
		"Freelance Work",
		"Investment Returns",
		"Business Revenue",
		"Other Income",
	}
	incomeTags = []string{
		"monthly income",
		"project payment",
		"dividend",
		"interest",
		"bonus",
		"commission",
		"other",
	}
)

// AnonymizeIncomeLabel maps a raw income label to a generic one. The mapping
// is a stable hash of the input, so the same source always shows the same
// generic label within and across requests and days.
func AnonymizeIncomeLabel(label string) string {
	if label == "" {
		return ""
	}
	h := fnv.New64a()
	h.Write([]byte(label))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	pool := incomeTags
	if len(label) > 20 {
		pool = incomeCategories
	}
	return pool[rng.Intn(len(pool))]
}
