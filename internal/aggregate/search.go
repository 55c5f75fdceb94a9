package aggregate

import "finlens/internal/core"

// SearchResult pairs the matched rows with totals computed over the whole
// matched set, independent of any pagination the caller applies later.
type SearchResult struct {
	Matches      []core.Transaction
	ExpenseTotal float64
	IncomeTotal  float64
	Count        int
}

// Search finds every row whose category, tags, or description contain term
// (case-insensitively) and totals both sides of the matched set.
func Search(txs []core.Transaction, term string) SearchResult {
	res := SearchResult{Matches: []core.Transaction{}}
	if term == "" {
		return res
	}
	for _, tx := range txs {
		if !MatchesTerm(tx, term) {
			continue
		}
		res.Matches = append(res.Matches, tx)
		res.Count++
		switch {
		case tx.IsExpense():
			res.ExpenseTotal += tx.Amount
		case tx.IsIncome():
			res.IncomeTotal += tx.Amount
		}
	}
	return res
}
