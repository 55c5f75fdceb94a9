package aggregate

import (
	"math"
	"testing"

	"finlens/internal/core"
)

func tx(year, month, day int, category string, amount float64) core.Transaction {
	return core.Transaction{
		Date:              core.NewDate(year, month, day),
		Category:          category,
		ExpenseAmount:     amount,
		Amount:            amount,
		ReportingCurrency: "EUR",
	}
}

func incomeTx(year, month, day int, amount float64) core.Transaction {
	return core.Transaction{
		Date:              core.NewDate(year, month, day),
		IncomeAmount:      amount,
		Amount:            amount,
		ReportingCurrency: "EUR",
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarizeBasics(t *testing.T) {
	txs := []core.Transaction{
		tx(2024, 3, 15, "Food", 100),
		incomeTx(2024, 3, 15, 1000),
	}
	s := Summarize(txs)

	if !almostEqual(s.TotalExpenses, 100) || !almostEqual(s.TotalIncome, 1000) {
		t.Fatalf("totals: expenses=%v income=%v", s.TotalExpenses, s.TotalIncome)
	}
	if !almostEqual(s.Net, 900) {
		t.Fatalf("net=%v, want 900", s.Net)
	}
	if len(s.CategoryBreakdown) != 1 || s.CategoryBreakdown[0].Label != "Food" || !almostEqual(s.CategoryBreakdown[0].Amount, 100) {
		t.Fatalf("category breakdown: %+v", s.CategoryBreakdown)
	}
	if s.ExpenseCount != 1 || s.IncomeCount != 1 {
		t.Fatalf("counts: %d/%d", s.ExpenseCount, s.IncomeCount)
	}
	if s.Currency != "EUR" {
		t.Fatalf("currency=%q", s.Currency)
	}
	if s.DateRange.Start == nil || s.DateRange.End == nil {
		t.Fatalf("date range not set")
	}
	if len(s.Monthly) != 1 || s.Monthly[0].Period != "2024-03" || !almostEqual(s.Monthly[0].Net, 900) {
		t.Fatalf("monthly: %+v", s.Monthly)
	}
	if len(s.Yearly) != 1 || s.Yearly[0].Period != "2024" {
		t.Fatalf("yearly: %+v", s.Yearly)
	}
}

func TestSummarizeEmptyDataset(t *testing.T) {
	s := Summarize(nil)

	if s.TotalExpenses != 0 || s.TotalIncome != 0 || s.Net != 0 {
		t.Fatalf("totals not zero: %+v", s)
	}
	if len(s.CategoryBreakdown) != 0 || len(s.IncomeBreakdown) != 0 || len(s.TopTags) != 0 {
		t.Fatalf("breakdowns not empty: %+v", s)
	}
	if s.DateRange.Start != nil || s.DateRange.End != nil {
		t.Fatalf("date range should be unset for empty dataset")
	}
	if len(s.Monthly) != 0 || len(s.Yearly) != 0 {
		t.Fatalf("buckets not empty: %+v", s)
	}
}

func TestSummarizeIncomeBreakdown(t *testing.T) {
	salary := incomeTx(2024, 1, 15, 1000)
	salary.Category = "Salary"
	salaryAgain := incomeTx(2024, 2, 15, 1000)
	salaryAgain.Category = "Salary"
	dividends := incomeTx(2024, 3, 1, 150)
	dividends.Category = "Dividends"
	groceries := tx(2024, 1, 5, "Food", 80)

	s := Summarize([]core.Transaction{salary, dividends, salaryAgain, groceries})

	if len(s.IncomeBreakdown) != 2 {
		t.Fatalf("income breakdown: %+v", s.IncomeBreakdown)
	}
	if s.IncomeBreakdown[0].Label != "Salary" || !almostEqual(s.IncomeBreakdown[0].Amount, 2000) {
		t.Fatalf("first entry: %+v", s.IncomeBreakdown[0])
	}
	if s.IncomeBreakdown[1].Label != "Dividends" || !almostEqual(s.IncomeBreakdown[1].Amount, 150) {
		t.Fatalf("second entry: %+v", s.IncomeBreakdown[1])
	}
	// Expense categories stay on their own side.
	if len(s.CategoryBreakdown) != 1 || s.CategoryBreakdown[0].Label != "Food" {
		t.Fatalf("category breakdown: %+v", s.CategoryBreakdown)
	}
}

func TestSummarizeNetIdentity(t *testing.T) {
	var txs []core.Transaction
	for i := 1; i <= 50; i++ {
		txs = append(txs, tx(2023, (i%12)+1, 1, "C", float64(i)*0.37))
		txs = append(txs, incomeTx(2023, (i%12)+1, 1, float64(i)*1.21))
	}
	s := Summarize(txs)
	if s.Net != s.TotalIncome-s.TotalExpenses {
		t.Fatalf("net identity broken: %v != %v - %v", s.Net, s.TotalIncome, s.TotalExpenses)
	}
	for _, b := range s.Monthly {
		if b.Net != b.Income-b.Expenses {
			t.Fatalf("bucket %s net identity broken", b.Period)
		}
	}
}

func TestSummarizeUncategorizedCountedInTotals(t *testing.T) {
	txs := []core.Transaction{
		tx(2024, 1, 1, "", 40),
		tx(2024, 1, 2, "Food", 60),
	}
	s := Summarize(txs)
	if !almostEqual(s.TotalExpenses, 100) {
		t.Fatalf("total=%v, want 100", s.TotalExpenses)
	}
	if len(s.CategoryBreakdown) != 1 {
		t.Fatalf("uncategorized rows must not appear in breakdown: %+v", s.CategoryBreakdown)
	}
}

func TestSummarizeCategoryOrdering(t *testing.T) {
	txs := []core.Transaction{
		tx(2024, 1, 1, "Small", 10),
		tx(2024, 1, 2, "TieA", 50),
		tx(2024, 1, 3, "TieB", 50),
		tx(2024, 1, 4, "Big", 200),
	}
	s := Summarize(txs)
	got := make([]string, 0, len(s.CategoryBreakdown))
	for _, c := range s.CategoryBreakdown {
		got = append(got, c.Label)
	}
	want := []string{"Big", "TieA", "TieB", "Small"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestSummarizeTopTagsTruncated(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 15; i++ {
		row := tx(2024, 1, 1, "C", float64(100-i))
		row.Tags = []string{string(rune('a' + i))}
		txs = append(txs, row)
	}
	s := Summarize(txs)
	if len(s.TopTags) != TopTagsLimit {
		t.Fatalf("top tags len=%d, want %d", len(s.TopTags), TopTagsLimit)
	}
	if s.TopTags[0].Label != "a" || !almostEqual(s.TopTags[0].Amount, 100) {
		t.Fatalf("top tag: %+v", s.TopTags[0])
	}
}

func TestApplyStableSortOnTies(t *testing.T) {
	a := tx(2024, 5, 1, "A", 10)
	a.Description = "first"
	b := tx(2024, 5, 1, "B", 10)
	b.Description = "second"
	c := tx(2024, 5, 1, "C", 10)
	c.Description = "third"
	txs := []core.Transaction{a, b, c}

	for _, dir := range []SortDir{SortAsc, SortDesc} {
		for _, key := range []SortKey{SortByDate, SortByAmount} {
			got := Apply(txs, Filter{SortKey: key, SortDir: dir})
			if len(got) != 3 {
				t.Fatalf("len=%d", len(got))
			}
			if got[0].Description != "first" || got[1].Description != "second" || got[2].Description != "third" {
				t.Fatalf("key=%s dir=%s broke tie order: %s %s %s",
					key, dir, got[0].Description, got[1].Description, got[2].Description)
			}
		}
	}
}

func TestApplyFilters(t *testing.T) {
	food := tx(2024, 1, 10, "Food", 20)
	food.Tags = []string{"groceries"}
	travel := tx(2024, 6, 1, "Travel", 300)
	travel.Description = "Flight to Oslo"
	txs := []core.Transaction{food, travel}

	t.Run("category exact match", func(t *testing.T) {
		got := Apply(txs, Filter{Category: "food"})
		if len(got) != 1 || got[0].Category != "Food" {
			t.Fatalf("got %+v", got)
		}
	})
	t.Run("tag match", func(t *testing.T) {
		got := Apply(txs, Filter{Tag: "Groceries"})
		if len(got) != 1 || got[0].Category != "Food" {
			t.Fatalf("got %+v", got)
		}
	})
	t.Run("search matches description", func(t *testing.T) {
		got := Apply(txs, Filter{Search: "oslo"})
		if len(got) != 1 || got[0].Category != "Travel" {
			t.Fatalf("got %+v", got)
		}
	})
	t.Run("date window", func(t *testing.T) {
		got := Apply(txs, Filter{From: core.NewDate(2024, 2, 1)})
		if len(got) != 1 || got[0].Category != "Travel" {
			t.Fatalf("got %+v", got)
		}
	})
	t.Run("sort by amount ascending", func(t *testing.T) {
		got := Apply(txs, Filter{SortKey: SortByAmount, SortDir: SortAsc})
		if got[0].Amount != 20 || got[1].Amount != 300 {
			t.Fatalf("got %v then %v", got[0].Amount, got[1].Amount)
		}
	})
	t.Run("default is newest first", func(t *testing.T) {
		got := Apply(txs, Filter{})
		if !got[0].Date.After(got[1].Date) {
			t.Fatalf("expected newest first, got %v then %v", got[0].Date, got[1].Date)
		}
	})
}

func TestSearchTotals(t *testing.T) {
	ski := tx(2024, 2, 1, "Sport", 50)
	ski.Tags = []string{"skiing", "winter"}
	other := tx(2024, 2, 2, "Food", 20)

	res := Search([]core.Transaction{ski, other}, "ski")
	if res.Count != 1 || len(res.Matches) != 1 {
		t.Fatalf("count=%d matches=%d", res.Count, len(res.Matches))
	}
	if !almostEqual(res.ExpenseTotal, 50) || !almostEqual(res.IncomeTotal, 0) {
		t.Fatalf("totals: %v / %v", res.ExpenseTotal, res.IncomeTotal)
	}
}

func TestSearchBothSides(t *testing.T) {
	exp := tx(2024, 2, 1, "Consulting", 50)
	inc := incomeTx(2024, 2, 2, 400)
	inc.Description = "Consulting invoice"

	res := Search([]core.Transaction{exp, inc}, "consulting")
	if res.Count != 2 {
		t.Fatalf("count=%d, want 2", res.Count)
	}
	if !almostEqual(res.ExpenseTotal, 50) || !almostEqual(res.IncomeTotal, 400) {
		t.Fatalf("totals: %v / %v", res.ExpenseTotal, res.IncomeTotal)
	}
}

func TestPaginate(t *testing.T) {
	txs := []core.Transaction{
		tx(2024, 1, 1, "A", 1),
		tx(2024, 1, 2, "B", 2),
		tx(2024, 1, 3, "C", 3),
	}
	if got := Paginate(txs, 1, 1); len(got) != 1 || got[0].Category != "B" {
		t.Fatalf("got %+v", got)
	}
	if got := Paginate(txs, 5, 10); len(got) != 0 {
		t.Fatalf("expected empty, got %+v", got)
	}
	if got := Paginate(txs, 0, 0); len(got) != 3 {
		t.Fatalf("no limit should return all, got %d", len(got))
	}
}

func TestCategoriesAndTags(t *testing.T) {
	a := tx(2024, 1, 1, "Zoo", 1)
	a.Tags = []string{"b", "a"}
	b := tx(2024, 1, 2, "Alpha", 1)
	b.Tags = []string{"a"}
	c := tx(2024, 1, 3, "", 1)

	cats := Categories([]core.Transaction{a, b, c})
	if len(cats) != 2 || cats[0] != "Alpha" || cats[1] != "Zoo" {
		t.Fatalf("cats=%v", cats)
	}
	tags := Tags([]core.Transaction{a, b, c})
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Fatalf("tags=%v", tags)
	}
}
