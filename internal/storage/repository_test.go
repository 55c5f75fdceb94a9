package storage

import (
	"context"
	"path/filepath"
	"testing"

	"finlens/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "finlens.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReplaceAllAndSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	txs := []core.Transaction{
		{
			Date:              core.NewDate(2024, 3, 15),
			Account:           "Checking",
			Category:          "Food",
			Tags:              []string{"groceries", "weekly"},
			Description:       "weekly shop",
			ExpenseAmount:     100,
			Amount:            100,
			Currency:          "EUR",
			ReportingCurrency: "EUR",
		},
		{
			Date:         core.NewDate(2024, 3, 1),
			Category:     "Salary",
			IncomeAmount: 1000,
			Amount:       1000,
			Currency:     "EUR",
		},
	}

	n, err := repo.ReplaceAll(ctx, txs)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted=%d, want 2", n)
	}

	got, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows=%d, want 2", len(got))
	}
	// Snapshot orders by date, so the income row comes first.
	if !got[0].Date.Equal(core.NewDate(2024, 3, 1)) || got[0].IncomeAmount != 1000 {
		t.Fatalf("first row: %+v", got[0])
	}
	if got[1].Category != "Food" || got[1].ExpenseAmount != 100 {
		t.Fatalf("second row: %+v", got[1])
	}
	if len(got[1].Tags) != 2 || got[1].Tags[0] != "groceries" || got[1].Tags[1] != "weekly" {
		t.Fatalf("tags: %v", got[1].Tags)
	}
	if got[0].Tags != nil {
		t.Fatalf("empty tags should stay nil, got %v", got[0].Tags)
	}
}

func TestReplaceAllOverwritesPreviousImport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := []core.Transaction{{Date: core.NewDate(2023, 1, 1), ExpenseAmount: 10, Amount: 10}}
	if _, err := repo.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("first import: %v", err)
	}

	second := []core.Transaction{
		{Date: core.NewDate(2024, 1, 1), ExpenseAmount: 20, Amount: 20},
		{Date: core.NewDate(2024, 1, 2), ExpenseAmount: 30, Amount: 30},
	}
	if _, err := repo.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("second import: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count=%d, want 2 after re-import", count)
	}

	got, _ := repo.Snapshot(ctx)
	for _, tx := range got {
		if tx.Date.Year() != 2024 {
			t.Fatalf("old rows survived re-import: %+v", tx)
		}
	}
}

func TestSnapshotEmptyDatabase(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("rows=%d, want 0", len(got))
	}

	count, err := repo.Count(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("count=%d err=%v", count, err)
	}
}
