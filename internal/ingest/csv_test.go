package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finlens/internal/core"
)

const sampleCSV = `Date,Account,Category,Tags,Expense amount,Income amount,Currency,Main currency,In main currency,Description
03/15/24,Checking,Food,"groceries, weekly",100.00,,EUR,EUR,100.00,weekly shop
03/01/24,Checking,Salary,payroll,,"1,000.00",EUR,EUR,"1,000.00",march salary
`

func TestParse(t *testing.T) {
	res, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Skipped != 0 {
		t.Fatalf("skipped=%d, want 0", res.Skipped)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("rows=%d, want 2", len(res.Transactions))
	}

	exp := res.Transactions[0]
	if !exp.Date.Equal(core.NewDate(2024, 3, 15)) {
		t.Fatalf("date=%v", exp.Date)
	}
	if exp.Category != "Food" || exp.ExpenseAmount != 100 || exp.Amount != 100 {
		t.Fatalf("expense row: %+v", exp)
	}
	if len(exp.Tags) != 2 || exp.Tags[0] != "groceries" || exp.Tags[1] != "weekly" {
		t.Fatalf("tags: %v", exp.Tags)
	}

	inc := res.Transactions[1]
	if inc.IncomeAmount != 1000 || inc.Amount != 1000 {
		t.Fatalf("thousands separator not handled: %+v", inc)
	}
	if inc.Currency != "EUR" || inc.ReportingCurrency != "EUR" {
		t.Fatalf("currencies: %+v", inc)
	}
}

func TestParseSkipsMalformedRows(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"bad date", "not-a-date,Checking,Food,,10.00,,EUR,EUR,10.00,x"},
		{"bad amount", "03/15/24,Checking,Food,,ten,,EUR,EUR,,x"},
		{"no amount", "03/15/24,Checking,Food,,,,EUR,EUR,,x"},
		{"both amounts", "03/15/24,Checking,Food,,10.00,20.00,EUR,EUR,,x"},
		{"negative amount", "03/15/24,Checking,Food,,-10.00,,EUR,EUR,,x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := sampleCSV + tc.row + "\n"
			res, err := Parse(strings.NewReader(input))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(res.Transactions) != 2 || res.Skipped != 1 {
				t.Fatalf("rows=%d skipped=%d", len(res.Transactions), res.Skipped)
			}
		})
	}
}

func TestParseHeaderErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); !errors.Is(err, ErrMissingHeader) {
		t.Fatalf("err=%v, want ErrMissingHeader", err)
	}
	if _, err := Parse(strings.NewReader("Account,Category\nChecking,Food\n")); !errors.Is(err, ErrNoDateColumn) {
		t.Fatalf("err=%v, want ErrNoDateColumn", err)
	}
}

func TestParseReorderedColumns(t *testing.T) {
	input := "Description,Date,Income amount\npayday,2024-03-01,500.00\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("rows=%d", len(res.Transactions))
	}
	got := res.Transactions[0]
	if got.IncomeAmount != 500 || got.Amount != 500 || got.Description != "payday" {
		t.Fatalf("row: %+v", got)
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("2023.csv", "Date,Expense amount\n01/10/23,30.00\n")
	write("2024.csv", "Date,Expense amount\n01/10/24,40.00\nbad,\n")
	write("notes.txt", "ignore me")

	res, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("parse dir: %v", err)
	}
	if len(res.Transactions) != 2 || res.Skipped != 1 {
		t.Fatalf("rows=%d skipped=%d", len(res.Transactions), res.Skipped)
	}
	// Files load in name order.
	if res.Transactions[0].Date.Year() != 2023 {
		t.Fatalf("first row from %v", res.Transactions[0].Date)
	}
}

func TestParseDirMissing(t *testing.T) {
	if _, err := ParseDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
