// Package ingest parses transaction exports in CSV form. The parser is
// tolerant: a malformed row is skipped and counted, never fatal, so one bad
// line in a yearly export does not block the rest of the data.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"finlens/internal/core"
)

var (
	ErrMissingHeader = errors.New("missing header row")
	ErrNoDateColumn  = errors.New("header has no date column")
)

// Result is a parsed dataset plus how many rows were dropped.
type Result struct {
	Transactions []core.Transaction
	Skipped      int
}

// Export column names, matched case-insensitively after trimming.
const (
	colDate         = "date"
	colAccount      = "account"
	colCategory     = "category"
	colTags         = "tags"
	colExpense      = "expense amount"
	colIncome       = "income amount"
	colCurrency     = "currency"
	colMainCurrency = "main currency"
	colInMain       = "in main currency"
	colDescription  = "description"
)

// Parse reads one CSV export. The first row must be a header; columns are
// located by name so exports with reordered or extra columns still load.
func Parse(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return Result{}, ErrMissingHeader
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols[colDate]; !ok {
		return Result{}, ErrNoDateColumn
	}

	var res Result
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structurally broken line, such as an unbalanced quote.
			res.Skipped++
			continue
		}
		tx, ok := parseRow(record, cols)
		if !ok {
			res.Skipped++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

// ParseFile loads a single CSV file.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}

// ParseDir loads every .csv file directly under dir, in name order, and
// merges the results. A directory without CSV files yields an empty result,
// not an error.
func ParseDir(dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var merged Result
	for _, name := range names {
		res, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return Result{}, err
		}
		merged.Transactions = append(merged.Transactions, res.Transactions...)
		merged.Skipped += res.Skipped
	}
	return merged, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRow(record []string, cols map[string]int) (core.Transaction, bool) {
	date, err := parseDate(field(record, cols, colDate))
	if err != nil {
		return core.Transaction{}, false
	}
	expense, err := parseAmount(field(record, cols, colExpense))
	if err != nil {
		return core.Transaction{}, false
	}
	income, err := parseAmount(field(record, cols, colIncome))
	if err != nil {
		return core.Transaction{}, false
	}
	reported, err := parseAmount(field(record, cols, colInMain))
	if err != nil {
		return core.Transaction{}, false
	}
	if reported == 0 {
		reported = expense + income
	}

	tx := core.Transaction{
		Date:              date,
		Account:           field(record, cols, colAccount),
		Category:          field(record, cols, colCategory),
		Tags:              parseTags(field(record, cols, colTags)),
		Description:       field(record, cols, colDescription),
		ExpenseAmount:     expense,
		IncomeAmount:      income,
		Amount:            reported,
		Currency:          field(record, cols, colCurrency),
		ReportingCurrency: field(record, cols, colMainCurrency),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, false
	}
	return tx, true
}

// Export dates are "03/15/24"; ISO dates are accepted too since hand-edited
// files tend to use them.
var dateLayouts = []string{"01/02/06", "2006-01-02", "01/02/2006"}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// parseAmount handles thousands separators and currency-style spacing, so
// "1,234.56" loads as 1234.56. Empty cells are zero.
func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return v, nil
}

func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
