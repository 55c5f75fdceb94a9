// Package storage persists the transaction dataset in SQLite. The repository
// is the durable backend behind the in-memory dataset snapshot; the import
// tool writes here and the server reads the whole set at startup or on a
// reload signal.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finlens/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceAll swaps the stored dataset for the given rows in one transaction.
// Imports are idempotent full loads, so a partial write never survives.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, txs []core.Transaction) (int, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (
			date, account, category, tags, description,
			expense_amount, income_amount, amount, currency, reporting_currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		_, err := stmt.ExecContext(ctx,
			tx.Date.UTC().Format(dateLayout),
			tx.Account,
			tx.Category,
			joinTags(tx.Tags),
			tx.Description,
			tx.ExpenseAmount,
			tx.IncomeAmount,
			tx.Amount,
			tx.Currency,
			tx.ReportingCurrency,
		)
		if err != nil {
			return 0, fmt.Errorf("insert transaction: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Dataset replaced in SQLite", "rows", len(txs))
	return len(txs), nil
}

// Snapshot loads the full dataset ordered by date. It implements
// dataset.Source.
func (r *SQLiteRepository) Snapshot(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, account, category, tags, description,
		       expense_amount, income_amount, amount, currency, reporting_currency
		FROM transactions
		ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			rawDate string
			rawTags string
		)
		err := rows.Scan(
			&rawDate,
			&tx.Account,
			&tx.Category,
			&rawTags,
			&tx.Description,
			&tx.ExpenseAmount,
			&tx.IncomeAmount,
			&tx.Amount,
			&tx.Currency,
			&tx.ReportingCurrency,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Date, err = time.Parse(dateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", rawDate, err)
		}
		tx.Tags = splitTags(rawTags)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// Count returns the number of stored rows, used by readiness checks.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

const dateLayout = "2006-01-02"

// Tags are stored comma-joined. Ingest strips commas out of individual tags,
// so the encoding is unambiguous.
const tagSeparator = ","

func joinTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, tagSeparator)
}
