// Package dataset abstracts where the transaction data lives. Handlers only
// ever see a Source; the concrete backend is CSV files or SQLite, chosen at
// startup.
package dataset

import (
	"context"
	"log/slog"
	"sync"

	"finlens/internal/core"
	"finlens/internal/ingest"
)

// Source yields the full dataset. The returned slice may be shared between
// callers; treat it as read-only and copy before sorting or mutating.
// aggregate.Apply already copies.
type Source interface {
	Snapshot(ctx context.Context) ([]core.Transaction, error)
}

// MemorySource serves a dataset parsed from a CSV directory and held in
// memory. Reload re-parses the directory, so a dropped-in export becomes
// visible without a restart.
type MemorySource struct {
	dir string

	mu  sync.RWMutex
	txs []core.Transaction
}

// NewMemorySource parses dir eagerly so a bad data directory fails at
// startup, not on the first request.
func NewMemorySource(dir string) (*MemorySource, error) {
	s := &MemorySource{dir: dir}
	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemorySource) Snapshot(ctx context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txs, nil
}

// Reload re-parses the CSV directory and atomically swaps the dataset. On
// parse failure the previous dataset stays in place.
func (s *MemorySource) Reload(ctx context.Context) error {
	res, err := ingest.ParseDir(s.dir)
	if err != nil {
		return err
	}
	if res.Skipped > 0 {
		slog.WarnContext(ctx, "Skipped malformed rows during load",
			"dir", s.dir,
			"skipped", res.Skipped,
			"loaded", len(res.Transactions))
	}

	s.mu.Lock()
	s.txs = res.Transactions
	s.mu.Unlock()

	slog.InfoContext(ctx, "Dataset loaded", "dir", s.dir, "rows", len(res.Transactions))
	return nil
}

// Len reports the current row count without copying.
func (s *MemorySource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}
