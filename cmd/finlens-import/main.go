// finlens-import loads CSV exports into the SQLite store and, when a broker
// is configured, tells running servers to reload.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finlens/internal/amqp"
	"finlens/internal/config"
	"finlens/internal/core"
	"finlens/internal/ingest"
	"finlens/internal/log"
	"finlens/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentIngest
	logger := log.New(logCfg)
	log.SetDefault(logger)

	cfg := config.Load()

	dir := flag.String("dir", cfg.CSVDataDir, "directory with CSV exports")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	txs, skipped, err := parseAll(ctx, *dir)
	if err != nil {
		logger.Error("Import parse failed", log.FieldError, err, "dir", *dir)
		os.Exit(1)
	}
	if skipped > 0 {
		logger.Warn("Skipped malformed rows", log.FieldSkipped, skipped)
	}
	logger.Info("Parsed CSV exports", log.FieldOperation, log.OpParse, "dir", *dir, log.FieldRowCount, len(txs))

	storageLog := logger.WithComponent(log.ComponentStorage)
	repo, err := storage.NewSQLiteRepository(*dbPath)
	if err != nil {
		storageLog.Error("Failed to open SQLite repository", log.FieldError, err, "path", *dbPath)
		os.Exit(1)
	}
	defer repo.Close()

	count, err := repo.ReplaceAll(ctx, txs)
	if err != nil {
		storageLog.Error("Import failed", log.FieldError, err)
		os.Exit(1)
	}
	storageLog.Info("Import complete", log.FieldOperation, log.OpImport, log.FieldRowCount, count, "db", *dbPath)

	// Best effort: a missing broker only means servers reload on restart.
	if cfg.AMQPURL != "" {
		amqpLog := logger.WithComponent(log.ComponentAMQP)
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			amqpLog.Warn("Failed to connect to AMQP, skipping reload notification", log.FieldError, err)
			return
		}
		defer client.Close()

		if err := client.PublishDatasetReload(ctx, "sqlite", count); err != nil {
			amqpLog.Warn("Failed to publish reload notification", log.FieldError, err)
		}
	}
}

// parseAll parses every CSV file in dir concurrently, keeping file name order
// in the merged output so imports stay deterministic.
func parseAll(ctx context.Context, dir string) ([]core.Transaction, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	results := make([]ingest.Result, len(names))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, name := range names {
		g.Go(func() error {
			res, err := ingest.ParseFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var (
		merged  []core.Transaction
		skipped int
	)
	for _, res := range results {
		merged = append(merged, res.Transactions...)
		skipped += res.Skipped
	}
	return merged, skipped, nil
}
