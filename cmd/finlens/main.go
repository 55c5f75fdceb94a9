package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finlens/internal/amqp"
	"finlens/internal/auth"
	"finlens/internal/config"
	"finlens/internal/dataset"
	apphttp "finlens/internal/http"
	"finlens/internal/insights"
	"finlens/internal/log"
	"finlens/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting finlens server", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	// Choose the dataset backend.
	var (
		source    dataset.Source
		memSource *dataset.MemorySource
	)
	datasetLog := logger.WithComponent(log.ComponentDataset)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			datasetLog.Error("Failed to open SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		source = repo
		datasetLog.Info("Initialized sqlite backend", log.FieldBackend, cfg.DataBackend, "path", cfg.SQLiteDBPath)
	default:
		mem, err := dataset.NewMemorySource(cfg.CSVDataDir)
		if err != nil {
			datasetLog.Error("Failed to load CSV dataset", log.FieldError, err, "dir", cfg.CSVDataDir)
			os.Exit(1)
		}
		source = mem
		memSource = mem
		datasetLog.Info("Initialized csv backend",
			log.FieldBackend, cfg.DataBackend, "dir", cfg.CSVDataDir, log.FieldRowCount, mem.Len())
	}

	gate := auth.NewGate(auth.NewTokenSet(cfg.TrustedTokens), cfg.SessionTTL)
	if len(cfg.TrustedTokens) == 0 {
		logger.Warn("No trusted tokens configured - all callers will see obfuscated data")
	}

	insightsLog := logger.WithComponent(log.ComponentInsights)
	var advisor insights.Advisor
	if gemini, err := insights.NewGeminiAdvisor(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel); err == nil {
		advisor = gemini
		insightsLog.Info("Insights advisor initialized")
	} else if errors.Is(err, insights.ErrUnavailable) {
		insightsLog.Info("Insights disabled - no GEMINI_API_KEY provided")
	} else {
		insightsLog.Warn("Failed to initialize insights advisor, continuing without it", log.FieldError, err)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		Source:            source,
		Gate:              gate,
		Advisor:           advisor,
		GlobalRateLimit:   cfg.GlobalRateLimit,
		LoginRateLimit:    cfg.LoginRateLimit,
		InsightsRateLimit: cfg.InsightsRateLimit,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional reload notifications: an import publishes, we refresh.
	if cfg.AMQPURL != "" {
		amqpLog := logger.WithComponent(log.ComponentAMQP)
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			amqpLog.Warn("Failed to initialize AMQP client, reload notifications disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			go func() {
				err := amqpClient.ConsumeDatasetReload(ctx, func(msg *amqp.DatasetReloadMessage) error {
					if memSource != nil {
						if err := memSource.Reload(ctx); err != nil {
							return err
						}
					}
					srv.InvalidateCaches()
					return nil
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					amqpLog.Error("Reload consumption stopped", log.FieldError, err)
				}
			}()
			amqpLog.Info("AMQP reload notifications enabled", "queue", cfg.AMQPQueue)
		}
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Listening", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
