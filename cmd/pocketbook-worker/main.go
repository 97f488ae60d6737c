package main

import (
	"context"
	"os"
	"time"

	"pocketbook/internal/amqp"
	"pocketbook/internal/backend"
	"pocketbook/internal/cli"
	"pocketbook/internal/config"
	"pocketbook/internal/sheets"
	gsheet "pocketbook/internal/sheets/google"
	sheetsmem "pocketbook/internal/sheets/memory"
	"pocketbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := config.Load()
	logger := cli.SetupLogger(bootstrap.LogLevel, bootstrap.LogFormat)
	logger.Info("Starting pocketbook-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	repos := result.Repositories

	var ledger sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Google Sheets ledger initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		ledger = sheetsmem.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring into an in-memory ledger")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ledgerWorker := worker.NewLedgerWorker(repos.Transactions, repos.Users, ledger, logger)

	if cfg.WorkerBackfill {
		logger.Info("Backfilling ledger from stored transactions...")
		if err := ledgerWorker.Backfill(ctx); err != nil {
			// Keep consuming; the next backfill run can catch up.
			logger.Error("Ledger backfill failed", "error", err)
		}
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := ledgerWorker.Stop(ctx); err != nil {
			logger.Error("Worker stop error", "error", err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close data backend", "error", err)
		}
	})

	if err := ledgerWorker.Start(shutdownCtx, amqpClient); err != nil {
		logger.Error("Failed to start ledger worker", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped")
}
