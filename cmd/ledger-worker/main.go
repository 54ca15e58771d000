package main

import (
	"context"
	"errors"
	"os"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/backend"
	"presupuesto/internal/cli"
	"presupuesto/internal/ledger"
	"presupuesto/internal/log"
	"presupuesto/internal/services"
	gsheet "presupuesto/internal/sheets/google"
	"presupuesto/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info", log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	if err := cfg.ValidateSheetsExport(); err != nil {
		logger.Error("Sheets export configuration invalid", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is private to this process; the worker will only see the seed file")
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer result.Cleanup()

	// The API server owns the stored ledger; this process only reads it.
	manager := ledger.New(result.Store,
		ledger.ReadOnly(),
		ledger.WithLogger(logger),
		ledger.WithStorageKey(cfg.StorageKey),
		ledger.WithSeedMonth(cfg.SeedMonthKey(time.Now())),
	)

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(manager, sheetsClient, cfg.SyncConcurrency, logger)

	processorCfg := services.DefaultSyncProcessorConfig()
	processorCfg.Interval = cfg.SyncInterval
	processor := services.NewSyncProcessor(syncWorker, processorCfg, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Sync processor stop failed", log.FieldError, err)
		}
	})

	// The periodic pass also covers messages lost while the worker was down.
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeMonthChanged(ctx, syncWorker.HandleMonthChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
