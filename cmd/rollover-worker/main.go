package main

import (
	"context"
	"os"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/backend"
	"presupuesto/internal/cli"
	"presupuesto/internal/ledger"
	"presupuesto/internal/log"
	"presupuesto/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info", log.ComponentRollover)
	logger.Info("Starting rollover-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, log.ComponentRollover)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is private to this process; opened months are not shared")
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer result.Cleanup()

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithStorageKey(cfg.StorageKey),
		ledger.WithSeedMonth(cfg.SeedMonthKey(time.Now())),
	}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, opened months will not be exported", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			opts = append(opts, ledger.WithNotifier(amqp.NewNotifier(amqpClient)))
		}
	}
	manager := ledger.New(result.Store, opts...)
	processor := services.NewRolloverProcessor(manager, time.Now, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Rollover stop failed", log.FieldError, err)
		}
	})

	// Catch up right away, then on schedule.
	if created, err := processor.ProcessDue(ctx); err != nil {
		logger.Failure(ctx, "Initial rollover failed", log.OpRollover, err, nil)
	} else {
		logger.Info("Initial rollover complete", log.FieldCount, created)
	}
	if err := processor.Schedule(ctx, cfg.RolloverSchedule); err != nil {
		logger.Error("Failed to schedule rollover", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Rollover-worker shutdown complete")
}
