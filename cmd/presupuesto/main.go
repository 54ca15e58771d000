package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/backend"
	"presupuesto/internal/cli"
	apphttp "presupuesto/internal/http"
	"presupuesto/internal/ledger"
	"presupuesto/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info", log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithStorageKey(cfg.StorageKey),
		ledger.WithSeedMonth(cfg.SeedMonthKey(time.Now())),
	}

	// Month change notifications are optional; the API works without a broker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
			amqpClient = nil
		} else {
			opts = append(opts, ledger.WithNotifier(amqp.NewNotifier(amqpClient)))
			logger.Info("AMQP notifications enabled", "exchange", cfg.AMQPExchange)
		}
	}

	manager := ledger.New(result.Store, opts...)
	rep := manager.Load(context.Background())
	logger.Info("Ledger loaded",
		log.FieldCount, rep.Months,
		"seeded", rep.Seeded,
		log.FieldStorageKey, cfg.StorageKey)

	srv := apphttp.NewServer(":"+cfg.Port, manager, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Pinger:             result.Pinger,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close failed", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting presupuesto server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
