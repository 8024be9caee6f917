package main

import (
	"context"
	"os"
	"time"

	"kosh/internal/cli"
	"kosh/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting kosh-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	if result.AMQP == nil {
		logger.Info("AMQP not configured, relying on the periodic ticker")
	}

	w := worker.NewRecalcWorker(result.Recalc, result.AMQP, cfg.RecalcInterval, cfg.RecordAfterHour)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Worker running",
		"interval", cfg.RecalcInterval.String(),
		"record_after_hour", cfg.RecordAfterHour)
	if err := w.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
