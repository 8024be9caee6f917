// kosh-backfill rebuilds the net-worth history from the epoch using the
// valuation rows in the configured Google spreadsheet. Existing samples
// from the epoch onward are replaced.
package main

import (
	"context"
	"os"
	"time"

	"kosh/internal/cli"
	gsheet "kosh/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting kosh-backfill")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for backfilling")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	source, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	rows, err := source.ReadValuations(ctx)
	if err != nil {
		logger.Error("Failed to read valuation rows", "error", err)
		os.Exit(1)
	}
	logger.Info("Read valuation rows", "rows", len(rows))

	valuations, err := result.Recalc.ResolveValuations(ctx, rows)
	if err != nil {
		logger.Error("Failed to resolve valuations", "error", err)
		os.Exit(1)
	}

	samples, err := result.Recalc.Backfill(ctx, valuations)
	if err != nil {
		logger.Error("Backfill failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Backfill finished",
		"valuations", len(valuations),
		"samples", len(samples),
		"epoch", cfg.NetWorthEpoch)
}
