// kosh-import pulls the raw-flow rows out of the configured Google
// spreadsheet and saves the ones the ledger has not seen yet.
package main

import (
	"context"
	"os"
	"time"

	"kosh/internal/cli"
	"kosh/internal/services"
	gsheet "kosh/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting kosh-import")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for importing")
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

	importer := services.NewImporter(result.Store, source, result.Transactions, cfg.Epoch())
	summary, err := importer.Run(ctx)
	if err != nil {
		logger.Error("Import failed", "error", err)
		os.Exit(1)
	}

	for _, rowErr := range summary.Errors {
		logger.Warn("Row skipped", "error", rowErr)
	}
	logger.Info("Import finished",
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"errored", summary.Errored)
}
