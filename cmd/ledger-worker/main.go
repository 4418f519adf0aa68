package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	cfg := cli.LoadConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting ledger-worker", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sink, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ledger := services.NewLedgerService(store, nil, logger)
	exporter := worker.NewExportWorker(ledger, sink, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeLedgerChanges(gctx, exporter.HandleLedgerChanged)
	})
	g.Go(func() error {
		return exporter.RunPeriodic(gctx, cfg.ExportInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger worker stopped", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Ledger worker stopped gracefully")
}
