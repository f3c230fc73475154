// Command funds-worker mirrors the ledger into backup files and, when
// configured, a Google spreadsheet. It mirrors on every change notification
// from the broker and on a fixed interval.
package main

import (
	"context"
	"os"
	"time"

	"funds/internal/amqp"
	"funds/internal/backend"
	"funds/internal/cli"
	"funds/internal/config"
	"funds/internal/log"
	"funds/internal/services"
	"funds/internal/sheets"
	"funds/internal/sheets/backup"
	gsheet "funds/internal/sheets/google"
	"funds/internal/storage"
	"funds/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting funds-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if !run(logger, cfg) {
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// run returns false on failure, after its deferred cleanups have run.
func run(logger *log.Logger, cfg *config.Config) bool {
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		return false
	}
	kv, err := backend.OpenKV(backendConfig)
	if err != nil {
		logger.Error("Failed to open storage", log.FieldError, err, "backend", cfg.DataBackend)
		return false
	}
	// The server owns every write, ids assigned to legacy records included.
	source := services.NewLedgerService(storage.NewReadOnlyCollections(kv), nil)
	defer source.Close()

	var sinks []sheets.Mirror
	if cfg.BackupKeep > 0 {
		dir, err := backup.New(cfg.BackupDir, cfg.BackupKeep)
		if err != nil {
			logger.Error("Failed to initialize backup directory", log.FieldError, err, "dir", cfg.BackupDir)
			return false
		}
		sinks = append(sinks, dir)
		logger.Info("Backup mirror enabled", "dir", cfg.BackupDir, "keep", cfg.BackupKeep)
	}
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			Currency:           cfg.Currency,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			return false
		}
		sinks = append(sinks, client)
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}
	if len(sinks) == 0 {
		logger.Error("No mirror configured: set BACKUP_KEEP > 0 or GOOGLE_SPREADSHEET_ID")
		return false
	}

	var consumer worker.ChangeConsumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			return false
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("AMQP disabled - mirroring on interval only", "interval", cfg.MirrorInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	w := worker.NewMirrorWorker(source, sinks, cfg.MirrorInterval)
	if err := w.Run(ctx, consumer); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		return false
	}

	cli.WaitForShutdown(ctx, done)
	return true
}
