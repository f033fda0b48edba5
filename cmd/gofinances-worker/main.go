// The gofinances-worker consumes ledger events and writes an audit trail of
// every mutation. Messages carry identifiers only; the worker reads the full
// record back from the store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gofinances/internal/config"
	"gofinances/internal/events"
	applog "gofinances/internal/log"
	"gofinances/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteLedger(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Starting ledger event worker", "queue", cfg.AMQPQueue)

	err = client.ConsumeLedgerEvents(ctx, func(msg *events.LedgerEventMessage) error {
		switch msg.Event {
		case events.EventTransactionCreated:
			t, err := store.GetTransaction(ctx, msg.TransactionID)
			if err != nil {
				return err
			}
			if t == nil {
				// Already deleted again; nothing left to audit.
				logger.Warn("Created transaction no longer exists", "id", msg.TransactionID)
				return nil
			}
			logger.Info("Transaction created",
				"id", t.ID,
				"title", t.Title,
				"type", t.Type,
				"value", t.Value.String(),
				"category", t.CategoryTitle)
		case events.EventTransactionDeleted:
			logger.Info("Transaction deleted", "id", msg.TransactionID)
		case events.EventImportCompleted:
			logger.Info("Bulk import completed", "count", msg.Count)
		default:
			logger.Warn("Unknown ledger event", "event", msg.Event)
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
