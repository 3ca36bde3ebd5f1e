package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/ledger"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("bilancio-worker")
	logger.Info("Starting bilancio-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg.SQLiteDBPath)

	// Unlike the server, the worker exists to consume ledger events, so a
	// missing broker is a deployment error.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load timezone", "error", err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	// No AMQP client on the service: repairs made here must not feed new
	// events back into the queue the worker is draining.
	svc := ledger.NewService(store, nil, loc)
	rec := worker.NewReconciler(svc, cfg.ReconcileBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rec.StartupCheck(ctx); err != nil {
		logger.Error("Startup consistency check failed", "error", err)
		// Keep going, the periodic sweep retries.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeLedgerEvents(gctx, func(msg *amqp.LedgerEventMessage) error {
			return rec.HandleLedgerEvent(gctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) && gctx.Err() == nil {
			return fmt.Errorf("consume ledger events: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := rec.SweepAllAccounts(gctx); err != nil {
					logger.Error("Reconciliation sweep failed", "error", err)
				}
			}
		}
	})

	logger.Info("Reconciliation worker running",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.ReconcileInterval,
		"batch_size", cfg.ReconcileBatchSize)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cancel()
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Ledger service close error", "error", err)
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped gracefully")
}
