package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	appamqp "hisab/internal/amqp"
	"hisab/internal/config"
	"hisab/internal/ledger"
	applog "hisab/internal/log"
	"hisab/internal/storage"
	"hisab/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.NewTinted("notifier")
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer kv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := ledger.Open(ctx, kv, nil)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	notifier := worker.NewNotifier(store, nil, cfg.NoticeDebounce)
	g.Go(func() error {
		err := notifier.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// The API server is the writer; its change announcements arrive over
	// AMQP and drive a reload, which wakes the notifier.
	if cfg.AMQPURL != "" {
		bus, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer bus.Close()

		g.Go(func() error {
			err := bus.ConsumeLedgerChanges(gctx, func(msg *appamqp.LedgerChangeMessage) error {
				store.Reload(gctx)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		logger.Info("Listening for ledger changes", "exchange", cfg.AMQPExchange)
	} else {
		logger.Warn("AMQP_URL not set, notifier only sees its own reloads")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Notifier error", "error", err)
		os.Exit(1)
	}
	logger.Info("Notifier stopped gracefully")
}
