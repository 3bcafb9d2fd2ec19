package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	appamqp "hisab/internal/amqp"
	"hisab/internal/config"
	apphttp "hisab/internal/http"
	"hisab/internal/ledger"
	applog "hisab/internal/log"
	"hisab/internal/metrics"
	"hisab/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: applog.LevelFromEnv(), Component: "hisab"})
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

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := ledger.Open(ctx, kv, collector)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("Ledger opened", "db_path", cfg.SQLiteDBPath)

	// Cross-process sync over AMQP is optional; without it this instance
	// only sees its own writes.
	instanceID := uuid.NewString()
	var bus *appamqp.Client
	if cfg.AMQPURL != "" {
		bus, err = appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without cross-process sync", "error", err)
		} else {
			defer bus.Close()
			logger.Info("Initialized AMQP change bus", "exchange", cfg.AMQPExchange, "instance", instanceID)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, collector, metrics.Handler(registry))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting hisab server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if bus != nil {
		// Broadcast this instance's committed mutations.
		g.Go(func() error {
			changes, cancel := store.Subscribe()
			defer cancel()
			for {
				select {
				case <-gctx.Done():
					return nil
				case c, ok := <-changes:
					if !ok {
						return nil
					}
					if c.Op == "reload" {
						continue // never re-announce what we just consumed
					}
					msg := appamqp.NewLedgerChangeMessage(instanceID, c.Namespace, c.Op, c.EntityID)
					if err := bus.PublishLedgerChange(gctx, msg); err != nil {
						logger.Warn("Failed to publish ledger change", "error", err)
					}
				}
			}
		})

		// Reload when another instance announces a change.
		g.Go(func() error {
			err := bus.ConsumeLedgerChanges(gctx, func(msg *appamqp.LedgerChangeMessage) error {
				if msg.Origin == instanceID {
					return nil
				}
				slog.Info("External ledger change, reloading",
					"origin", msg.Origin, "namespace", msg.Namespace, "op", msg.Op)
				store.Reload(gctx)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
