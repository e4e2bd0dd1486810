package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tradedash/internal/amqp"
	"tradedash/internal/backend"
	"tradedash/internal/cache"
	"tradedash/internal/cli"
	"tradedash/internal/dashboard"
	apphttp "tradedash/internal/http"
	"tradedash/internal/live"
	applog "tradedash/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateSource(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to create dataset source", "error", err, "backend", backendConfig.Type)
		os.Exit(1)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Warn("Failed to close dataset source", "error", err)
		}
	}()

	session, err := dashboard.NewSession(ctx, result.Source, dashboard.Options{
		TopN:   cfg.TopN,
		Logger: logger,
	})
	if err != nil {
		logger.Error("Failed to load dataset", "error", err, "source", result.Source.Name())
		os.Exit(1)
	}

	hub := live.NewHub(logger)
	go hub.Run(ctx)
	session.Subscribe(hub)

	charts := cache.NewLRUCache[[]byte](cfg.ChartCacheSize, cfg.ChartCacheTTL)
	cacheManager := cache.NewManager(logger.Logger.With(applog.FieldComponent, applog.ComponentCache))
	cacheManager.Register(charts)
	cacheManager.StartCleanup(cfg.ChartCacheTTL)
	defer cacheManager.Stop()

	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, reloads only via /admin/reload", "error", err)
		} else {
			defer amqpClient.Close()
			go consumeReloads(ctx, amqpClient, session, logger)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Session: session,
		Logger:  logger,
		Charts:  charts,
		Live:    hub,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("Server starting",
		"port", cfg.Port,
		"backend", backendConfig.Type,
		"source", result.Source.Name(),
		"rows", session.Snapshot().Table.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// consumeReloads swaps the dashboard snapshot whenever the importer
// announces a new one. A failed reload keeps the previous snapshot and is
// acknowledged; the next import message retries.
func consumeReloads(ctx context.Context, client *amqp.Client, session *dashboard.Session, logger *applog.Logger) {
	err := client.ConsumeDatasetReload(ctx, func(ctx context.Context, msg *amqp.DatasetReloadMessage) error {
		snap, err := session.Reload(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Dataset reload failed",
				"error", err,
				"message_id", msg.ID.String(),
				"source", msg.Source)
			return nil
		}
		logger.InfoContext(ctx, "Dataset reloaded from import",
			"message_id", msg.ID.String(),
			"version", snap.Version,
			"rows", snap.Table.Len())
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("AMQP consumer stopped", "error", err)
	}
}
