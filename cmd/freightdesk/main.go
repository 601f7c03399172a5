package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freightdesk/freightdesk/internal/app"
	"github.com/freightdesk/freightdesk/internal/backend"
	"github.com/freightdesk/freightdesk/internal/invoicing"
	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/platform/cache"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var snapshots invoicing.SnapshotStore
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The cache only skips backend round trips; run without it.
		logger.Warn("redis unavailable, snapshot caching disabled", slog.Any("error", err))
	} else {
		snapshots = invoicing.NewRedisSnapshots(redisClient, cfg.SnapshotTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendToken, cfg.BackendTimeout)
	if err := client.Ping(ctx); err != nil {
		logger.Warn("backend ping", slog.Any("error", err))
	}

	notifier := &invoicing.Notifier{}
	notifier.Subscribe(func(change invoicing.InvoiceChange) {
		logger.Info("invoice change observed",
			slog.String("kind", string(change.Kind)),
			slog.Int64("invoice_id", change.InvoiceID),
			slog.String("reason", string(change.Reason)))
	})

	invoiceService := invoicing.NewService(logger, client, snapshots, notifier)
	invoiceHandler := invoicing.NewHandler(logger, invoiceService)
	ordersHandler := orders.NewHandler(logger, orders.NewDeriver(client))

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		InvoiceHandler: invoiceHandler,
		OrdersHandler:  ordersHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
