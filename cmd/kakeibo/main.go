package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/auth"
	"kakeibo/internal/cache"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	apphttp "kakeibo/internal/http"
	applog "kakeibo/internal/log"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadConfig(logger, (*config.Config).Validate)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	// Change notifications are optional; the worker's periodic export
	// catches up on anything missed while the broker is unreachable.
	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger change notifications disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	janitor := cache.NewJanitor()
	janitor.Start(time.Minute)
	defer janitor.Stop()

	clientIP, err := security.NewClientIP(cfg.TrustedProxies...)
	if err != nil {
		logger.Error("Invalid TRUSTED_PROXIES", applog.FieldError, err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:  services.NewAccountService(store, logger),
		Ledger:    services.NewLedgerService(store, publisher, logger),
		Reference: services.NewReferenceService(store, cfg.ReferenceCacheTTL, janitor, logger),
		Codec:     auth.NewCodec([]byte(cfg.SessionSecret), cfg.SessionTTL, cfg.CookieSecure),
		DB:        store,
		ClientIP:  clientIP,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting kakeibo server", "port", cfg.Port, "amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
