package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/storefront-api/internal/app"
	"github.com/01moynul/storefront-api/internal/config"
	"github.com/01moynul/storefront-api/internal/database"
	"github.com/01moynul/storefront-api/internal/logger"
	"github.com/01moynul/storefront-api/internal/payment/zarinpal"
	"github.com/01moynul/storefront-api/internal/sms"
	"github.com/01moynul/storefront-api/internal/store"
	"github.com/01moynul/storefront-api/internal/store/memory"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 0. --- Logger and Environment Variables (.env) ---
	zlog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	cfg := config.Load(zlog)
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Storage ---
	var backend app.Backend
	switch cfg.Storage {
	case "memory":
		zlog.Warn("using in-memory storage, data is lost on restart")
		backend = memory.New()
	case "mysql":
		db, err := database.Open(ctx, cfg.DatabaseDSN, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, db, zlog); err != nil {
				zlog.Fatal("failed to migrate database", zap.Error(err))
			}
		}
		backend = store.New(db)
	default:
		zlog.Fatal("unknown STORAGE value", zap.String("storage", cfg.Storage))
	}

	// 2. --- Services ---
	if cfg.Zarinpal.MerchantID == "" {
		zlog.Warn("ZARINPAL_MERCHANT_ID is not set, payments will be rejected by the gateway")
	}
	api := app.New(cfg, app.Deps{
		Backend: backend,
		Gateway: zarinpal.NewClient(cfg.Zarinpal.MerchantID, cfg.Zarinpal.Sandbox),
		Sender:  sms.NewLogSender(zlog),
		Log:     zlog,
	})

	if err := api.Admins.Bootstrap(ctx, cfg.BootstrapAdminPhone); err != nil {
		zlog.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	// 3. --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("starting storefront API server", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
