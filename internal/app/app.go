// Package app wires the services and handlers on top of a storage backend.
package app

import (
	"context"

	"github.com/01moynul/storefront-api/internal/auth"
	"github.com/01moynul/storefront-api/internal/cart"
	"github.com/01moynul/storefront-api/internal/catalog"
	"github.com/01moynul/storefront-api/internal/config"
	"github.com/01moynul/storefront-api/internal/handlers"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/order"
	"github.com/01moynul/storefront-api/internal/revalidate"
	"github.com/01moynul/storefront-api/internal/routes"
	"github.com/01moynul/storefront-api/internal/store"
	"github.com/01moynul/storefront-api/internal/store/memory"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Backend is everything the services need from storage. Both the MySQL
// store and the in-memory store implement it.
type Backend interface {
	catalog.Store
	cart.Repository
	order.Store
	auth.CodeStore
	auth.AccountStore
	auth.AdminStore

	UserByID(ctx context.Context, userID int64) (*models.User, error)
	DashboardStats(ctx context.Context, lowStock int) (*models.DashboardStats, error)
}

var (
	_ Backend = (*store.Store)(nil)
	_ Backend = (*memory.Store)(nil)
)

// Deps are the collaborators that differ between production and tests.
type Deps struct {
	Backend Backend
	Gateway order.Gateway
	Sender  auth.Sender
	Log     *zap.Logger
}

// App is the assembled API.
type App struct {
	Handlers *handlers.Handlers
	Tokens   *auth.TokenManager
	Admins   *auth.AdminService
	Router   *gin.Engine
}

func New(cfg config.Config, deps Deps) *App {
	log := deps.Log
	store := deps.Backend

	reval := revalidate.New(cfg.RevalidateURL, cfg.RevalidateSecret, log)
	catalogSvc := catalog.NewService(store, catalog.NewEngine(store, log), reval, log)
	carts := cart.NewService(store, log)
	orders := order.NewService(store, carts, catalogSvc, log)
	payments := order.NewPaymentService(store, deps.Gateway, order.PaymentConfig{
		CallbackURL: cfg.Zarinpal.CallbackURL,
		Description: cfg.Zarinpal.Description,
	}, log)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	otp := auth.NewOTPService(store, store, deps.Sender, tokens, auth.OTPConfig{
		TTL:          cfg.OTPTTL,
		Window:       cfg.OTPWindow,
		MaxPerWindow: cfg.OTPMaxPerWindow,
		MaxAttempts:  cfg.OTPMaxAttempts,
	}, log)
	admins := auth.NewAdminService(store, log)

	h := &handlers.Handlers{
		Catalog:  catalogSvc,
		Carts:    carts,
		Orders:   orders,
		Payments: payments,
		OTP:      otp,
		Admins:   admins,
		Accounts: store,
		Users:    store,
		Stats:    store,
		Log:      log,
		Config:   cfg,
	}

	return &App{
		Handlers: h,
		Tokens:   tokens,
		Admins:   admins,
		Router:   routes.SetupRouter(h, tokens),
	}
}
