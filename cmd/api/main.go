package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/api/routes"
	"github.com/nairamart/nairamart-backend/internal/buyers"
	"github.com/nairamart/nairamart-backend/internal/cart"
	checkoutsvc "github.com/nairamart/nairamart-backend/internal/checkout"
	"github.com/nairamart/nairamart-backend/internal/orders"
	paymentsvc "github.com/nairamart/nairamart-backend/internal/payments"
	"github.com/nairamart/nairamart-backend/internal/products"
	paystackwebhook "github.com/nairamart/nairamart-backend/internal/webhooks/paystack"
	"github.com/nairamart/nairamart-backend/pkg/config"
	"github.com/nairamart/nairamart-backend/pkg/db"
	"github.com/nairamart/nairamart-backend/pkg/logger"
	"github.com/nairamart/nairamart-backend/pkg/metrics"
	"github.com/nairamart/nairamart-backend/pkg/migrate"
	"github.com/nairamart/nairamart-backend/pkg/paystack"
	"github.com/nairamart/nairamart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap paystack client", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	buyerRepo := buyers.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	txnRepo := paymentsvc.NewRepository(dbClient.DB())

	cartService, err := cart.NewService(cartRepo, dbClient, buyerRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentService, err := paymentsvc.NewService(
		func(tx *gorm.DB) paymentsvc.TransactionStore { return txnRepo.WithTx(tx) },
		func(tx *gorm.DB) paymentsvc.OrderWriter { return orderRepo.WithTx(tx) },
		paystackClient,
		dbClient,
		logg,
		paymentMetrics,
		cfg.Paystack.RequestTimeout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		func(tx *gorm.DB) checkoutsvc.CartStore { return cartRepo.WithTx(tx) },
		func(tx *gorm.DB) checkoutsvc.OrderStore { return orderRepo.WithTx(tx) },
		func(tx *gorm.DB) checkoutsvc.PendingChecker { return txnRepo.WithTx(tx) },
		paymentService,
		buyerRepo,
		dbClient,
		logg,
		paymentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Transactions:      func(tx *gorm.DB) paystackwebhook.TransactionStore { return txnRepo.WithTx(tx) },
		Orders:            func(tx *gorm.DB) paystackwebhook.OrderStore { return orderRepo.WithTx(tx) },
		Carts:             func(tx *gorm.DB) paystackwebhook.CartStore { return cartRepo.WithTx(tx) },
		Gateway:           paystackClient,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			paystackClient,
			cartService,
			checkoutService,
			orderService,
			productService,
			webhookService,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
