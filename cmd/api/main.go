package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-marketplace-api/internal/config"
	"github.com/flicky/go-marketplace-api/internal/handler"
	"github.com/flicky/go-marketplace-api/internal/middleware"
	"github.com/flicky/go-marketplace-api/internal/repository"
	"github.com/flicky/go-marketplace-api/internal/service"
	"github.com/flicky/go-marketplace-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	storeRepo := repository.NewStoreRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	voucherRepo := repository.NewVoucherRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	walletRepo := repository.NewWalletRepository(dbPool)

	publisher := worker.NewPublisher(amqpCh)

	// Services
	authSvc := service.NewAuthService(userRepo, storeRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(productRepo, storeRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	voucherSvc := service.NewVoucherService(voucherRepo, storeRepo)
	walletSvc := service.NewWalletService(walletRepo)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, productRepo, userRepo, walletRepo, voucherSvc, publisher, log)
	settlementSvc := service.NewSettlementService(orderRepo, storeRepo, walletRepo,
		cfg.Platform.FeePercent, cfg.Platform.TreasuryUserID, log)
	paymentSvc := service.NewPaymentService(orderRepo, publisher, log)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc)
	cartH := handler.NewCartHandler(cartSvc)
	voucherH := handler.NewVoucherHandler(voucherSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	walletH := handler.NewWalletHandler(walletSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Workers
	settlementWorker := worker.NewSettlementWorker(amqpCh, settlementSvc, redisClient, log)
	orderEventWorker := worker.NewOrderEventWorker(amqpCh, orderRepo, userRepo,
		&service.LogNotificationSink{Log: log}, &service.LogEmailSink{Log: log}, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.GetByID)

		sellerProducts := products.Group("", middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RequireRoles("seller"))
		sellerProducts.POST("", productH.Create)
		sellerProducts.PUT("/:id", productH.Update)
		sellerProducts.DELETE("/:id", productH.Delete)

		cart := v1.Group("/cart", middleware.AuthMiddleware(cfg.JWT.Secret))
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)

		vouchers := v1.Group("/vouchers", middleware.AuthMiddleware(cfg.JWT.Secret))
		vouchers.GET("/available", voucherH.Preview)

		sellerVouchers := vouchers.Group("", middleware.RequireRoles("seller"))
		sellerVouchers.POST("", voucherH.CreateStoreVoucher)
		sellerVouchers.PUT("/:code", voucherH.UpdateStoreVoucher)

		orders := v1.Group("/orders", middleware.AuthMiddleware(cfg.JWT.Secret))
		orders.POST("", orderH.CreateOrder)
		orders.GET("", orderH.ListOrders)
		orders.GET("/:code", orderH.GetOrder)
		orders.PUT("/:code/status", orderH.UpdateStatus)
		orders.POST("/:code/received", orderH.ConfirmReceived)
		orders.POST("/:code/refund", middleware.RequireRoles("admin"), paymentH.RequestRefund)

		wallet := v1.Group("/wallet", middleware.AuthMiddleware(cfg.JWT.Secret))
		wallet.GET("", walletH.Get)
		wallet.POST("/deposit", walletH.Deposit)
		wallet.POST("/withdraw", walletH.Withdraw)

		payments := v1.Group("/payments")
		payments.POST("/callback", paymentH.Callback)
	}

	if err := settlementWorker.Start(ctx); err != nil {
		log.Error("start settlement worker", "error", err)
		os.Exit(1)
	}
	if err := orderEventWorker.Start(ctx); err != nil {
		log.Error("start order event worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	settlementWorker.Stop()
	orderEventWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
