package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/internal/app/controller"
	"github.com/ikkim/candle-backend/internal/app/repository"
	"github.com/ikkim/candle-backend/internal/app/service"
	"github.com/ikkim/candle-backend/internal/db"
	"github.com/ikkim/candle-backend/internal/middleware"
	"github.com/ikkim/candle-backend/internal/router"
	"github.com/ikkim/candle-backend/internal/scheduler"
	"github.com/ikkim/candle-backend/internal/storage"
	"github.com/ikkim/candle-backend/internal/websocket"
	"github.com/ikkim/candle-backend/pkg/logger"
	"github.com/ikkim/candle-backend/pkg/mailer"
	"github.com/ikkim/candle-backend/pkg/payment/stripepay"
	cache "github.com/ikkim/candle-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting candle shop backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	gdb, err := db.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations and install the starter option catalog
	if err := db.Migrate(gdb); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional; a failed connection runs the server without it
	cacheClient, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Warn("Continuing without Redis", map[string]interface{}{
			"error": err.Error(),
		})
		cacheClient = nil
	}
	defer func() {
		if err := cacheClient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	mail := mailer.New(cfg.Mail)

	var verifier stripepay.Verifier
	if client := stripepay.NewClient(cfg.Payment); client != nil {
		verifier = client
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := websocket.NewHub(cfg.CORS.AllowedOrigins)
	go hub.Run(ctx)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gdb)
	productRepo := repository.NewProductRepository(gdb)
	optionRepo := repository.NewOptionRepository(gdb)
	cartRepo := repository.NewCartRepository(gdb)
	orderRepo := repository.NewOrderRepository(gdb)

	// Initialize services
	customizationService := service.NewCustomizationService(productRepo, optionRepo, cacheClient)
	productService := service.NewProductService(productRepo, optionRepo, customizationService, cacheClient)
	optionService := service.NewOptionService(optionRepo, cacheClient)
	cartService := service.NewCartService(cartRepo, customizationService, cfg.Cart.Retention)
	checkoutService := service.NewCheckoutService(gdb, cartRepo, verifier, mail, hub)
	orderService := service.NewOrderService(orderRepo, mail, hub)
	authService := service.NewAuthService(userRepo, cartService, cacheClient, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Expired cart purge
	cleanup := scheduler.NewCartCleanupScheduler(cartService, cfg.Cart.CleanupSchedule)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start cart cleanup scheduler", err)
	}
	defer cleanup.Stop()

	// Initialize controllers
	authController := controller.NewAuthController(authService, cfg.Cart)
	productController := controller.NewProductController(productService, customizationService)
	cartController := controller.NewCartController(cartService, cfg.Cart.GuestCookieName)
	checkoutController := controller.NewCheckoutController(checkoutService, cfg.Cart.GuestCookieName)
	orderController := controller.NewOrderController(orderService)
	adminController := controller.NewAdminController(optionService, productService, orderService, hub)
	uploadController := controller.NewUploadController(storage.NewS3Storage(cfg.S3))

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cacheClient)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		checkoutController,
		orderController,
		adminController,
		uploadController,
		authMiddleware,
		mail,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	stop()

	logger.Info("Server stopped successfully")
}
