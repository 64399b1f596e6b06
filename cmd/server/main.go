package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/notify"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"
	"pos-service/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting POS service")

	tp, err := util.InitTracer("pos-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, cfg.Checkout.OrderCodePrefix, cfg.Checkout.OrderCodePad)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	var stockCache *redisclient.Client
	stockCache, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Redis unavailable, serving stock from database only: %v", err)
		stockCache = nil
	} else {
		defer stockCache.Close()
		log.Println("Redis connected")
	}

	var producer *broker.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		log.Println("Kafka producer initialized")
	}

	hub := ws.NewHub()
	fanoutCtx, fanoutCancel := context.WithCancel(context.Background())
	defer fanoutCancel()
	go hub.Run(fanoutCtx)

	var stockObserver notify.StockObserver
	if stockCache != nil {
		stockObserver = stockCache
	}
	notifier := notify.NewNotifier(hub, producer, stockObserver)
	go notifier.Run(fanoutCtx)

	var cache service.StockCache
	if stockCache != nil {
		cache = stockCache
	}
	authService := service.NewAuthService(db, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHrs)*time.Hour)
	productService := service.NewProductService(db, cache)
	checkoutService := service.NewCheckoutService(db, notifier, cfg.Checkout.TxRetries)

	if err := productService.WarmStockCache(context.Background()); err != nil {
		log.Printf("Failed to warm stock cache: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(authService, productService, checkoutService, hub)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	fanoutCancel()
	notifier.Wait()

	log.Println("Server exited")
}
