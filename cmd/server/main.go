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

	"bazaar-service/config"
	"bazaar-service/internal/api"
	"bazaar-service/internal/broker"
	"bazaar-service/internal/redisclient"
	"bazaar-service/internal/service"
	"bazaar-service/internal/store"
	"bazaar-service/internal/util"
	"bazaar-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting bazaar service")

	tp, err := util.InitTracer("bazaar-service", cfg.Observ.JaegerEndpoint)
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

	db, err := store.NewStore(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	caps := db.Capabilities()
	log.Printf("Database connected: currency_table=%v, parcel_augments=%v, parcel_slot_id=%v, alt_currency_table=%v",
		caps.HasCurrencyTable, caps.HasParcelAugments, caps.HasParcelSlotID, caps.HasAltCurrencyTable)

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMarketplace)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	listingService := service.NewListingService(db, redisClient, eventPublisher, cfg.Marketplace)
	settlementService := service.NewSettlementService(db, redisClient, eventPublisher, listingService, cfg.Marketplace)
	earningsService := service.NewEarningsService(db, eventPublisher, listingService, cfg.Marketplace)
	buyOrderService := service.NewBuyOrderService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	brokerPayConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBrokerPay, cfg.Kafka.ConsumerGroup)
	brokerPayWorker := worker.NewBrokerPaymentWorker(brokerPayConsumer, settlementService)
	go func() {
		if err := brokerPayWorker.Start(workerCtx); err != nil {
			log.Printf("Broker payment worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(listingService, settlementService, earningsService, buyOrderService, db, cfg.Marketplace.GMStatusThreshold)
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

	workerCancel()
	brokerPayWorker.Stop()

	log.Println("Server exited")
}
