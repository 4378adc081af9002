package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/config"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/cache"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/cleanup"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/database"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/hashing"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/logger"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/producer"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/repository"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/router"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/token"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Redis cache enabled")
	} else {
		log.Info("Redis cache disabled")
	}

	var smsProducer *producer.SMSProducer
	var orderEvents *producer.OrderEventProducer
	if cfg.Kafka.Enabled {
		smsProducer = producer.NewSMSProducer(cfg.Kafka.Brokers, cfg.Kafka.SMSTopic)
		defer smsProducer.Close()
		orderEvents = producer.NewOrderEventProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderEventsTopic)
		defer orderEvents.Close()
		log.Info("Kafka producers enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		log.Info("Kafka producers disabled")
	}

	hasher := hashing.NewBcrypt(0)
	tokens := token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)

	// nil-интерфейсы должны оставаться nil, а не типизированными nil-значениями
	var cacheClient service.CacheClient
	if redisClient != nil {
		cacheClient = redisClient
	}
	var notifier service.SMSNotifier
	if smsProducer != nil {
		notifier = smsProducer
	}
	var eventBus service.EventBus
	if orderEvents != nil {
		eventBus = orderEvents
	}

	authSvc := service.NewAuthService(
		repos, hasher, tokens,
		cacheClient, notifier,
		cfg.JWT.AccessExp, cfg.JWT.RefreshExp,
		log,
	)
	productSvc := service.NewProductService(repos, log)
	orderSvc := service.NewOrderService(repos, eventBus, log)

	cleanupSvc := cleanup.NewCleanupService(db, log)
	scheduler := cleanup.NewScheduler(cleanupSvc, log)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	scheduler.Start(cleanupCtx)

	r := router.Router(router.Deps{
		Auth:     authSvc,
		Orders:   orderSvc,
		Products: productSvc,
		Tokens:   tokens,
		Log:      log,
	})

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
}
