package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dinetrack-ops-service/internal/billing"
	"dinetrack-ops-service/internal/branches"
	"dinetrack-ops-service/internal/catalog"
	"dinetrack-ops-service/internal/config"
	"dinetrack-ops-service/internal/db"
	httpapi "dinetrack-ops-service/internal/http"
	"dinetrack-ops-service/internal/http/handlers"
	"dinetrack-ops-service/internal/logger"
	"dinetrack-ops-service/internal/orders"
	"dinetrack-ops-service/internal/queue"
	"dinetrack-ops-service/internal/reservations"
	"dinetrack-ops-service/internal/storage"
	"dinetrack-ops-service/internal/tables"
	"dinetrack-ops-service/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	var backend storage.Backend
	switch cfg.StorageDriver {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		backend, err = storage.NewPostgres(ctx, pool)
		if err != nil {
			log.Fatal("postgres backend init failed", zap.Error(err))
		}
	case "redis":
		redisBackend, err := storage.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisBackend.Close()
		backend = redisBackend
	default:
		if cfg.Env == "production" {
			log.Fatal("memory storage is not allowed in production; set DATABASE_URL or REDIS_URL")
		}
		log.Warn("using in-memory storage; state is lost on restart")
		backend = storage.NewMemory()
	}

	tableRegistry, err := tables.Open(ctx, backend)
	if err != nil {
		log.Fatal("table registry init failed", zap.Error(err))
	}
	reservationLedger, err := reservations.Open(ctx, backend)
	if err != nil {
		log.Fatal("reservation ledger init failed", zap.Error(err))
	}
	menuCatalog, err := catalog.Open(ctx, backend)
	if err != nil {
		log.Fatal("menu catalog init failed", zap.Error(err))
	}
	orderEngine, err := orders.Open(ctx, backend)
	if err != nil {
		log.Fatal("order engine init failed", zap.Error(err))
	}
	billingAggregator, err := billing.Open(ctx, backend, orderEngine)
	if err != nil {
		log.Fatal("billing aggregator init failed", zap.Error(err))
	}
	branchStore, err := branches.Open(ctx, backend)
	if err != nil {
		log.Fatal("branch store init failed", zap.Error(err))
	}

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := qc.EnsureExchange(queue.ExchangeEvents); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq exchange failed", zap.Error(err))
				}
				log.Warn("rabbitmq exchange failed; continuing without events", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}
		queueClient = qc
		if qc != nil {
			defer qc.Close()
			log.Info("rabbitmq enabled", zap.String("exchange", queue.ExchangeEvents))
		}
	} else {
		log.Info("event publishing disabled (RABBITMQ_URL is empty)")
	}

	var objectStore *storage.ObjectStore
	if cfg.ObjectStoreEndpoint != "" {
		objectStore, err = storage.NewObjectStore(ctx, storage.ObjectStoreConfig{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
		})
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("object store init failed", zap.Error(err))
			}
			log.Warn("object store init failed; continuing without uploads", zap.Error(err))
			objectStore = nil
		}
	}

	wsServer := ws.New(log, cfg)
	h := &handlers.Handler{
		Tables:       tableRegistry,
		Reservations: reservationLedger,
		Catalog:      menuCatalog,
		Orders:       orderEngine,
		Billing:      billingAggregator,
		Branches:     branchStore,
		Objects:      objectStore,
		Queue:        queueClient,
		WS:           wsServer,
		Logger:       log,
		Config:       cfg,
	}

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, cfg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("ops service listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("storage", cfg.StorageDriver),
		)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
