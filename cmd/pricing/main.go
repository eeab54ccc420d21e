package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load(os.Getenv("PRICING_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricing-service: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New("pricing-service", cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricing-service: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	replica, err := cfg.Kafka.Replica()
	if err != nil {
		logger.Fatal("Failed to determine replica identity", logging.Fields{"error": err})
	}
	logger.Info("Starting pricing-service", logging.Fields{
		"port":           cfg.Server.Port,
		"catalog_source": cfg.Catalog.Source,
		"session_store":  cfg.Session.Store,
		"replica":        replica,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	seed, err := cfg.Catalog.Order()
	if err != nil {
		logger.Fatal("Invalid catalog configuration", logging.Fields{"error": err})
	}

	source, db, err := initCatalogSource(ctx, cfg, seed, logger)
	if err != nil {
		logger.Fatal("Failed to initialise catalog source", logging.Fields{"error": err})
	}
	if db != nil {
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.Features.EnableCatalogCache || cfg.Session.Store == config.SessionStoreRedis {
		redisClient, err = initRedis(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", logging.Fields{"error": err})
		}
		defer redisClient.Close()
	}

	var catalogCache repository.CatalogCache
	if cfg.Features.EnableCatalogCache {
		catalogCache = repository.NewRedisCatalogCache(redisClient, cfg.Redis.TTL, logger)
	}

	var sessionStore repository.SessionStore
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		sessionStore = repository.NewRedisSessionStore(redisClient, cfg.Session.TTL, logger)
	default:
		sessionStore = repository.NewMemorySessionStore(cfg.Session.TTL)
	}

	var publisher events.Publisher
	if cfg.Features.EnableCatalogEvents {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, replica, m, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	catalogService := service.NewCatalogService(source, catalogCache, publisher, m, cfg, logger)
	sessionService := service.NewSessionService(sessionStore, catalogService, m, logger)

	h := handlers.NewHandlers(sessionService, catalogService, m, cfg, logger)

	srv := server.New(h, cfg, m, logger)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":             cfg.Server.Port,
			"enable_admin_api": cfg.Features.EnableAdminAPI,
			"enable_cache":     cfg.Features.EnableCatalogCache,
			"enable_events":    cfg.Features.EnableCatalogEvents,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err})
		}
	}()

	var consumer *events.KafkaConsumer
	if cfg.Features.EnableCatalogEvents {
		consumer = events.NewKafkaConsumer(cfg.Kafka, replica, catalogService, m, logger)
		go func() {
			if err := consumer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("Event consumer failed", logging.Fields{"error": err})
			}
		}()
	}

	<-ctx.Done()

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err})
	}

	logger.Info("Server exited")
}

func initCatalogSource(ctx context.Context, cfg *config.Config, seed pricing.Order, logger *logging.Logger) (repository.CatalogSource, *sql.DB, error) {
	if cfg.Catalog.Source != config.CatalogSourcePostgres {
		return repository.NewStaticCatalogRepository(seed), nil, nil
	}

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewPostgresCatalogRepository(db, logger)
	if cfg.Features.AutoMigrate {
		if err := repo.EnsureSchema(ctx, seed); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return repo, db, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("Redis connected", logging.Fields{"addr": cfg.Redis.Addr()})
	return client, nil
}
