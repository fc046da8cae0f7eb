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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/debatearchive/catalog/internal/cache"
	"github.com/debatearchive/catalog/internal/config"
	"github.com/debatearchive/catalog/internal/database"
	"github.com/debatearchive/catalog/internal/document/handler"
	"github.com/debatearchive/catalog/internal/document/service"
	"github.com/debatearchive/catalog/internal/events"
	"github.com/debatearchive/catalog/internal/index"
	"github.com/debatearchive/catalog/internal/sequence"
	"github.com/debatearchive/catalog/internal/storage"
	"github.com/debatearchive/catalog/pkg/logger"
	"github.com/debatearchive/catalog/pkg/metrics"
	"github.com/debatearchive/catalog/pkg/middleware"
	"github.com/debatearchive/catalog/pkg/resilience"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL is read again from config below; this covers config errors
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	logger.Infof("config loaded: index=%s sequence=%s redis=%v kafka=%v minio=%v",
		cfg.Index.Backend, cfg.Sequence.Backend, cfg.Redis.Host != "", len(cfg.Kafka.Brokers) > 0, cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, closeIndex, err := index.Open(cfg.Index)
	if err != nil {
		logger.Fatalf("failed to open index: %v", err)
	}
	defer closeIndex()

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
		} else {
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
		defer func() { _ = rdb.Close() }()
	}

	ids, closeIDs, err := newAllocator(ctx, cfg, idx, rdb)
	if err != nil {
		logger.Fatalf("failed to set up id allocation: %v", err)
	}
	defer closeIDs()

	var opts []service.Option
	if cfg.SearchCache.Enabled && rdb != nil {
		opts = append(opts, service.WithSearchCache(cache.New(rdb, cfg.SearchCache.TTL)))
		logger.Infof("search cache enabled (ttl=%s)", cfg.SearchCache.TTL)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
		opts = append(opts, service.WithPublisher(producer))
		logger.Infof("publishing change events to %s", cfg.Kafka.Topic)
	}
	svc := service.New(idx, ids, opts...)

	err = resilience.Retry(ctx, "index bootstrap", cfg.Index.ConnectAttempts, cfg.Index.ConnectDelay, svc.Bootstrap)
	if err != nil {
		// keep serving; requests fail until the index comes back and /ready says so
		logger.Errorf("index not available, starting degraded: %v", err)
	}

	var exporter handler.Exporter
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("snapshot export disabled: %v", err)
		} else {
			exporter = storage.NewSnapshotExporter(store, cfg.Index.Name)
		}
	}

	var verifier middleware.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier, err = middleware.NewHMACVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			logger.Fatalf("invalid auth config: %v", err)
		}
	} else {
		logger.Warnf("AUTH_JWT_SECRET not set: write routes are unauthenticated")
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := newRouter(cfg, routerDeps{svc: svc, exporter: exporter, verifier: verifier, redis: rdb})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting catalog service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func newAllocator(ctx context.Context, cfg *config.Config, idx index.Backend, rdb *redis.Client) (sequence.Allocator, func(), error) {
	switch cfg.Sequence.Backend {
	case config.SequenceBackendRedis:
		return sequence.NewRedisAllocator(rdb, cfg.Sequence.Key, idx), func() {}, nil
	case config.SequenceBackendMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, nil, err
		}
		col := database.Counters(client, cfg.MongoDB.Database)
		return sequence.NewMongoAllocator(col, cfg.Sequence.Key, idx), func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		return sequence.NewIndexAllocator(idx), func() {}, nil
	}
}
