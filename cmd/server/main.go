package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerQR/config"
	apprepository "github.com/sifan077/PowerQR/internal/app/repository"
	appserver "github.com/sifan077/PowerQR/internal/app/server"
	"github.com/sifan077/PowerQR/internal/app/service"
	"github.com/sifan077/PowerQR/internal/infra/database"
	"github.com/sifan077/PowerQR/internal/infra/logger"
	infraNATS "github.com/sifan077/PowerQR/internal/infra/nats"
	infraPostgres "github.com/sifan077/PowerQR/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/PowerQR/internal/infra/prometheus"
	infraRedis "github.com/sifan077/PowerQR/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet.
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.Init(logger.FromApp(cfg.App))
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.String("postgres_replica_host", cfg.Postgres.ReplicaHost),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.String("base_url", cfg.App.BaseURL),
	)

	gormDB, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := apprepository.AutoMigrate(ctx, gormDB); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	var pool *pgxpool.Pool
	if cfg.Database.Driver == config.DriverPostgres {
		pool, err = infraPostgres.NewAnalyticsPool(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal("Failed to connect analytics pool", zap.Error(err))
		}
		defer pool.Close()
		log.Info("Analytics pool connected", zap.Bool("replica", cfg.Postgres.ReplicaHost != ""))
	}

	var redisClient *goredis.Client
	if cfg.RateLimit.Enabled {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info("Connected to Redis successfully")
		}
	}

	var js nats.JetStreamContext
	if cfg.NATS.Enabled {
		natsConn, jsCtx, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		if err := infraNATS.EnsureVisitStream(jsCtx); err != nil {
			log.Fatal("Failed to prepare visit stream", zap.Error(err))
		}
		js = jsCtx
		log.Info("Connected to NATS successfully", zap.String("url", infraNATS.URL(cfg.NATS)))
	}

	var observer service.Observer
	if !cfg.App.Development() {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := infraPrometheus.NewMetrics(registry)
		if err != nil {
			log.Fatal("Failed to register metrics", zap.Error(err))
		}
		observer = metrics

		promServer := infraPrometheus.NewServer(cfg.Prometheus, registry)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	server, err := appserver.New(ctx, appserver.Dependencies{
		Logger:    log,
		Config:    cfg,
		DB:        gormDB,
		Analytics: pool,
		Redis:     redisClient,
		JetStream: js,
		Observer:  observer,
	})
	if err != nil {
		log.Fatal("Failed to build server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.App.ListenAddr))
		errCh <- server.Listen(cfg.App.ListenAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Graceful shutdown failed", zap.Error(err))
		}
	}
}
