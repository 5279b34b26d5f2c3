package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	patienthandler "medicus/internal/patient/handler"
	patientmetrics "medicus/internal/patient/metrics"
	patientservice "medicus/internal/patient/service"
	patientstore "medicus/internal/patient/store"
	"medicus/internal/platform/config"
	"medicus/internal/platform/httpserver"
	"medicus/internal/platform/logger"
	"medicus/internal/platform/metrics"
	platformredis "medicus/internal/platform/redis"
	httptransport "medicus/internal/transport/http"
	"medicus/pkg/phone"
	"medicus/pkg/platform/audit"
	auditkafka "medicus/pkg/platform/audit/kafka"
	auditmemory "medicus/pkg/platform/audit/store/memory"
	auditpublisher "medicus/pkg/platform/audit/publisher"
)

// main wires dependencies by configuration: PostgreSQL or in-memory
// storage, optional Redis caching, optional Kafka audit shipping.
// Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "medicus: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthChecker{}

	var store patientstore.Store
	serviceOpts := []patientservice.Option{
		patientservice.WithLogger(log),
		patientservice.WithMetrics(patientmetrics.New()),
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if _, err := db.ExecContext(ctx, patientstore.Schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		store = patientstore.NewPostgres(db)
		serviceOpts = append(serviceOpts, patientservice.WithTx(patientstore.NewSQLTx(db)))
		checks["database"] = db.PingContext
		log.Info("using postgresql storage")
	} else {
		store = patientstore.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	if cfg.RedisURL != "" {
		cache, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer cache.Close()
		store = patientstore.NewCachedStore(store, cache.Client,
			patientstore.WithCacheTTL(cfg.CacheTTL),
			patientstore.WithCacheLogger(log),
		)
		checks["redis"] = cache.Health
		log.Info("patient cache enabled", "ttl", cfg.CacheTTL.String())
	}

	var auditStore audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		topic := cfg.KafkaTopic
		if topic == "" {
			topic = auditkafka.DefaultTopic
		}
		sink, err := auditkafka.NewSink(cfg.KafkaBrokers, topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer sink.Close()
		auditStore = sink
		log.Info("audit events shipped to kafka", "topic", topic)
	} else {
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
	}
	publisher := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithLogger(log),
		auditpublisher.WithAsyncBuffer(256),
	)
	defer publisher.Close()
	serviceOpts = append(serviceOpts, patientservice.WithAuditPublisher(publisher))

	if cfg.DefaultRegion != "" {
		serviceOpts = append(serviceOpts, patientservice.WithDefaultRegion(phone.Region(cfg.DefaultRegion)))
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	svc := patientservice.New(store, serviceOpts...)
	handler := patienthandler.New(svc, log, metrics.New(), cfg.AdminToken)
	router := httptransport.NewRouter(handler, checks)
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting medicus", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	})

	return group.Wait()
}
