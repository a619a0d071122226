// Command server runs the credentia screening API: HTTP surface, domain
// event worker and the Kafka outbox relay, all under one lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"credentia/internal/alert"
	alertstore "credentia/internal/alert/store"
	"credentia/internal/document"
	documentmetrics "credentia/internal/document/metrics"
	docstore "credentia/internal/document/store"
	"credentia/internal/event"
	eventmemory "credentia/internal/event/store/memory"
	eventpostgres "credentia/internal/event/store/postgres"
	httpapi "credentia/internal/http"
	jwttoken "credentia/internal/jwt_token"
	"credentia/internal/platform/config"
	"credentia/internal/platform/httpserver"
	"credentia/internal/platform/kafka"
	"credentia/internal/platform/logger"
	platformmetrics "credentia/internal/platform/metrics"
	platformpostgres "credentia/internal/platform/postgres"
	platformredis "credentia/internal/platform/redis"
	profstore "credentia/internal/professional/store"
	"credentia/internal/refdata"
	"credentia/internal/screening"
	screeninghandler "credentia/internal/screening/handler"
	screeningmetrics "credentia/internal/screening/metrics"
	screeningstore "credentia/internal/screening/store"
	"credentia/internal/version"
	versionhandler "credentia/internal/version/handler"
	versionmetrics "credentia/internal/version/metrics"
	versionstore "credentia/internal/version/store"
	"credentia/pkg/platform/tx"
)

const (
	jwtIssuer   = "credentia-identity"
	jwtAudience = "credentia-api"

	eventInboxCapacity = 256
	relayInterval      = 2 * time.Second
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpapi.HealthChecker{}

	// Stores: Postgres when a DSN is configured, in-memory otherwise so the
	// service still boots for local development.
	var (
		db         *sql.DB
		processes  screeningstore.Store
		documents  docstore.Store
		alerts     alertstore.Store
		versions   versionstore.Store
		records    profstore.Store
		reference  refdata.Store
		eventStore event.Store
		runner     tx.Runner
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = platformpostgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := platformpostgres.Migrate(ctx, db); err != nil {
			log.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		processes = screeningstore.NewPostgresStore(db)
		documents = docstore.NewPostgresStore(db)
		alerts = alertstore.NewPostgresStore(db)
		versions = versionstore.NewPostgresStore(db)
		records = profstore.NewPostgresStore(db)
		reference = refdata.NewPostgresStore(db)
		eventStore = eventpostgres.New(db)
		runner = tx.NewSQLRunner(db)
		checks["postgres"] = httpapi.HealthFunc(db.PingContext)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		processes = screeningstore.NewMemoryStore()
		documents = docstore.NewMemoryStore()
		alerts = alertstore.NewMemoryStore()
		versions = versionstore.NewMemoryStore()
		memRecords := profstore.NewMemoryStore()
		records = memRecords
		reference = refdata.NewMemoryStore()
		eventStore = eventmemory.New()
		runner = tx.NopRunner{}
	}

	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		reference = refdata.NewCachedStore(reference, redisClient, cfg.RefdataCacheTTL, log)
		checks["redis"] = httpapi.HealthFunc(redisClient.Health)
	}

	publisher := event.NewChannelPublisher(eventInboxCapacity, log)
	worker := event.NewWorker(eventStore, publisher.Inbox(), log)

	versionService := version.NewService(versions, records,
		version.WithLogger(log),
		version.WithMetrics(versionmetrics.New()),
		version.WithEventPublisher(publisher),
		version.WithRunner(runner),
	)
	documentService := document.NewService(documents,
		document.WithLogger(log),
		document.WithEventPublisher(publisher),
		document.WithMetrics(documentmetrics.New()),
	)
	alertService := alert.NewService(alerts,
		alert.WithLogger(log),
		alert.WithEventPublisher(publisher),
	)
	screeningService := screening.NewService(
		processes, documentService, alertService, versionService, reference, records,
		screening.WithLogger(log),
		screening.WithMetrics(screeningmetrics.New()),
		screening.WithEventPublisher(publisher),
		screening.WithRunner(runner),
	)

	validator := jwttoken.NewJWTService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)
	router := httpapi.New(httpapi.Deps{
		Logger:    log,
		Metrics:   platformmetrics.New(),
		Validator: validator,
		Screening: screeninghandler.New(screeningService, documentService, log),
		Versions:  versionhandler.New(versionService, log),
		Checks:    checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(gctx)
	})

	// The relay needs both the outbox table and a broker to ship to. Without
	// brokers events stay queryable in the outbox.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		relay := event.NewRelay(eventpostgres.New(db), producer, log, relayInterval)
		group.Go(func() error {
			relay.Run(gctx)
			return nil
		})
	}

	group.Go(func() error {
		log.Info("starting credentia server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
