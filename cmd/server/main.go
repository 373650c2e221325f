// The attest server reconciles provider compliance findings with human
// overrides and serves the fulfillment API.
//
// Infrastructure backends are optional. With no configuration the engine
// runs self-contained on in-memory stores; Postgres, Redis and Kafka are
// enabled through their environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	apphandler "attest/internal/application/handler"
	appmetrics "attest/internal/application/metrics"
	applicationservice "attest/internal/application/service"
	applicationstore "attest/internal/application/store"
	cataloghandler "attest/internal/catalog/handler"
	"attest/internal/catalog/seed"
	catalogservice "attest/internal/catalog/service"
	catalogstore "attest/internal/catalog/store"
	fulfillmenthandler "attest/internal/fulfillment/handler"
	fulfillmentmetrics "attest/internal/fulfillment/metrics"
	fulfillmentservice "attest/internal/fulfillment/service"
	fulfillmentstore "attest/internal/fulfillment/store"
	"attest/internal/platform/config"
	"attest/internal/platform/httpserver"
	kafkaconsumer "attest/internal/platform/kafka/consumer"
	"attest/internal/platform/logger"
	"attest/internal/platform/metrics"
	"attest/internal/platform/postgres"
	platformredis "attest/internal/platform/redis"
	"attest/internal/scoring"
	scoringhandler "attest/internal/scoring/handler"
	synchandler "attest/internal/sync/handler"
	"attest/internal/sync/ingest"
	"attest/internal/sync/lease"
	syncmetrics "attest/internal/sync/metrics"
	syncmodels "attest/internal/sync/models"
	syncservice "attest/internal/sync/service"
	syncstore "attest/internal/sync/store"
	httptransport "attest/internal/transport/http"
	audit "attest/pkg/platform/audit"
	auditconsumer "attest/pkg/platform/audit/consumer"
	auditkafka "attest/pkg/platform/audit/kafka"
	"attest/pkg/platform/audit/outbox"
	"attest/pkg/platform/audit/publisher"
	"attest/pkg/platform/audit/publishers/ops"
	auditmemory "attest/pkg/platform/audit/store/memory"
	auditpostgres "attest/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("engine exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if cfg.Postgres.MigrateOnStart {
			if err := postgres.Migrate(ctx, db, log); err != nil {
				return err
			}
		}
		log.Info("postgres connected")
	} else {
		log.Info("no postgres DSN configured, using in-memory stores")
	}

	var (
		appStore         applicationservice.ApplicationStore
		catalogStore     catalogservice.Store
		fulfillmentStore fulfillmentservice.Store
		metadataStore    syncservice.MetadataStore
		auditStore       audit.Store
		pgAudit          *auditpostgres.Store
	)
	if db != nil {
		appStore = applicationstore.NewPostgres(db)
		catalogStore = catalogstore.NewPostgres(db)
		fulfillmentStore = fulfillmentstore.NewPostgres(db)
		metadataStore = syncstore.NewPostgres(db)
		pgAudit = auditpostgres.New(db)
		auditStore = pgAudit
	} else {
		appStore = applicationstore.NewInMemory()
		catalogStore = catalogstore.NewInMemory()
		fulfillmentStore = fulfillmentstore.NewInMemory()
		metadataStore = syncstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
	}

	var syncLease syncservice.Lease = lease.NewInMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		syncLease = lease.NewRedis(redisClient.Client)
		log.Info("redis sync lease enabled")
	}

	basePublisher := publisher.NewPublisher(auditStore)
	defer basePublisher.Close()

	sampler := ops.NewSampler(1)
	sampler.SetRate(string(audit.EventFindingApplied), cfg.Audit.FindingSampleRate)
	auditPublisher := ops.NewPublisher(basePublisher,
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics()),
		ops.WithSampler(sampler))

	// The Kafka pipeline rides on the Postgres outbox: the relay drains
	// committed events to the category topics and the materializer builds
	// the queryable audit_events table back from them.
	if len(cfg.Kafka.Brokers) > 0 && pgAudit != nil {
		producer, err := auditkafka.NewProducer(cfg.Kafka.Brokers,
			auditkafka.WithTopicPrefix(cfg.Kafka.TopicPrefix))
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopics(ctx, cfg.Kafka.TopicPartitions, cfg.Kafka.ReplicationFactor); err != nil {
			return err
		}

		relay := outbox.NewRelay(pgAudit, producer, log,
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithBatchSize(cfg.Kafka.RelayBatchSize))
		go relay.Run(ctx)

		auditRoutes := auditconsumer.NewRouter(log, nil)
		auditRoutes.Register(producer.Topic(audit.CategoryCompliance), auditconsumer.NewComplianceHandler(pgAudit, log))
		auditRoutes.Register(producer.Topic(audit.CategorySecurity), auditconsumer.NewSecurityHandler(pgAudit, log))
		auditRoutes.Register(producer.Topic(audit.CategoryOperations), auditconsumer.NewOpsHandler(pgAudit, log))

		materializer, err := kafkaconsumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup,
			producer.Topics(), auditRoutes, log)
		if err != nil {
			return err
		}
		defer materializer.Close()
		go func() {
			if err := materializer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit materializer stopped", slog.String("error", err.Error()))
			}
		}()
	} else if len(cfg.Kafka.Brokers) > 0 {
		log.Warn("kafka brokers configured without postgres, audit relay disabled")
	}

	catalogSvc := catalogservice.New(catalogStore, catalogservice.WithLogger(log))
	if cfg.Catalog.SeedPath != "" {
		sd, err := seed.Load(cfg.Catalog.SeedPath)
		if err != nil {
			return err
		}
		if err := catalogSvc.ImportSeed(ctx, sd); err != nil {
			return err
		}
	}

	var rules *ingest.Ruleset
	if cfg.Sync.RulesetPath != "" {
		rules, err = ingest.LoadRuleset(cfg.Sync.RulesetPath)
		if err != nil {
			return err
		}
		log.Info("ingest ruleset loaded", slog.Int("providers", len(rules.Providers)))
	}

	fulfillmentSvc := fulfillmentservice.New(fulfillmentStore, appStore,
		fulfillmentservice.WithLogger(log),
		fulfillmentservice.WithAuditPublisher(auditPublisher),
		fulfillmentservice.WithMetrics(fulfillmentmetrics.New()))

	syncOpts := []syncservice.Option{
		syncservice.WithLogger(log),
		syncservice.WithAuditPublisher(auditPublisher),
		syncservice.WithMetrics(syncmetrics.New()),
		syncservice.WithIngester(ingest.NewAdapter(rules)),
		syncservice.WithLeaseTTL(cfg.Sync.LeaseTTL),
		syncservice.WithApplyWorkers(cfg.Sync.ApplyWorkers),
		syncservice.WithMaxErrors(cfg.Sync.MaxErrors),
	}
	if freq, err := syncmodels.ParseFrequency(cfg.Sync.DefaultFrequency); err == nil {
		syncOpts = append(syncOpts, syncservice.WithDefaultFrequency(freq))
	} else {
		log.Warn("invalid default sync frequency, keeping daily",
			slog.String("value", cfg.Sync.DefaultFrequency))
	}
	syncSvc := syncservice.New(metadataStore, appStore, fulfillmentSvc, syncLease, syncOpts...)

	appSvc := applicationservice.New(appStore, catalogSvc,
		applicationservice.WithLogger(log),
		applicationservice.WithAuditPublisher(auditPublisher),
		applicationservice.WithMetrics(appmetrics.New()),
		applicationservice.WithSyncState(syncSvc),
		applicationservice.WithFulfillmentPurger(fulfillmentSvc))

	scoringSvc := scoring.New(appStore, fulfillmentStore, scoring.WithLogger(log))

	handler := httptransport.NewRouter(log, metrics.New(),
		apphandler.New(appSvc, log),
		synchandler.New(syncSvc, log),
		fulfillmenthandler.New(fulfillmentSvc, log),
		scoringhandler.New(scoringSvc, log),
		cataloghandler.New(catalogSvc, log))

	srv := httpserver.New(cfg.Server, handler)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("engine listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := httpserver.Shutdown(srv, cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
