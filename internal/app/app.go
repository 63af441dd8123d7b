// Package app wires configuration into stores, publishers and services. Both
// binaries build their dependencies through New.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	docservice "semaforo/internal/documents/service"
	"semaforo/internal/platform/config"
	"semaforo/internal/platform/httpserver"
	"semaforo/internal/platform/kafka"
	"semaforo/internal/platform/postgres"
	"semaforo/internal/platform/redis"
	"semaforo/internal/semaforo"
	"semaforo/internal/semaforo/metrics"
	"semaforo/internal/semaforo/ports"
	"semaforo/internal/semaforo/service"
	"semaforo/internal/semaforo/store/cache"
	"semaforo/internal/semaforo/store/document"
	"semaforo/internal/semaforo/store/organization"
	"semaforo/pkg/platform/audit/publisher"
	auditkafka "semaforo/pkg/platform/audit/publishers/kafka"
)

const auditBufferSize = 256

// App holds the process-wide dependencies.
type App struct {
	Config        config.Config
	Logger        *slog.Logger
	DB            *sql.DB
	Redis         *redis.Client
	Kafka         *kgo.Client
	Organizations *organization.PostgresStore
	Documents     *document.PostgresStore
	Semaforo      *service.Service
	DocumentsSvc  *docservice.Service

	audit *publisher.Publisher
}

// New connects to every configured backend and builds the services.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	db, err := postgres.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := postgres.ApplySchema(ctx, db); err != nil {
		a.Close()
		return nil, err
	}

	a.Organizations = organization.NewPostgres(db)
	a.Documents = document.NewPostgres(db)

	var statusCache ports.StatusCache = a.Organizations
	if cfg.Semaforo.CacheBackend == config.CacheBackendRedis {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = client
		statusCache = cache.NewRedisStore(client.Client)
	}

	var auditPublisher ports.AuditPublisher
	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if kafkaClient != nil {
		a.Kafka = kafkaClient
		a.audit = publisher.NewPublisher(
			auditkafka.NewSink(kafkaClient, cfg.Kafka.Topic),
			publisher.WithAsyncBuffer(auditBufferSize),
			publisher.WithLogger(logger),
		)
		auditPublisher = a.audit
	}

	a.Semaforo, err = service.New(a.Documents, a.Organizations, statusCache,
		service.WithLogger(logger),
		service.WithMetrics(metrics.New(reg)),
		service.WithAuditPublisher(auditPublisher),
		service.WithRules(semaforo.Rules{
			CurrentFromYear:    cfg.Semaforo.CurrentFromYear,
			AcceptableFromYear: cfg.Semaforo.AcceptableFromYear,
		}),
		service.WithRetry(cfg.Semaforo.RefreshMaxRetries, cfg.Semaforo.RefreshRetryDelay),
		service.WithConcurrency(cfg.Semaforo.RefreshConcurrency),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.DocumentsSvc, err = docservice.New(a.Documents, a.Organizations, a.Semaforo,
		docservice.WithLogger(logger),
		docservice.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// ReadinessChecks reports the health of every connected backend.
func (a *App) ReadinessChecks() map[string]httpserver.ReadinessCheck {
	checks := map[string]httpserver.ReadinessCheck{
		"postgres": a.DB.PingContext,
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Health
	}
	if a.Kafka != nil {
		checks["kafka"] = a.Kafka.Ping
	}
	return checks
}

// Close drains the audit buffer and releases connections.
func (a *App) Close() error {
	var errs []error
	if a.audit != nil {
		a.audit.Close()
	}
	if a.Kafka != nil {
		a.Kafka.Close()
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
