// Package bootstrap собирает зависимости цикла оптимизации из конфигурации.
// Используется обоими бинарниками: cmd/optimizer и cmd/optimizer-server.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	// Application
	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/application/usecase"

	// Domain
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
	"github.com/dreschagin/infra-optimizer/internal/domain/service"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"

	// Infrastructure
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/awsclient"
	redisCache "github.com/dreschagin/infra-optimizer/internal/infrastructure/cache/redis"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/collector"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/cost"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/executor"
	natsMessaging "github.com/dreschagin/infra-optimizer/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/model/bedrock"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/persistence/file"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/infra-optimizer/internal/infrastructure/storage/s3"

	// Shared
	"github.com/dreschagin/infra-optimizer/pkg/config"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// Options - зависимости, которые задает сам бинарник
type Options struct {
	Progress port.ProgressReporter
	Notifier port.NotificationService
}

// Components - собранный граф зависимостей
type Components struct {
	Cycle  *usecase.RunCycleUseCase
	Latest *usecase.GetLatestCycleUseCase
	Cycles *usecase.ListCyclesUseCase
	Store  *file.ResultStore

	// Checks - проверки готовности для /readyz
	Checks map[string]func(ctx context.Context) error

	closers []namedCloser
	log     *logger.Logger
}

type namedCloser struct {
	name  string
	close func(ctx context.Context) error
}

// Build создает все компоненты. Ошибка возвращается только для обязательных
// зависимостей; опциональные sinks при ошибке инициализации отключаются с предупреждением.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Components, error) {
	c := &Components{
		Checks: make(map[string]func(ctx context.Context) error),
		log:    log,
	}

	// 1. AWS config
	awsCfg, err := awsclient.LoadConfig(ctx, awsclient.Options{
		Region:          cfg.AWS.Region,
		Endpoint:        cfg.AWS.Endpoint,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure aws: %w", err)
	}

	// 2. Telemetry: логи в CloudWatch Logs подключаем первыми, чтобы туда попала вся сборка
	c.setupLogForwarding(ctx, cfg, awsCfg)

	// 3. Обязательные зависимости цикла
	backend := newMetricsBackend(cfg, awsCfg)
	costSource := newCostSource(cfg, awsCfg)

	modelClient, err := bedrock.NewClientFromConfig(awsclient.WithRegion(awsCfg, cfg.Model.Region), cfg.Model.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	log.Info("Model client ready", "model_id", modelClient.ModelID(), "region", cfg.Model.Region)

	store := file.NewResultStore(cfg.Optimizer.OutputPath, log)
	c.Store = store

	// 4. Domain services
	catalog := service.NewMetricCatalog(cfg.Optimizer.Period, map[valueobject.MetricCategory]map[string]string{
		valueobject.EC2CPUUtilization: cfg.Optimizer.EC2Dimensions,
		valueobject.RDSConnections:    cfg.Optimizer.RDSDimensions,
		valueobject.ALBResponseTime:   cfg.Optimizer.ALBDimensions,
	})

	progress := opts.Progress
	if progress == nil {
		progress = port.NopProgressReporter{}
	}

	// 5. Опциональные sinks
	deps := usecase.RunCycleDeps{
		Collector: usecase.NewCollectMetricsUseCase(
			backend,
			costSource,
			catalog,
			service.NewQueryValidator(),
			service.NewMetricSummarizer(),
			log,
		),
		Engine: usecase.NewGenerateRecommendationUseCase(
			modelClient,
			service.NewPromptBuilder(),
			cfg.Model.MaxTokens,
			log,
		),
		Applier: usecase.NewApplyActionsUseCase(
			executor.NewSimulatedExecutor(cfg.Apply.SimulatedDelay, log),
			service.NewApplyPolicy(),
			progress,
			log,
		),
		Store:    store,
		Progress: progress,
		Notifier: opts.Notifier,
	}

	history := c.setupHistory(ctx, cfg, awsCfg)
	deps.History = history

	if cfg.S3.Enabled {
		archive, err := s3storage.NewResultArchiveFromConfig(awsCfg, s3storage.Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
			URLMode:      s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL: cfg.S3.PresignedTTL,
		})
		if err != nil {
			log.Warn("S3 archive disabled", "error", err.Error())
		} else {
			deps.Archive = archive
			log.Info("S3 archive enabled", "bucket", cfg.S3.Bucket)
		}
	}

	var cache port.CycleCache
	if cfg.Redis.Enabled {
		rc, err := redisCache.NewCycleCache(ctx, redisCache.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			TTL:       cfg.Redis.TTL,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			log.Warn("Redis cache disabled", "addr", cfg.Redis.Addr, "error", err.Error())
		} else {
			cache = rc
			deps.Cache = rc
			c.Checks["redis"] = rc.Ping
			c.addCloser("redis", func(context.Context) error { return rc.Close() })
			log.Info("Redis cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	if cfg.NATS.Enabled {
		publisher, err := natsMessaging.NewNATSPublisher(cfg.NATS.URL, log)
		if err != nil {
			log.Warn("NATS events disabled", "url", cfg.NATS.URL, "error", err.Error())
		} else {
			deps.Events = publisher
			c.addCloser("nats", func(context.Context) error { return publisher.Close() })
		}
	}

	if cfg.CloudWatch.MetricsEnabled {
		publisher, err := cloudwatch.NewMetricsPublisherFromConfig(awsCfg, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.Namespace,
			DefaultDimensions: map[string]string{"Service": "infra-optimizer"},
		})
		if err != nil {
			log.Warn("CloudWatch telemetry disabled", "error", err.Error())
		} else {
			deps.Telemetry = publisher
			log.Info("CloudWatch telemetry enabled", "namespace", cfg.CloudWatch.Namespace)
		}
	}

	// 6. Use cases
	c.Cycle = usecase.NewRunCycleUseCase(deps, usecase.RunCycleConfig{
		WindowDuration: cfg.Optimizer.Window,
		ArchivePrefix:  cfg.S3.KeyPrefix,
	}, log)

	c.Latest = usecase.NewGetLatestCycleUseCase(history, store, cache, log)
	c.Cycles = usecase.NewListCyclesUseCase(history, usecase.ListCyclesConfig{}, log)

	log.Info("Optimizer configured",
		"metrics_backend", cfg.Optimizer.MetricsBackend,
		"cost_source", cfg.Cost.Source,
		"history_backend", cfg.History.Backend,
		"model_id", cfg.Model.ID,
		"output", store.Path())

	return c, nil
}

// Close освобождает ресурсы в порядке, обратном созданию
func (c *Components) Close(ctx context.Context) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		closer := c.closers[i]
		if err := closer.close(ctx); err != nil {
			c.log.Warn("Failed to close "+closer.name, "error", err.Error())
		}
	}
	c.closers = nil
}

func (c *Components) addCloser(name string, fn func(ctx context.Context) error) {
	c.closers = append(c.closers, namedCloser{name: name, close: fn})
}

func (c *Components) setupLogForwarding(ctx context.Context, cfg *config.Config, awsCfg aws.Config) {
	if !cfg.CloudWatch.LogsEnabled {
		return
	}

	publisher, err := cloudwatch.NewLogsPublisherFromConfig(ctx, awsCfg, cloudwatch.LogsPublisherConfig{
		LogGroupName:  cfg.CloudWatch.LogGroup,
		LogStreamName: cfg.CloudWatch.LogStream,
		BatchSize:     cfg.CloudWatch.BufferSize,
		FlushInterval: cfg.CloudWatch.FlushInterval,
		AutoCreate:    true,
	})
	if err != nil {
		c.log.Warn("CloudWatch Logs forwarding disabled", "error", err.Error())
		return
	}

	c.log.SetLogPublisher(publisher)
	c.addCloser("cloudwatch logs", func(ctx context.Context) error {
		c.log.SetLogPublisher(nil)
		return publisher.Close(ctx)
	})
	c.log.Info("CloudWatch Logs forwarding enabled", "group", cfg.CloudWatch.LogGroup, "stream", cfg.CloudWatch.LogStream)
}

// setupHistory возвращает nil, если история отключена или недоступна
func (c *Components) setupHistory(ctx context.Context, cfg *config.Config, awsCfg aws.Config) repository.CycleRepository {
	switch cfg.History.Backend {
	case config.HistoryBackendPostgres:
		db, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			c.log.Warn("Cycle history disabled", "backend", cfg.History.Backend, "error", err.Error())
			return nil
		}

		// Настраиваем connection pool
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		repo := postgres.NewPostgresCycleRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			c.log.Warn("Cycle history disabled", "backend", cfg.History.Backend, "error", err.Error())
			_ = repo.Close()
			return nil
		}

		c.Checks["database"] = db.PingContext
		c.addCloser("database", func(context.Context) error { return repo.Close() })
		c.log.Info("Cycle history enabled", "backend", cfg.History.Backend, "host", cfg.Database.Host)
		return repo

	case config.HistoryBackendDynamoDB:
		repo, err := dynamodb.NewCycleRepositoryFromConfig(awsCfg, dynamodb.Config{
			TableName: cfg.Dynamo.Table,
			Endpoint:  cfg.Dynamo.Endpoint,
			Retention: cfg.Dynamo.Retention,
		})
		if err != nil {
			c.log.Warn("Cycle history disabled", "backend", cfg.History.Backend, "error", err.Error())
			return nil
		}
		c.log.Info("Cycle history enabled", "backend", cfg.History.Backend, "table", cfg.Dynamo.Table)
		return repo
	}

	return nil
}

func newMetricsBackend(cfg *config.Config, awsCfg aws.Config) port.MetricsBackend {
	if cfg.Optimizer.MetricsBackend == config.MetricsBackendHost {
		return collector.NewHostBackend(cfg.Optimizer.HostDBPorts)
	}
	return cloudwatch.NewStatisticsBackendFromConfig(awsCfg)
}

func newCostSource(cfg *config.Config, awsCfg aws.Config) port.CostSource {
	if cfg.Cost.Source == config.CostSourceCostExplorer {
		return cost.NewExplorerSourceFromConfig(awsCfg, cfg.Cost.Lookback)
	}
	return cost.NewStaticSource()
}

// CloseTimeout - время на сброс буферов телеметрии при завершении
const CloseTimeout = 10 * time.Second
