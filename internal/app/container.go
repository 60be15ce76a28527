// Package app assembles the scheduling pipeline from configuration: storage,
// calendar backend, extraction, availability, holds and workflow wiring.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	availabilityApp "github.com/felixgeelhaar/tempora/internal/availability/application"
	availabilitySubscribers "github.com/felixgeelhaar/tempora/internal/availability/application/subscribers"
	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	caldavBackend "github.com/felixgeelhaar/tempora/internal/calendar/infrastructure/caldav"
	googleBackend "github.com/felixgeelhaar/tempora/internal/calendar/infrastructure/google"
	extractionApp "github.com/felixgeelhaar/tempora/internal/extraction/application"
	extractionDomain "github.com/felixgeelhaar/tempora/internal/extraction/domain"
	"github.com/felixgeelhaar/tempora/internal/extraction/infrastructure/classifier"
	requestPersistence "github.com/felixgeelhaar/tempora/internal/extraction/infrastructure/persistence"
	"github.com/felixgeelhaar/tempora/internal/extraction/timeparse"
	holdsApp "github.com/felixgeelhaar/tempora/internal/holds/application"
	holdsWorkers "github.com/felixgeelhaar/tempora/internal/holds/application/workers"
	holdsDomain "github.com/felixgeelhaar/tempora/internal/holds/domain"
	holdsPersistence "github.com/felixgeelhaar/tempora/internal/holds/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/tempora/internal/shared/application"
	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/felixgeelhaar/tempora/internal/shared/infrastructure/persistence"
	workflowApp "github.com/felixgeelhaar/tempora/internal/workflow/application"
	workflowWorkers "github.com/felixgeelhaar/tempora/internal/workflow/application/workers"
	workflowDomain "github.com/felixgeelhaar/tempora/internal/workflow/domain"
	"github.com/felixgeelhaar/tempora/internal/workflow/infrastructure/dispatch"
	workflowPersistence "github.com/felixgeelhaar/tempora/internal/workflow/infrastructure/persistence"
	"github.com/felixgeelhaar/tempora/pkg/config"
	"github.com/felixgeelhaar/tempora/pkg/observability"
)

// Container holds the application's wired components.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics

	DB     *sql.DB
	PgPool *pgxpool.Pool

	Requests  extractionDomain.Repository
	Holds     holdsDomain.Repository
	Workflows workflowDomain.Repository

	Extractor    *extractionApp.Extractor
	Engine       *availabilityApp.Engine
	HoldManager  *holdsApp.Manager
	Orchestrator *workflowApp.Orchestrator

	Publisher       eventbus.Publisher
	OutboxProcessor *outbox.Processor

	Sweeper           *holdsWorkers.ExpirySweeper
	TimeoutDispatcher *workflowWorkers.TimeoutDispatcher

	Health *observability.HealthRegistry

	backend     calendarApp.CalendarBackend
	bus         *eventbus.InProcessEventBus
	redisClient *redis.Client
}

// NewContainer wires the full pipeline from configuration. SQLite backs
// requests, workflows and the outbox; when a PostgreSQL URL is configured,
// holds move there so multiple processes share one atomic reservation store.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NoopMetrics{},
	}

	if err := c.setupStorage(ctx, cfg, logger); err != nil {
		return nil, err
	}

	uow := sharedPersistence.NewSQLiteUnitOfWork(c.DB)
	outboxRepo := outbox.NewSQLiteRepository(c.DB)

	if err := c.setupEventBus(cfg, logger, outboxRepo); err != nil {
		c.Close()
		return nil, err
	}

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.backend = backend
	breakered := calendarApp.NewBreakerBackend(backend, calendarApp.DefaultBreakerConfig(), logger)

	var cache availabilityApp.BusyCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		c.redisClient = redis.NewClient(opts)
		cache = availabilityApp.NewRedisBusyCache(c.redisClient, availabilityApp.DefaultBusyCacheTTL, logger)
	}
	if invalidating, ok := cache.(availabilitySubscribers.BusyCache); ok && c.bus != nil {
		c.bus.RegisterConsumer(availabilitySubscribers.NewBusyCacheInvalidator(invalidating, cfg.CalendarID, logger))
	}

	defaultLocation, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("load default timezone %q: %w", cfg.DefaultTimezone, err)
	}
	resolver := timeparse.NewResolver(
		timeparse.WithDefaultLocation(defaultLocation),
		timeparse.WithDurationCap(cfg.DurationCapMinutes),
	)

	c.Extractor = extractionApp.NewExtractor(
		classifier.NewKeywordClassifier(),
		resolver,
		cfg.ConfidenceThreshold,
		logger,
	)

	c.Engine = availabilityApp.NewEngine(breakered, cache, logger, c.Metrics)

	// Hold rows live wherever the hold repository points; their mutations
	// need a transaction on that database, not the sqlite one.
	holdsUoW := sharedApplication.UnitOfWork(uow)
	if c.PgPool != nil {
		holdsUoW = sharedPersistence.NewPgxUnitOfWork(c.PgPool)
	}
	c.HoldManager = holdsApp.NewManager(c.Holds, outboxRepo, holdsUoW,
		holdsApp.WithTTL(cfg.HoldTTL),
		holdsApp.WithLogger(logger),
		holdsApp.WithMetrics(c.Metrics),
	)

	orchestratorConfig := workflowApp.Config{
		CalendarID:  cfg.CalendarID,
		MaxRetries:  cfg.MaxRetries,
		Preferences: preferencesFromConfig(cfg),
	}
	c.Orchestrator = workflowApp.NewOrchestrator(
		c.Workflows, c.Requests, c.HoldManager, c.Engine, breakered,
		dispatch.NewLogDispatcher(logger), resolver, outboxRepo, uow,
		orchestratorConfig, logger, c.Metrics,
	)

	c.Sweeper = holdsWorkers.NewExpirySweeper(c.HoldManager, holdsWorkers.ExpirySweeperConfig{
		Interval: cfg.SweepInterval,
	}, logger)
	c.TimeoutDispatcher = workflowWorkers.NewTimeoutDispatcher(c.Orchestrator,
		workflowWorkers.DefaultTimeoutDispatcherConfig(), logger)

	c.Health = observability.NewHealthRegistry()
	c.Health.Register("sqlite", observability.DatabaseHealthChecker(c.DB.PingContext))
	if c.PgPool != nil {
		c.Health.Register("postgres", observability.DatabaseHealthChecker(c.PgPool.Ping))
	}
	if c.redisClient != nil {
		c.Health.Register("redis", observability.CacheHealthChecker(func(ctx context.Context) error {
			return c.redisClient.Ping(ctx).Err()
		}))
	}

	return c, nil
}

func (c *Container) setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		db  *sql.DB
		err error
	)
	if cfg.SQLitePath == "" {
		db, err = sqlite.OpenInMemory(ctx)
	} else {
		db, err = sqlite.Open(ctx, cfg.SQLitePath)
	}
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqlite.Migrate(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	c.DB = db

	c.Requests = requestPersistence.NewSQLiteRequestRepository(db)
	c.Workflows = workflowPersistence.NewSQLiteWorkflowRepository(db)
	c.Holds = holdsPersistence.NewSQLiteHoldRepository(db)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		repo := holdsPersistence.NewPostgresHoldRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return err
		}
		c.PgPool = pool
		c.Holds = repo
		logger.Info("holds backed by postgres")
	}
	return nil
}

func (c *Container) setupEventBus(cfg *config.Config, logger *slog.Logger, outboxRepo outbox.Repository) error {
	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		c.Publisher = publisher
	} else {
		bus := eventbus.NewInProcessEventBus(logger)
		c.bus = bus
		c.Publisher = bus
	}

	c.OutboxProcessor = outbox.NewProcessor(outboxRepo, c.Publisher, outbox.DefaultProcessorConfig(), logger)
	return nil
}

func buildBackend(cfg *config.Config, logger *slog.Logger) (calendarApp.CalendarBackend, error) {
	switch cfg.CalendarProvider {
	case "memory", "":
		return calendarApp.NewMemoryBackend(), nil
	case "caldav":
		if cfg.CalDAVURL == "" {
			return nil, fmt.Errorf("caldav provider requires TEMPORA_CALDAV_URL")
		}
		return caldavBackend.NewBackend(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, logger), nil
	case "google":
		if cfg.GoogleAccessToken == "" {
			return nil, fmt.Errorf("google provider requires TEMPORA_GOOGLE_ACCESS_TOKEN")
		}
		tokens := googleBackend.StaticTokenProvider{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GoogleAccessToken}),
		}
		return googleBackend.NewBackend(tokens, logger), nil
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", cfg.CalendarProvider)
	}
}

func preferencesFromConfig(cfg *config.Config) availabilityApp.Preferences {
	prefs := availabilityApp.DefaultPreferences()
	prefs.WorkStart = cfg.WorkStart
	prefs.WorkEnd = cfg.WorkEnd
	prefs.BufferMinutes = cfg.BufferMinutes
	prefs.MaxCandidates = cfg.MaxCandidates
	return prefs
}

// UnitOfWork returns a unit of work bound to the primary database.
func (c *Container) UnitOfWork() sharedApplication.UnitOfWork {
	return sharedPersistence.NewSQLiteUnitOfWork(c.DB)
}

// Close releases held connections.
func (c *Container) Close() error {
	var firstErr error
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.PgPool != nil {
		c.PgPool.Close()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
