package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	calendarApp "github.com/felixgeelhaar/autoplan/internal/calendar/application"
	"github.com/felixgeelhaar/autoplan/internal/calendar/infrastructure/resilience"
	calendarSetup "github.com/felixgeelhaar/autoplan/internal/calendar/setup"
	scheduleCommands "github.com/felixgeelhaar/autoplan/internal/scheduling/application/commands"
	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
	schedulerServices "github.com/felixgeelhaar/autoplan/internal/scheduling/application/services"
	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/infrastructure/lock"
	schedulePersistence "github.com/felixgeelhaar/autoplan/internal/scheduling/infrastructure/persistence"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/infrastructure/planfile"
	sharedApplication "github.com/felixgeelhaar/autoplan/internal/shared/application"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/autoplan/pkg/config"
	"github.com/felixgeelhaar/autoplan/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis, nil when no run lock is configured
	RedisClient *redis.Client

	PlacementRepo *schedulePersistence.PlacementRepository
	UnitOfWork    sharedApplication.UnitOfWork
	RunLock       schedulingDomain.RunLock

	// Publishers. EventPublisher fans out to RabbitMQ (when configured) and
	// LocalBus.
	LocalBus       *eventbus.LocalBus
	EventPublisher eventbus.Publisher

	BusyAggregator *calendarApp.Aggregator
	Engine         *schedulerServices.SchedulerEngine
	PlanLoader     *planfile.Loader

	// Scheduling handlers
	AutoScheduleHandler        *scheduleCommands.AutoScheduleHandler
	GetScheduleHandler         *scheduleQueries.GetScheduleHandler
	GetLatestRunHandler        *scheduleQueries.GetLatestRunHandler
	UpcomingOccurrencesHandler *scheduleQueries.UpcomingOccurrencesHandler
	MissedReportHandler        *scheduleQueries.MissedReportHandler
}

// NewContainer creates a new container with all dependencies wired.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}

	if err := c.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initPublisher(); err != nil {
		c.Close()
		return nil, err
	}

	aggregator, err := calendarSetup.NewAggregator(ctx, providerConfig(cfg, logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to set up busy sources: %w", err)
	}
	c.BusyAggregator = aggregator

	loc := cfg.Location()
	c.Engine = schedulerServices.NewSchedulerEngine(schedulerServices.DefaultSchedulerConfig())
	c.PlanLoader = planfile.NewLoader(loc, logger)

	c.AutoScheduleHandler = scheduleCommands.NewAutoScheduleHandler(
		c.Engine,
		c.PlacementRepo,
		c.UnitOfWork,
		c.BusyAggregator,
		c.RunLock,
		c.EventPublisher,
		logger,
	).WithMetrics(c.Metrics)
	c.GetScheduleHandler = scheduleQueries.NewGetScheduleHandler(c.PlacementRepo)
	c.GetLatestRunHandler = scheduleQueries.NewGetLatestRunHandler(c.PlacementRepo)
	c.UpcomingOccurrencesHandler = scheduleQueries.NewUpcomingOccurrencesHandler()
	c.MissedReportHandler = scheduleQueries.NewMissedReportHandler(c.PlacementRepo)

	logger.Debug("container ready",
		"driver", c.DBDriver,
		"redis", c.RedisClient != nil,
		"busy_sources", len(aggregator.Sources()),
		"timezone", loc.String(),
	)
	return c, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	driver, err := database.ParseDriver(c.Config.DatabaseDriver)
	if err != nil {
		return err
	}
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     driver,
		URL:        c.Config.DatabaseURL,
		SQLitePath: c.Config.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := schedulePersistence.NewPlacementRepository(conn)
	if err := repo.EnsureSchema(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.PlacementRepo = repo
	c.UnitOfWork = database.NewUnitOfWork(conn)
	c.Logger.Info("connected to database", "driver", c.DBDriver)
	return nil
}

// initRedis connects the run lock. Redis is optional in development; without
// it runs are not serialised across processes.
func (c *Container) initRedis(ctx context.Context) error {
	c.RunLock = lock.NoopLock{}
	if c.Config.RedisURL == "" {
		return nil
	}

	client, err := lock.NewClient(ctx, c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, runs will not be locked", "error", err)
		return nil
	}

	c.RedisClient = client
	c.RunLock = lock.NewRedisLock(client, lock.DefaultKey, c.Config.RunLockTTL)
	c.Logger.Info("connected to Redis")
	return nil
}

func (c *Container) initPublisher() error {
	c.LocalBus = eventbus.NewLocalBus(c.Logger)
	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = c.LocalBus
		return nil
	}

	rabbit, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, "", c.Logger)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, run events stay in-process", "error", err)
		c.EventPublisher = c.LocalBus
		return nil
	}
	c.EventPublisher = eventbus.NewFanout(rabbit, c.LocalBus)
	return nil
}

func providerConfig(cfg *config.Config, logger *slog.Logger) calendarSetup.ProviderConfig {
	breaker := resilience.DefaultBreakerConfig()
	if cfg.BusyBreakerFailures > 0 {
		breaker.FailureThreshold = convert.IntToUint32Clamped(cfg.BusyBreakerFailures)
	}
	if cfg.BusyBreakerTimeout > 0 {
		breaker.Timeout = cfg.BusyBreakerTimeout
	}

	pc := calendarSetup.ProviderConfig{
		Location: cfg.Location(),
		Breaker:  breaker,
		Logger:   logger,
	}
	if cfg.CalDAVEnabled() {
		pc.CalDAV = &calendarSetup.CalDAVConfig{
			URL:          cfg.CalDAVURL,
			Username:     cfg.CalDAVUsername,
			Password:     cfg.CalDAVPassword,
			CalendarPath: cfg.CalDAVCalendarPath,
		}
	}
	if cfg.GoogleEnabled() {
		pc.Google = &calendarSetup.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			TokenFile:    cfg.GoogleTokenFile,
			CalendarIDs:  cfg.GoogleCalendarIDs,
		}
	}
	return pc
}

// Close releases every connection the container opened.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Debug("database connection closed", "driver", c.DBDriver)
		}
	}
}
