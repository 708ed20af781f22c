// Package container wires the application together: database, repositories,
// dispatcher, workflow engine and services, with ordered initialization and
// reverse-order teardown.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/dispatcher"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/application/service"
	"github.com/lahah11/finale-anesp-sub000/internal/application/workflow"
	"github.com/lahah11/finale-anesp-sub000/internal/config"
	"github.com/lahah11/finale-anesp-sub000/internal/export"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/notify"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/persistence/repository"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/persistence/sqlite"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/storage"
	"github.com/lahah11/finale-anesp-sub000/pkg/database"
)

// Container manages all application dependencies and lifecycle
type Container struct {
	config *config.Config
	logger *zap.Logger

	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	notifier port.NotificationDispatcher

	dispatcher dispatcher.Dispatcher
	engine     workflow.Engine
	services   *ServiceBundle
	exporter   *export.RegisterExporter

	mu     sync.Mutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories
type RepositoryBundle struct {
	Mission      port.MissionRepository
	Participant  port.ParticipantRepository
	Vehicle      port.VehicleRepository
	Driver       port.DriverRepository
	User         port.UserRepository
	Notification port.NotificationRepository
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Mission      service.MissionService
	Document     service.DocumentService
	Logistics    *service.LogisticsService
	Notification service.NotificationService
}

// NewContainer creates a new container from configuration. Call Start to
// initialize components.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order: database and
// repositories, then the notification gateway, then services, dispatcher and
// workflow engine.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	// The stage table is static wiring; a bad edit should stop the process
	// before it touches the database.
	if err := workflow.ValidateStageTable(); err != nil {
		return fmt.Errorf("invalid stage table: %w", err)
	}

	_, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	c.initNotifier()
	c.initDispatcherAndServices()
	c.logger.Info("Services and workflow engine initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

func (c *Container) initDatabase() error {
	sqlDB, err := database.Open(database.Config{
		Path:            c.config.Database.Path,
		MaxOpenConns:    c.config.Database.MaxOpenConns,
		MaxIdleConns:    c.config.Database.MaxIdleConns,
		ConnMaxLifetime: c.config.Database.ConnMaxLifetime,
	}, c.logger)
	if err != nil {
		return err
	}
	c.sqlDB = sqlDB

	migrator := database.NewMigrator(sqlDB, c.logger)
	if err := migrator.Run(c.config.Database.MigrationsDir); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	c.db = sqlite.NewDB(sqlDB, c.logger)
	c.repositories = &RepositoryBundle{
		Mission:      repository.NewMissionRepository(sqlDB, c.logger),
		Participant:  repository.NewParticipantRepository(sqlDB, c.logger),
		Vehicle:      repository.NewVehicleRepository(sqlDB, c.logger),
		Driver:       repository.NewDriverRepository(sqlDB, c.logger),
		User:         repository.NewUserRepository(sqlDB, c.logger),
		Notification: repository.NewNotificationRepository(sqlDB, c.logger),
	}

	return nil
}

func (c *Container) initNotifier() {
	if c.config.Notifier.Endpoint == "" {
		c.notifier = notify.NewLogDispatcher(c.logger)
		return
	}
	c.notifier = notify.NewHTTPDispatcher(c.config.Notifier.Endpoint, c.config.Notifier.Timeout, c.logger)
}

func (c *Container) initDispatcherAndServices() {
	svcLogger := &zapLoggerAdapter{logger: c.logger}

	c.dispatcher = dispatcher.NewDispatcher(dispatcher.WithLogger(svcLogger))

	references := service.NewReferenceGenerator(c.repositories.Mission)
	validators := service.NewValidatorResolver(c.repositories.User, svcLogger)
	logistics := service.NewLogisticsService(c.repositories.Vehicle, c.repositories.Driver, svcLogger)

	c.engine = workflow.NewEngine(
		c.repositories.Mission,
		c.repositories.Vehicle,
		c.repositories.Driver,
		c.db,
		validators,
		logistics,
		c.logger,
		workflow.WithDispatcher(c.dispatcher),
	)

	notification := service.NewNotificationService(c.repositories.Notification, c.notifier, svcLogger)
	notification.RegisterHandlers(c.dispatcher)

	c.services = &ServiceBundle{
		Mission: service.NewMissionService(
			c.repositories.Mission,
			c.repositories.Participant,
			c.db,
			references,
			validators,
			c.dispatcher,
			svcLogger,
		),
		Document: service.NewDocumentService(
			c.repositories.Mission,
			c.repositories.Vehicle,
			c.repositories.Driver,
			c.db,
			validators,
			c.dispatcher,
			svcLogger,
		),
		Logistics:    logistics,
		Notification: notification,
	}

	var store port.DocumentStore
	if c.config.Export.OutputDir != "" {
		store = storage.NewFileStore(c.config.Export.OutputDir, c.logger)
	}
	c.exporter = export.NewRegisterExporter(c.repositories.Mission, store, c.logger)
}

// Close gracefully shuts down all components in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Services returns the application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Engine returns the workflow engine
func (c *Container) Engine() workflow.Engine {
	return c.engine
}

// Exporter returns the register exporter
func (c *Container) Exporter() *export.RegisterExporter {
	return c.exporter
}

// Repositories returns the repository bundle
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// HTTPLogger returns a logger shaped for the HTTP adapter
func (c *Container) HTTPLogger() interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
} {
	return &zapLoggerAdapter{logger: c.logger}
}

// zapLoggerAdapter adapts zap.Logger to the key-value logger interfaces used
// by the application layer
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
