package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	authhandler "github.com/nqn-field/notifica/internal/domain/auth/handler"
	authrepo "github.com/nqn-field/notifica/internal/domain/auth/repository"
	authservice "github.com/nqn-field/notifica/internal/domain/auth/service"
	"github.com/nqn-field/notifica/internal/domain/capture"
	capturehandler "github.com/nqn-field/notifica/internal/domain/capture/handler"
	"github.com/nqn-field/notifica/internal/domain/dispatch"
	importhandler "github.com/nqn-field/notifica/internal/domain/import/handler"
	importrepo "github.com/nqn-field/notifica/internal/domain/import/repository"
	importservice "github.com/nqn-field/notifica/internal/domain/import/service"
	notifhandler "github.com/nqn-field/notifica/internal/domain/notification/handler"
	notifrepo "github.com/nqn-field/notifica/internal/domain/notification/repository"
	notifservice "github.com/nqn-field/notifica/internal/domain/notification/service"
	"github.com/nqn-field/notifica/internal/domain/search"
	"github.com/nqn-field/notifica/internal/domain/verify"
	"github.com/nqn-field/notifica/internal/domain/zone"

	"github.com/nqn-field/notifica/pkg/cache"
	"github.com/nqn-field/notifica/pkg/config"
	"github.com/nqn-field/notifica/pkg/cron"
	"github.com/nqn-field/notifica/pkg/db"
	"github.com/nqn-field/notifica/pkg/mailer"
	"github.com/nqn-field/notifica/pkg/sms"
	"github.com/nqn-field/notifica/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	AuthRepo         authrepo.AuthRepository
	NotificationRepo notifrepo.NotificationRepository
	ImportRepo       importrepo.ImportRepository
	OutboxRepo       dispatch.OutboxRepository
	ZoneRepo         zone.ZoneRepository

	// Services
	TokenManager        authservice.TokenManager
	AuthService         *authservice.AuthService
	NotificationService *notifservice.Service
	ImportService       *importservice.ImportService
	CaptureService      *capture.Service
	DispatchService     *dispatch.Service
	VerifyService       *verify.Service
	ZoneService         *zone.Service
	SearchService       *search.Service
	FileStorage         storage.Storage
	Cache               cache.Cache
	SMSScheduler        *cron.Scheduler

	// Handlers
	AuthHandler         *authhandler.AuthHandler
	NotificationHandler *notifhandler.NotificationHandler
	CaptureHandler      *capturehandler.CaptureHandler
	ImportHandler       *importhandler.ImportHandler
	VerifyHandler       *verify.Handler
	ZoneHandler         *zone.Handler
	SearchHandler       *search.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.AuthRepo = authrepo.NewPostgresAuthRepository(d.DB.Pool)
	d.NotificationRepo = notifrepo.NewPostgresNotificationRepository(d.DB.Pool)
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.OutboxRepo = dispatch.NewPostgresOutboxRepository(d.DB.Pool)
	d.ZoneRepo = zone.NewPostgresZoneRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	jwtSecret := []byte(d.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		return fmt.Errorf("jwt secret is required")
	}

	d.TokenManager = authservice.NewTokenManager(jwtSecret, 12*time.Hour)
	d.AuthService = authservice.NewAuthService(d.AuthRepo, d.TokenManager, d.Logger)

	d.NotificationService = notifservice.NewService(d.NotificationRepo, d.Logger)

	// Import service with the post-import summary email wired in
	mail := mailer.New(d.Config.Mail.ResendAPIKey, d.Config.Mail.FromAddress, d.Logger)
	d.ImportService = importservice.NewImportService(d.ImportRepo, mail, d.Logger)

	// SMS dispatch: queued messages are drained on a cron schedule
	var sender sms.Sender
	if d.Config.SMS.Enabled {
		sender = sms.NewHTTPSender(d.Config.SMS.ProviderURL, d.Config.SMS.APIKey, d.Config.SMS.SenderID, d.Logger)
	} else {
		sender = sms.NewNoopSender(d.Logger)
	}
	d.DispatchService = dispatch.NewService(d.OutboxRepo, sender, d.Logger)

	retryInterval, err := time.ParseDuration(d.Config.SMS.RetryInterval)
	if err != nil {
		return fmt.Errorf("invalid SMS_RETRY_INTERVAL: %w", err)
	}
	d.SMSScheduler = cron.NewScheduler(d.DispatchService, retryInterval, d.Logger)

	// File storage for capture photos and signatures
	fileStorage, err := storage.New(&storage.Config{
		Backend:   storage.Backend(d.Config.Storage.Backend),
		LocalPath: d.Config.Storage.LocalPath,
		S3Bucket:  d.Config.Storage.S3Bucket,
		S3Region:  d.Config.Storage.S3Region,
		S3Prefix:  d.Config.Storage.S3Prefix,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.CaptureService = capture.NewService(
		d.NotificationRepo,
		d.FileStorage,
		d.DispatchService,
		[]byte(d.Config.Auth.TokenSecret),
		d.Config.Server.BaseURL,
		d.Logger,
	)

	// Verification lookup cache: Redis when configured, nop otherwise
	if d.Config.Cache.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		redisCache, err := cache.NewRedis(ctx, d.Config.Cache.RedisAddr, d.Config.Cache.RedisPassword, d.Config.Cache.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to init redis cache: %w", err)
		}
		d.Cache = redisCache
	} else {
		d.Cache = cache.NewNop()
	}

	verifyTTL := time.Duration(d.Config.Cache.VerifyTTL) * time.Second
	d.VerifyService = verify.NewService(d.NotificationRepo, d.Cache, verifyTTL, d.Logger)

	zoneService, err := zone.NewService(context.Background(), d.ZoneRepo, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init zone service: %w", err)
	}
	d.ZoneService = zoneService

	searchService, err := search.NewService(d.NotificationRepo, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init search service: %w", err)
	}
	d.SearchService = searchService

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.AuthHandler = authhandler.NewAuthHandler(d.AuthService)
	d.NotificationHandler = notifhandler.NewNotificationHandler(d.NotificationService)
	d.CaptureHandler = capturehandler.NewCaptureHandler(d.CaptureService)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService)
	d.VerifyHandler = verify.NewHandler(d.VerifyService)
	d.ZoneHandler = zone.NewHandler(d.ZoneService)
	d.SearchHandler = search.NewHandler(d.SearchService)

	d.Logger.Info("handlers initialized")
	return nil
}

// Start launches the background workers: the SMS outbox drain and the
// initial search index build.
func (d *Dependencies) Start(ctx context.Context) {
	if err := d.SMSScheduler.Start(); err != nil {
		d.Logger.Warn("sms scheduler start failed", slog.Any("error", err))
	}

	go func() {
		if _, err := d.SearchService.Reindex(ctx); err != nil {
			d.Logger.Warn("initial search index build failed", slog.Any("error", err))
		}
	}()
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.SMSScheduler != nil {
		<-d.SMSScheduler.Stop().Done()
	}
	if d.SearchService != nil {
		if err := d.SearchService.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if c, ok := d.Cache.(*cache.RedisCache); ok {
		if err := c.Close(); err != nil {
			d.Logger.Warn("failed to close redis", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
