// Package main provides the entry point for the Mailpiece direct-mail API
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amirphl/mailpiece/app/handlers"
	"github.com/amirphl/mailpiece/app/middleware"
	"github.com/amirphl/mailpiece/app/router"
	"github.com/amirphl/mailpiece/app/scheduler"
	"github.com/amirphl/mailpiece/app/services"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/amirphl/mailpiece/config"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog := initializeLogging(cfg.Logging)
	defer closeLog()

	log.Printf("Starting Mailpiece %s (commit %s, built %s) for %s",
		cfg.Deployment.Version, cfg.Deployment.CommitHash, cfg.Deployment.BuildTime, cfg.Deployment.Domain)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	// Stop background workers and close clients once no request can use them
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	log.Println("Server stopped")
}

// initializeLogging routes the standard logger to stdout, a rotating file, or both
func initializeLogging(cfg config.LoggingConfig) func() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)

	if cfg.Output != "file" && cfg.Output != "both" {
		log.SetOutput(os.Stdout)
		return func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	var out io.Writer = rotator
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(out)

	return func() {
		if err := rotator.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(log.Default(), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  repository.QueryLogLevel(logLevel, cfg.SlowQueryLog),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	if cfg.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Println("Database schema migrated")
	}

	return db, nil
}

// initializeCache connects to redis. It returns nil when the cache is disabled.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings redis until the returned function is called
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializePublisher dials the broker, or returns a no-op publisher when it is disabled
func initializePublisher(cfg config.BrokerConfig) (services.EventPublisher, error) {
	if !cfg.Enabled {
		return services.NewNoopEventPublisher(), nil
	}
	publisher, err := services.NewAMQPEventPublisher(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	log.Printf("Event publisher connected (queue=%s)", cfg.Queue)
	return publisher, nil
}

// initializeApplication wires repositories, flows, handlers and the router
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		stopFuncs = append(stopFuncs, func() { _ = sqlDB.Close() })
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	var (
		canvasStore repository.CanvasSessionStore
		countCache  repository.AudienceCountCache
	)
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval))
		canvasStore = repository.NewRedisCanvasSessionStore(rc, cfg.Cache.RedisPrefix)
		countCache = repository.NewRedisAudienceCountCache(rc, cfg.Cache.RedisPrefix)
	} else {
		log.Println("Redis disabled, canvas sessions and audience counts kept in process memory")
		canvasStore = repository.NewMemoryCanvasSessionStore()
		countCache = repository.NewMemoryAudienceCountCache()
	}

	publisher, err := initializePublisher(cfg.Broker)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() {
		if err := publisher.Close(); err != nil {
			log.Printf("Failed to close event publisher: %v", err)
		}
	})

	provider, err := services.NewContactProvider(&cfg.Provider)
	if err != nil {
		return nil, err
	}
	log.Printf("Contact provider: %s", provider.Name())

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	balanceSnapshotRepo := repository.NewBalanceSnapshotRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	savedAudienceRepo := repository.NewSavedAudienceRepository(db)
	recipientListRepo := repository.NewRecipientListRepository(db)
	contactRepo := repository.NewContactRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	designTemplateRepo := repository.NewDesignTemplateRepository(db)
	trackingRepo := repository.NewTrackingEventRepository(db)
	transactor := repository.NewTransactor(db)

	tokenService, err := services.NewTokenService(&cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized (%s) with issuer: %s, audience: %s", cfg.JWT.Algorithm, cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	pricer := businessflow.NewPricer(cfg.Pricing)

	audienceFlow := businessflow.NewAudienceFlow(
		customerRepo,
		walletRepo,
		balanceSnapshotRepo,
		transactionRepo,
		auditRepo,
		savedAudienceRepo,
		recipientListRepo,
		contactRepo,
		transactor,
		countCache,
		provider,
		publisher,
		pricer,
		cfg.Cache.CountTTL,
	)

	creditFlow := businessflow.NewCreditFlow(
		customerRepo,
		walletRepo,
		balanceSnapshotRepo,
		transactionRepo,
		auditRepo,
		transactor,
	)

	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		customerRepo,
		designTemplateRepo,
		recipientListRepo,
		auditRepo,
		transactor,
		publisher,
	)

	designTemplateFlow := businessflow.NewDesignTemplateFlow(designTemplateRepo, customerRepo, auditRepo)
	canvasSessionFlow := businessflow.NewCanvasSessionFlow(canvasStore, cfg.Cache.CanvasSessionTTL)
	recipientListFlow := businessflow.NewRecipientListFlow(recipientListRepo, contactRepo, customerRepo, auditRepo)
	trackingFlow := businessflow.NewTrackingFlow(
		contactRepo,
		recipientListRepo,
		campaignRepo,
		trackingRepo,
		auditRepo,
		publisher,
		cfg.Tracking.MicrositeBaseURL,
	)

	if cfg.Scheduler.Enabled {
		campaignScheduler := scheduler.NewCampaignScheduler(campaignRepo, publisher, nil, cfg.Scheduler.Interval, cfg.Scheduler.BatchSize)
		stopFuncs = append(stopFuncs, campaignScheduler.Start(context.Background()))
	}

	if cfg.Deployment.DemoCustomerEmail != "" {
		if err := ensureDemoCustomer(context.Background(), cfg, customerRepo, creditFlow, tokenService); err != nil {
			return nil, fmt.Errorf("failed to seed demo customer: %w", err)
		}
	}

	healthChecks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rc != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	appRouter := router.NewFiberRouter(cfg, router.Handlers{
		Audience:       handlers.NewAudienceHandler(audienceFlow),
		Credits:        handlers.NewCreditsHandler(creditFlow),
		Campaign:       handlers.NewCampaignHandler(campaignFlow, trackingFlow),
		DesignTemplate: handlers.NewDesignTemplateHandler(designTemplateFlow),
		CanvasSession:  handlers.NewCanvasSessionHandler(canvasSessionFlow),
		RecipientList:  handlers.NewRecipientListHandler(recipientListFlow),
		Tracking:       handlers.NewTrackingHandler(trackingFlow),
		Health:         handlers.NewHealthHandler("mailpiece-api", handlers.BuildInfo{
			Version:   cfg.Deployment.Version,
			Commit:    cfg.Deployment.CommitHash,
			BuildTime: cfg.Deployment.BuildTime,
		}, healthChecks),
	}, middleware.NewAuthMiddleware(tokenService))

	return &Application{
		router:    appRouter,
		config:    cfg,
		stopFuncs: stopFuncs,
	}, nil
}

// ensureDemoCustomer creates the configured demo admin with a wallet. Outside production its
// access token is logged, since issuing tokens is not part of this service.
func ensureDemoCustomer(
	ctx context.Context,
	cfg *config.ProductionConfig,
	customerRepo repository.CustomerRepository,
	creditFlow businessflow.CreditFlow,
	tokenService services.TokenService,
) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Deployment.DemoCustomerEmail))
	customer, err := customerRepo.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if customer == nil {
		customer = &models.Customer{
			UUID:      uuid.New(),
			FirstName: "Demo",
			LastName:  "Organization",
			Email:     email,
			IsActive:  utils.ToPtr(true),
			IsAdmin:   utils.ToPtr(true),
			CreatedAt: utils.UTCNow(),
			UpdatedAt: utils.UTCNow(),
		}
		if err := customerRepo.Save(ctx, customer); err != nil {
			return err
		}
		log.Printf("Demo customer %s created", email)
	}

	if _, err := creditFlow.EnsureWallet(ctx, customer.ID); err != nil {
		return err
	}

	if cfg.Deployment.Environment != "production" {
		accessToken, err := tokenService.IssueAccessToken(customer.ID, customer.IsAdmin != nil && *customer.IsAdmin)
		if err != nil {
			return err
		}
		log.Printf("Demo access token for %s: %s", email, accessToken)
	}
	return nil
}
