package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrwatcher/internal/api"
	"qrwatcher/internal/config"
	"qrwatcher/internal/delivery"
	"qrwatcher/internal/handler"
	"qrwatcher/internal/metrics"
	"qrwatcher/internal/middleware"
	"qrwatcher/internal/notify"
	"qrwatcher/internal/qrimage"
	"qrwatcher/internal/repository/postgres"
	"qrwatcher/internal/service"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting QR watcher", zap.String("version", api.Version))

	// Connect to database with retries
	db, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Run migrations
	if err := runMigrations(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	logger.Info("Database migrations completed")

	// Initialize repositories
	botRepo := postgres.NewBotRepo(db)
	userRepo := postgres.NewUserRepo(db)
	linkRepo := postgres.NewLinkRepo(db)

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		Client: &http.Client{Timeout: 30 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("Telegram handler failed", zap.Error(err))
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized")

	// Initialize notification engine
	gateway := delivery.NewTelegramGateway(bot)
	engine := notify.NewEngine(
		botRepo,
		userRepo,
		gateway,
		qrimage.NewPNGRenderer(),
		metrics.New(prometheus.DefaultRegisterer),
		logger,
		notify.Config{
			DeliveryTimeout: cfg.Notify.DeliveryTimeout,
			Workers:         cfg.Notify.Workers,
		},
	)

	// Initialize services
	botService := service.NewBotService(botRepo, userRepo, linkRepo, engine, logger)
	accessService := service.NewAccessService(userRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AdminID != 0 {
		if err := accessService.SeedAdmin(ctx, cfg.AdminID); err != nil {
			logger.Fatal("Failed to seed admin", zap.Int64("user_id", cfg.AdminID), zap.Error(err))
		}
	}

	// Initialize handler
	bot.Use(middleware.Access(accessService, logger))
	h := handler.NewHandler(bot, botService, accessService, gateway, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	// Initialize ingestion API
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis is not reachable, rate limiter will fail open", zap.Error(err))
		}
	} else {
		logger.Info("REDIS_ADDR is empty, rate limiting disabled")
	}

	server := api.NewServer(api.Options{
		Addr:      cfg.APIAddr(),
		Secret:    cfg.APISecret,
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
	}, botService, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Start sweep job in background
	go runSweepJob(ctx, botService, cfg.Notify.SweepInterval, logger)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop API server", zap.Error(err))
	}
	bot.Stop()
	cancel()

	logger.Info("Stopped gracefully")
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case err == migrate.ErrNoChange:
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}
	return nil
}

// runSweepJob periodically reconciles QR message references of authenticated bots
func runSweepJob(ctx context.Context, bots *service.BotService, interval time.Duration, logger *zap.Logger) {
	sweep := func() {
		n, err := bots.Sweep(ctx)
		if err != nil {
			logger.Error("Failed to run sweep", zap.Error(err))
			return
		}
		logger.Info("Sweep completed", zap.Int("bots", n))
	}

	// Run once at startup
	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweep job stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
