package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/eachn05-lang/Ea-desk/internal/api/http"
	"github.com/eachn05-lang/Ea-desk/internal/api/http/handlers"
	"github.com/eachn05-lang/Ea-desk/internal/auth"
	"github.com/eachn05-lang/Ea-desk/internal/config"
	"github.com/eachn05-lang/Ea-desk/internal/events"
	"github.com/eachn05-lang/Ea-desk/internal/notify"
	"github.com/eachn05-lang/Ea-desk/internal/observability"
	"github.com/eachn05-lang/Ea-desk/internal/persistence"
	"github.com/eachn05-lang/Ea-desk/internal/repository"
	"github.com/eachn05-lang/Ea-desk/internal/service"
	"github.com/eachn05-lang/Ea-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		ticketRepo  repository.TicketRepository
		userRepo    repository.UserRepository
		commentRepo repository.CommentRepository
	)
	if pg.Enabled() {
		pool := pg.PoolHandle()
		ticketRepo = repository.NewTicketRepository(pool)
		userRepo = repository.NewUserRepository(pool)
		commentRepo = repository.NewCommentRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		ticketRepo = store.Tickets()
		userRepo = store.Users()
		commentRepo = store.Comments()
	}

	var cache repository.CacheRepository
	if redis.Enabled() {
		cache = repository.NewRedisCacheRepository(redis.Client)
	}
	statsService := service.NewStatsService(ticketRepo, cache, cfg.Redis.CacheTTL(), logger)

	var transport notify.Transport
	if cfg.Notification.WebhookURL != "" {
		transport = notify.NewWebhookTransport(cfg.Notification.WebhookURL)
	} else {
		transport = notify.NewLogTransport(logger)
	}
	notifier := service.NewNotificationService(userRepo, transport, logger, metrics, cfg.Notification)

	var (
		dispatcher  events.Dispatcher
		channelDisp *events.ChannelDispatcher
		queueClient *worker.Client
	)
	if cfg.Queue.Driver == config.QueueDriverRiver && pg.Enabled() {
		if err := worker.Migrate(ctx, pg.PoolHandle()); err != nil {
			logger.Fatal("failed to migrate job queue schema", zap.Error(err))
		}
		queueClient, err = worker.New(pg.PoolHandle(), cfg.Queue.Concurrency, notifier, logger)
		if err != nil {
			logger.Fatal("failed to build job queue", zap.Error(err))
		}
		if err := queueClient.Start(ctx); err != nil {
			logger.Fatal("failed to start job queue", zap.Error(err))
		}
		dispatcher = queueClient
		logger.Info("event dispatch via river queue", zap.Int("concurrency", cfg.Queue.Concurrency))
	} else {
		if cfg.Queue.Driver == config.QueueDriverRiver {
			logger.Warn("river queue requires postgres; falling back to channel dispatch")
		}
		channelDisp = events.NewChannelDispatcher(logger, metrics, cfg.Queue.Buffer)
		notifier.Register(channelDisp)
		channelDisp.Start()
		dispatcher = channelDisp
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Stats:       statsService,
		Logger:      logger,
	})
	userService := service.NewUserService(userRepo, cfg.Auth.BootstrapAdminEmails, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	authMiddleware := auth.NewAuthMiddleware(tokens, userService)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		Admin:          handlers.NewAdminHandler(statsService, userService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()

	// Stop intake first, then let queued events drain.
	if channelDisp != nil {
		channelDisp.Close()
	}
	if queueClient != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := queueClient.Stop(stopCtx); err != nil {
			logger.Warn("job queue shutdown incomplete", zap.Error(err))
		}
		stopCancel()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
