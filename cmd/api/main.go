package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/verse-dispatch/internal/auth"
	"github.com/kursadbilgin/verse-dispatch/internal/config"
	"github.com/kursadbilgin/verse-dispatch/internal/content"
	"github.com/kursadbilgin/verse-dispatch/internal/handler"
	"github.com/kursadbilgin/verse-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/verse-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/verse-dispatch/internal/infra/redis"
	"github.com/kursadbilgin/verse-dispatch/internal/observability"
	"github.com/kursadbilgin/verse-dispatch/internal/provider"
	"github.com/kursadbilgin/verse-dispatch/internal/queue"
	"github.com/kursadbilgin/verse-dispatch/internal/ratelimit"
	"github.com/kursadbilgin/verse-dispatch/internal/render"
	"github.com/kursadbilgin/verse-dispatch/internal/repository"
	"github.com/kursadbilgin/verse-dispatch/internal/service"
	"github.com/kursadbilgin/verse-dispatch/internal/transport"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	var limiter ratelimit.RateLimiter = ratelimit.Unlimited{}
	if cfg.RateLimitPerSec > 0 {
		limiter, err = infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			logger.Fatal("rate limiter initialization failed", zap.Error(err))
		}
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()
	publisher := queue.NewRabbitMQPublisher(mq)

	emailSender, err := provider.NewSESEmailSender(ctx, provider.SESConfig{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
		From:      cfg.MailFrom,
	})
	if err != nil {
		logger.Fatal("ses sender initialization failed", zap.Error(err))
	}

	chatSender, err := provider.NewWhatsAppGateway(cfg.WhatsAppGatewayURL, cfg.WhatsAppGatewayToken)
	if err != nil {
		logger.Fatal("whatsapp gateway initialization failed", zap.Error(err))
	}

	contentProvider, err := content.NewQuranAPI(cfg.VerseAPIBaseURL)
	if err != nil {
		logger.Fatal("verse api initialization failed", zap.Error(err))
	}

	emailRenderer, err := render.NewEmailRenderer(cfg.MailSubject, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal("email renderer initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	subscriberRepo := repository.NewGormSubscriberRepo(db)
	verseRepo := repository.NewGormVerseRepo(db)

	subscriberService, err := service.NewSubscriberService(subscriberRepo, logger)
	if err != nil {
		logger.Fatal("subscriber service initialization failed", zap.Error(err))
	}

	dispatchService, err := service.NewDispatchService(service.DispatchServiceParams{
		Verses:           verseRepo,
		Subscribers:      subscriberRepo,
		Content:          contentProvider,
		EmailRenderer:    emailRenderer,
		WhatsAppRenderer: render.NewWhatsAppRenderer(),
		EmailSender:      emailSender,
		ChatSender:       chatSender,
		BatchSize:        cfg.BatchSize,
		SendTimeout:      time.Duration(cfg.SendTimeoutSeconds) * time.Second,
		RateLimiter:      limiter,
		Metrics:          metrics,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}

	authenticator, err := auth.NewAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSecret, logger)
	if err != nil {
		logger.Fatal("authenticator initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb, mq)
	if err := handler.RegisterAuthRoutes(app, authenticator); err != nil {
		logger.Fatal("auth routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterSubscriberRoutes(app, authenticator, subscriberService, dispatchService); err != nil {
		logger.Fatal("subscriber routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterDispatchRoutes(app, authenticator, dispatchService, publisher); err != nil {
		logger.Fatal("dispatch routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterVerseRoutes(app, authenticator, verseRepo); err != nil {
		logger.Fatal("verse routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterUnsubscribeRoutes(app, subscriberService); err != nil {
		logger.Fatal("unsubscribe routes registration failed", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down api")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("api shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("verse-dispatch api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}
