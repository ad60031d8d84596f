package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/verse-dispatch/internal/config"
	"github.com/kursadbilgin/verse-dispatch/internal/content"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const consumerPrefetch = 1

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

	dispatchService, err := service.NewDispatchService(service.DispatchServiceParams{
		Verses:           repository.NewGormVerseRepo(db),
		Subscribers:      repository.NewGormSubscriberRepo(db),
		Content:          contentProvider,
		EmailRenderer:    emailRenderer,
		WhatsAppRenderer: render.NewWhatsAppRenderer(),
		EmailSender:      emailSender,
		ChatSender:       chatSender,
		BatchSize:        cfg.BatchSize,
		SendTimeout:      time.Duration(cfg.SendTimeoutSeconds) * time.Second,
		RateLimiter:      limiter,
		Metrics:          observability.NewMetrics(),
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}

	consumer := queue.NewRabbitMQConsumer(mq, consumerPrefetch, logger)
	defer consumer.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Consume(ctx, queue.TriggerQueue, triggerHandler(dispatchService, logger))
	})

	if cfg.DispatchCron != "" {
		scheduler, err := service.NewDispatchScheduler(dispatchService, cfg.DispatchCron, logger)
		if err != nil {
			logger.Fatal("scheduler initialization failed", zap.Error(err))
		}
		g.Go(func() error {
			return scheduler.Start(ctx)
		})
	}

	logger.Info("verse-dispatch worker started",
		zap.String("queue", queue.TriggerQueue),
		zap.String("cron", cfg.DispatchCron))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker shut down")
}

// triggerHandler maps a dispatch trigger message to the matching run. A
// failed run is not requeued when the run itself reported outcomes; only
// errors before any sending are worth a retry.
func triggerHandler(runner *service.DispatchService, logger *zap.Logger) queue.MessageHandler {
	return func(ctx context.Context, msg queue.DispatchMessage) error {
		var (
			report domain.Report
			err    error
		)

		switch msg.Kind {
		case queue.DispatchAll:
			report, err = runner.Run(ctx)
		case queue.DispatchSubscriber:
			if msg.Channel != "" {
				report, err = runner.RunForSubscriberChannel(ctx, msg.SubscriberID, msg.Channel)
			} else {
				report, err = runner.RunForSubscriber(ctx, msg.SubscriberID)
			}
		default:
			return domain.ErrValidation
		}

		if err != nil {
			logger.Error("triggered dispatch failed",
				zap.String("messageId", msg.MessageID),
				zap.String("kind", string(msg.Kind)),
				zap.Error(err))
			return err
		}

		logger.Info("triggered dispatch completed",
			zap.String("messageId", msg.MessageID),
			zap.String("kind", string(msg.Kind)),
			zap.String("runId", report.RunID),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed))
		return nil
	}
}
