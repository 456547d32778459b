package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/tag-catalog/internal/config"
	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/feed"
	"github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/services/ai"
	"github.com/benvon/tag-catalog/internal/telemetry"
	"github.com/benvon/tag-catalog/internal/workers"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName = "tag-catalog-worker"

	dlqGCInterval  = 1 * time.Hour
	dlqGCRetention = 7 * 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	sweepOnce := flag.Bool("sweep-once", false, "Enqueue one description sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("worker_starting",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
	)

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
			ServiceName: serviceName,
			Endpoint:    cfg.OTELEndpoint,
		})
		if err != nil {
			zapLogger.Warn("otel_tracer_init_failed", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Warn("otel_tracer_shutdown_failed", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("database_connect_failed", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("database_close_failed", zap.Error(err))
		}
	}()

	classificationRepo := database.NewClassificationRepository(db)
	tagRepo := database.NewTagRepository(db)
	threadRepo := database.NewThreadRepository(db)
	feedService := feed.NewService(threadRepo, zapLogger)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("rabbitmq_connect_failed", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("rabbitmq_close_failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := workers.NewSweep(classificationRepo, tagRepo, jobQueue, workers.DefaultSweepBatch, zapLogger)
	if *sweepOnce {
		n, err := sweep.Run(ctx)
		if err != nil {
			zapLogger.Fatal("description_sweep_failed", zap.Error(err))
		}
		zapLogger.Info("description_sweep_enqueued", zap.Int("jobs", n))
		return
	}

	suggester, err := ai.DefaultRegistry().GetProvider(cfg.AIProvider, ai.ProviderConfig{
		APIKey:    cfg.AIKey(),
		BaseURL:   cfg.AIBaseURL,
		Model:     cfg.AIModel,
		Logger:    zapLogger,
		DebugMode: debugMode,
	})
	if err != nil {
		zapLogger.Fatal("ai_provider_init_failed", zap.Error(err), zap.String("provider", cfg.AIProvider))
	}

	var chat workers.ChatPoster
	if cfg.SlackBotToken != "" {
		chat = slack.New(cfg.SlackBotToken)
	}

	processor := workers.NewProcessor(jobQueue, zapLogger)
	processor.Handle(queue.JobTypeSuggestDescription,
		workers.NewDescriber(suggester, classificationRepo, tagRepo, feedService, zapLogger).ProcessSuggestDescriptionJob)
	processor.Handle(queue.JobTypeFeedCleanup,
		workers.NewFeedCleaner(feedService, zapLogger).ProcessFeedCleanupJob)
	processor.Handle(queue.JobTypeAnnounceThread,
		workers.NewAnnouncer(chat, cfg.SlackChannelID, feedService, cfg.BaseURL, zapLogger).ProcessAnnounceThreadJob)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return processor.Run(gctx, jobQueue, cfg.RabbitMQPrefetch)
	})
	if cfg.SweepSchedule != "" {
		g.Go(func() error {
			return sweep.Start(gctx, cfg.SweepSchedule)
		})
	}
	g.Go(func() error {
		return queue.NewGarbageCollector(jobQueue, dlqGCInterval, dlqGCRetention, zapLogger).Start(gctx)
	})

	zapLogger.Info("worker_started",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.String("sweep_schedule", cfg.SweepSchedule),
		zap.Bool("slack_enabled", chat != nil),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		return
	}
	zapLogger.Info("worker_stopped")
}
