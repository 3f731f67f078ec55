package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-tracker/internal/api/http"
	"github.com/spec-kit/ticket-tracker/internal/api/http/handlers"
	"github.com/spec-kit/ticket-tracker/internal/broker"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	"github.com/spec-kit/ticket-tracker/internal/service"
	"github.com/spec-kit/ticket-tracker/internal/worker"
)

func main() {
	envFile := pflag.String("env-file", ".env", "optional dotenv file loaded before reading the environment")
	showVersion := pflag.Bool("version", false, "print the version and exit")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *showVersion {
		fmt.Println(cfg.App.Name, cfg.App.Version)
		return
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redis := broker.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics(cfg.App.Name)
	dispatcher := events.NewInMemoryDispatcher()
	if redis.Enabled() {
		events.NewRedisForwarder(redis.Client, cfg.Redis.EventsChannel, logger.Named("events")).Register(dispatcher)
	}

	clk := clockwork.NewRealClock()
	ticketStore := repository.NewTicketStore(clk)
	if cfg.Tickets.SeedDemoData {
		seeded := ticketStore.Seed()
		logger.Info("seeded demo tickets", zap.Int("count", len(seeded)))
	}

	pickupMin, pickupMax := cfg.Queue.PickupDelay()
	processMin, processMax := cfg.Queue.ProcessDelay()
	successRate := cfg.Queue.SuccessRate
	queueStore := repository.NewQueueStore(repository.QueueOptions{
		Clock:           clk,
		PickupDelayMin:  pickupMin,
		PickupDelayMax:  pickupMax,
		ProcessDelayMin: processMin,
		ProcessDelayMax: processMax,
		SuccessRate:     &successRate,
		OnTransition:    service.JobTransitionPublisher(dispatcher, logger.Named("queue")),
	})
	defer queueStore.Close()

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      ticketStore,
		Dispatcher: dispatcher,
		Logger:     logger.Named("tickets"),
		Config:     cfg.Tickets,
	})
	queueService := service.NewQueueService(queueStore, dispatcher, logger.Named("queue"))
	notificationService := service.NewNotificationService(dispatcher, queueService, logger.Named("notifications"), cfg.Notification)

	worker.Start(worker.Dependencies{
		Dispatcher:    dispatcher,
		Notifications: notificationService,
		Metrics:       metrics,
		Logger:        logger,
	})

	metrics.RegisterGauge("tickets", "Tickets currently stored.", func() float64 {
		return float64(ticketService.Count())
	})
	metrics.RegisterGauge("queue_jobs_pending", "Jobs waiting to be picked up.", func() float64 {
		return float64(queueService.CountByStatus(domain.JobStatusPending))
	})
	metrics.RegisterGauge("queue_jobs_processing", "Jobs currently processing.", func() float64 {
		return float64(queueService.CountByStatus(domain.JobStatusProcessing))
	})

	app := httptransport.NewServer(httptransport.ServerConfig{
		AppName: cfg.App.Name,
		Logger:  logger,
		Metrics: metrics,
		Middlewares: httptransport.MiddlewareConfig{
			Timeout:      cfg.App.RequestTimeout(),
			AllowOrigins: cfg.CORS.AllowOrigins,
		},
		Routes: httptransport.RouteConfig{
			Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, redis),
			Tickets: handlers.NewTicketsHandler(ticketService),
			Queue:   handlers.NewQueueHandler(queueService),
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	queueStore.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
