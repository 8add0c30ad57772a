package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junozone1110/faqbot-1/internal/adapters/bot"
	"github.com/junozone1110/faqbot-1/internal/bootstrap"
	"github.com/junozone1110/faqbot-1/internal/config"
	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/queue/nats"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/resilience"
	"github.com/junozone1110/faqbot-1/internal/observability/logging"
	"github.com/junozone1110/faqbot-1/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("bot", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botMetrics := metrics.NewBotMetrics("bot")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:    "bot",
		Registerer: botMetrics.Registerer(),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	transport, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{
		InboundSubject:     cfg.NATSInboundSubject,
		OutboundSubject:    cfg.NATSOutboundSubject,
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
		Logger:             logger,
	})
	if err != nil {
		logger.Error("nats_connect_failed", "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           botMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("bot_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("bot_metrics_server_failed", "error", err)
		}
	}()

	go bootstrap.RunSweeper(ctx, app.Engine, cfg.SessionSweepInterval, logger)

	worker := bot.NewWorker(app.Engine, transport, bot.WorkerOptions{
		Service:   "bot",
		MaxActive: cfg.BotMaxActiveThreads,
		Metrics:   botMetrics,
		Logger:    logger,
	})

	// Enqueued messages outlive the signal so Drain can finish them.
	workCtx := context.WithoutCancel(ctx)
	err = transport.Subscribe(ctx, func(_ context.Context, msg domain.InboundMessage) {
		worker.Enqueue(workCtx, msg)
	})
	if err != nil {
		logger.Error("bot_subscribe_failed", "error", err)
	}

	logger.Info("bot_draining")
	worker.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("bot_metrics_shutdown_failed", "error", err)
	}
}
