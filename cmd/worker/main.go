package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/invoice-worklist/internal/app"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/refdata"
	jobmetrics "github.com/odyssey-erp/invoice-worklist/internal/jobs"
	"github.com/odyssey-erp/invoice-worklist/internal/platform/cache"
	"github.com/odyssey-erp/invoice-worklist/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := jobmetrics.NewMetrics(registry)

	invoiceAPI := gateway.NewClient(cfg.InvoiceAPIURL, cfg.InvoiceAPIKey, cfg.InvoiceAPITimeout,
		gateway.WithLogger(logger),
		gateway.WithMetrics(gateway.NewMetrics(registry)))
	catalog := refdata.NewCatalog(invoiceAPI,
		refdata.WithStore(cache.NewVersioned(redisClient, "refdata", cfg.RefdataTTL)),
		refdata.WithTTL(cfg.RefdataTTL),
		refdata.WithLogger(logger))
	warmupJob := jobs.NewRefdataWarmupJob(catalog, logger, metrics)

	warmupTask, err := jobs.NewRefdataWarmupTask(jobs.RefdataWarmupPayload{Invalidate: true, Reason: "schedule"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Queue:       cfg.RefdataWarmupQueue,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRefdataWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RefdataWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("refdata worker started", slog.String("queue", cfg.RefdataWarmupQueue), slog.String("cron", cfg.RefdataWarmupCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
