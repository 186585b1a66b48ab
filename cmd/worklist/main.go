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

	"github.com/odyssey-erp/invoice-worklist/internal/app"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
	invoicehttp "github.com/odyssey-erp/invoice-worklist/internal/invoicing/http"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/query"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/refdata"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/worklist"
	"github.com/odyssey-erp/invoice-worklist/internal/observability"
	"github.com/odyssey-erp/invoice-worklist/internal/platform/cache"
	"github.com/odyssey-erp/invoice-worklist/internal/shared"
	"github.com/odyssey-erp/invoice-worklist/internal/view"
	"github.com/odyssey-erp/invoice-worklist/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("resolve timezone", slog.Any("error", err))
		os.Exit(1)
	}

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

	sessionManager := shared.NewSessionManager(redisClient, "worklist_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine(view.WithLocation(loc))
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	invoiceAPI := gateway.NewClient(cfg.InvoiceAPIURL, cfg.InvoiceAPIKey, cfg.InvoiceAPITimeout,
		gateway.WithLogger(logger),
		gateway.WithMetrics(gateway.NewMetrics(metrics.Registerer())))

	refdataStore := cache.NewVersioned(redisClient, "refdata", cfg.RefdataTTL)
	catalog := refdata.NewCatalog(invoiceAPI,
		refdata.WithStore(refdataStore),
		refdata.WithTTL(cfg.RefdataTTL),
		refdata.WithLogger(logger))
	if err := refdataStore.Subscribe(ctx, func(version int64) {
		logger.Debug("reference data bumped", slog.Int64("version", version))
		catalog.Reset()
	}); err != nil {
		logger.Warn("subscribe refdata bumps", slog.Any("error", err))
	}

	builder := query.NewBuilder(query.WithLocation(loc))
	workspaces := invoicehttp.NewWorkspaces(func() *invoicehttp.Workspace {
		return &invoicehttp.Workspace{
			Worklist: worklist.NewController(invoiceAPI,
				worklist.WithLogger(logger),
				worklist.WithBuilder(builder),
				worklist.WithDefaultPageSize(cfg.WorklistDefaultPageSize),
				worklist.WithSearchDebounce(cfg.WorklistSearchDebounce),
				worklist.WithStaleCounter(metrics.StaleResponses())),
			Form: form.NewOrchestrator(invoiceAPI,
				form.WithLogger(logger),
				form.WithLocation(loc)),
		}
	}, cfg.WorklistIdleTTL,
		invoicehttp.WithWorkspaceGauge(metrics.Workspaces()),
		invoicehttp.WithWorkspaceLogger(logger))
	go workspaces.Run(ctx, time.Minute)

	invoiceHandler := invoicehttp.NewHandler(logger, invoiceAPI, catalog, workspaces, templates, csrfManager,
		invoicehttp.WithLocation(loc),
		invoicehttp.WithSearchDebounce(cfg.WorklistSearchDebounce))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, cfg.RefdataWarmupQueue, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		InvoiceHandler: invoiceHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("worklist console listening", slog.String("addr", cfg.AppAddr), slog.String("invoice_api", cfg.InvoiceAPIURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
