package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/refdata"
	jobmetrics "github.com/odyssey-erp/invoice-worklist/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RefdataWarmupJob loads customers, categories and statuses into the shared store so
// consoles start from a warm copy.
type RefdataWarmupJob struct {
	Catalog *refdata.Catalog
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewRefdataWarmupJob wires dependencies for the warm-up handler.
func NewRefdataWarmupJob(catalog *refdata.Catalog, logger *slog.Logger, metrics *jobmetrics.Metrics) *RefdataWarmupJob {
	return &RefdataWarmupJob{Catalog: catalog, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes refdata warm-up tasks.
func (j *RefdataWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Catalog == nil {
		return errors.New("refdata warmup: handler not configured")
	}
	var payload RefdataWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskRefdataWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	logger := j.logger().With(slog.Bool("invalidate", payload.Invalidate))
	if payload.Reason != "" {
		logger = logger.With(slog.String("reason", payload.Reason))
	}
	start := time.Now()
	logger.Info("starting refdata warmup")

	if payload.Invalidate {
		if err := j.Catalog.Invalidate(ctx); err != nil {
			logger.Error("invalidate refdata", slog.Any("error", err))
			return err
		}
	}
	err := j.Catalog.WarmUp(ctx)
	j.recordSizes()
	if err != nil {
		logger.Error("refdata warmup incomplete", slog.Any("error", err))
		return err
	}
	logger.Info("completed refdata warmup", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *RefdataWarmupJob) recordSizes() {
	m := j.metrics()
	m.SetRefdataItems(j.Catalog.Customers.Name(), len(j.Catalog.Customers.Snapshot().Data))
	m.SetRefdataItems(j.Catalog.Categories.Name(), len(j.Catalog.Categories.Snapshot().Data))
	m.SetRefdataItems(j.Catalog.Statuses.Name(), len(j.Catalog.Statuses.Snapshot().Data))
}

func (j *RefdataWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRefdataWarmup))
	}
	return slog.Default().With(slog.String("job", TaskRefdataWarmup))
}

func (j *RefdataWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
