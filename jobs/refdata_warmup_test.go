package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/refdata"
	jobmetrics "github.com/odyssey-erp/invoice-worklist/internal/jobs"
	"github.com/odyssey-erp/invoice-worklist/internal/platform/cache"
)

type stubSource struct {
	customers  int32
	failStatus bool
}

func (s *stubSource) CustomerList(context.Context) ([]invoicing.Customer, error) {
	atomic.AddInt32(&s.customers, 1)
	return []invoicing.Customer{{ID: "1", Name: "Ana"}, {ID: "2", Name: "Luis"}}, nil
}

func (s *stubSource) CategoryServiceList(context.Context) ([]invoicing.CategoryService, error) {
	return []invoicing.CategoryService{{ID: "c1", Name: "Hosting"}}, nil
}

func (s *stubSource) StatusList(context.Context) ([]invoicing.StatusOption, error) {
	if s.failStatus {
		return nil, errors.New("status endpoint down")
	}
	return []invoicing.StatusOption{{Text: "Pagado", Value: invoicing.StatusPaid}}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func task(t *testing.T, payload RefdataWarmupPayload) *asynq.Task {
	t.Helper()
	tk, err := NewRefdataWarmupTask(payload)
	require.NoError(t, err)
	return tk
}

func TestRefdataWarmupFillsSharedStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewVersioned(client, "refdata", time.Hour)

	source := &stubSource{}
	catalog := refdata.NewCatalog(source, refdata.WithStore(store), refdata.WithLogger(quietLogger()))
	job := NewRefdataWarmupJob(catalog, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	ctx := context.Background()
	require.NoError(t, job.Handle(ctx, task(t, RefdataWarmupPayload{})))
	require.EqualValues(t, 1, atomic.LoadInt32(&source.customers))
	require.True(t, mr.Exists("refdata:customers:1"))

	require.NoError(t, job.Handle(ctx, task(t, RefdataWarmupPayload{Invalidate: true, Reason: "cron"})))
	require.EqualValues(t, 2, atomic.LoadInt32(&source.customers))
	require.True(t, mr.Exists("refdata:customers:2"))
}

func TestRefdataWarmupReportsPartialFailure(t *testing.T) {
	catalog := refdata.NewCatalog(&stubSource{failStatus: true}, refdata.WithLogger(quietLogger()))
	job := NewRefdataWarmupJob(catalog, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), task(t, RefdataWarmupPayload{}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "status endpoint down")
	require.Equal(t, refdata.StateLoaded, catalog.Customers.Snapshot().State)
}

func TestRefdataWarmupSkipsRetryOnBadPayload(t *testing.T) {
	catalog := refdata.NewCatalog(&stubSource{}, refdata.WithLogger(quietLogger()))
	job := NewRefdataWarmupJob(catalog, quietLogger(), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskRefdataWarmup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, "", quietLogger()).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body QueueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
}
