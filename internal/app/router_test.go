package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
	invoicehttp "github.com/odyssey-erp/invoice-worklist/internal/invoicing/http"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/refdata"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/worklist"
	"github.com/odyssey-erp/invoice-worklist/internal/observability"
	"github.com/odyssey-erp/invoice-worklist/internal/shared"
	"github.com/odyssey-erp/invoice-worklist/internal/view"
)

var csrfMeta = regexp.MustCompile(`name="csrf-token" content="([^"]+)"`)

func fakeInvoiceAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/Invoice/Search":
			_, _ = io.WriteString(w, `{"result":[
				{"id":"1","customerToFullName":"Ana Ruiz","no":"INV-0001","creationTime":"2024-03-15T10:00:00","dueDateTime":"2024-04-15T00:00:00Z","amount":150.5,"status":"Paid"},
				{"id":"2","customerToFullName":"Luis Paz","no":"INV-0002","creationTime":"2024-03-16T10:00:00","dueDateTime":"2024-04-16T00:00:00Z","amount":20,"status":"Pending"}
			],"page":0,"rowsPerPage":5,"totalRows":2}`)
		default:
			_, _ = io.WriteString(w, `[]`)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestRouter(t *testing.T) (http.Handler, *shared.SessionManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AppEnv: "development", AppRateLimit: 1000, AppRequestTimeout: 5 * time.Second}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "worklist_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")

	templates, err := view.NewEngine(view.WithLocation(time.UTC))
	require.NoError(t, err)
	metrics := observability.NewMetrics()

	api := fakeInvoiceAPI(t)
	gw := gateway.NewClient(api.URL, "key", 2*time.Second,
		gateway.WithLogger(logger),
		gateway.WithMetrics(gateway.NewMetrics(metrics.Registerer())))
	catalog := refdata.NewCatalog(gw, refdata.WithLogger(logger))
	workspaces := invoicehttp.NewWorkspaces(func() *invoicehttp.Workspace {
		return &invoicehttp.Workspace{
			Worklist: worklist.NewController(gw, worklist.WithLogger(logger), worklist.WithStaleCounter(metrics.StaleResponses())),
			Form:     form.NewOrchestrator(gw, form.WithLogger(logger), form.WithLocation(time.UTC)),
		}
	}, time.Hour, invoicehttp.WithWorkspaceGauge(metrics.Workspaces()))
	handler := invoicehttp.NewHandler(logger, gw, catalog, workspaces, templates, csrf, invoicehttp.WithLocation(time.UTC))

	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		InvoiceHandler: handler,
		Metrics:        metrics,
	}), sessions
}

func TestRouterHealthAndRootRedirect(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/invoices", rr.Header().Get("Location"))
}

func TestRouterWorklistRoundTrip(t *testing.T) {
	router, sessions := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Ana Ruiz")
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessions.CookieName() {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	match := csrfMeta.FindStringSubmatch(rr.Body.String())
	require.Len(t, match, 2)

	post := func(token string) *httptest.ResponseRecorder {
		values := url.Values{"field": {"amount"}}
		if token != "" {
			values.Set(shared.CSRFFormField, token)
		}
		req := httptest.NewRequest(http.MethodPost, "/invoices/sort", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusForbidden, post("").Code)
	rec := post(match[1])
	require.Equal(t, http.StatusSeeOther, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	body := rr.Body.String()
	require.Less(t, strings.Index(body, "Luis Paz"), strings.Index(body, "Ana Ruiz"), "amount ascending puts the smaller invoice first")
}

func TestRouterServesMetricsAndStatic(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "odyssey_worklist_workspaces 1")
	require.Contains(t, rr.Body.String(), "odyssey_gateway_requests_total")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}
