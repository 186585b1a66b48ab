package invoicehttp

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/worklist"
)

// Workspace is the worklist and the open draft of one browser session.
type Workspace struct {
	Worklist *worklist.Controller
	Form     *form.Orchestrator

	loaded atomic.Bool
}

// WorkspaceFactory builds the state for a session seen for the first time.
type WorkspaceFactory func() *Workspace

type workspaceEntry struct {
	ws       *Workspace
	lastSeen time.Time
}

// Workspaces keeps one Workspace per session id and evicts the idle ones.
type Workspaces struct {
	factory WorkspaceFactory
	ttl     time.Duration
	now     func() time.Time
	gauge   prometheus.Gauge
	logger  *slog.Logger

	mu    sync.Mutex
	items map[string]*workspaceEntry
}

// WorkspaceOption configures Workspaces.
type WorkspaceOption func(*Workspaces)

// WithWorkspaceClock overrides time.Now.
func WithWorkspaceClock(now func() time.Time) WorkspaceOption {
	return func(w *Workspaces) {
		if now != nil {
			w.now = now
		}
	}
}

// WithWorkspaceGauge reports the registry size.
func WithWorkspaceGauge(gauge prometheus.Gauge) WorkspaceOption {
	return func(w *Workspaces) { w.gauge = gauge }
}

// WithWorkspaceLogger sets the logger.
func WithWorkspaceLogger(logger *slog.Logger) WorkspaceOption {
	return func(w *Workspaces) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorkspaces returns an empty registry. A non-positive ttl disables eviction.
func NewWorkspaces(factory WorkspaceFactory, ttl time.Duration, opts ...WorkspaceOption) *Workspaces {
	w := &Workspaces{
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.Default(),
		items:   make(map[string]*workspaceEntry),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Get returns the workspace for id, creating it on first use.
func (w *Workspaces) Get(id string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	if entry, ok := w.items[id]; ok {
		entry.lastSeen = now
		return entry.ws
	}
	entry := &workspaceEntry{ws: w.factory(), lastSeen: now}
	w.items[id] = entry
	w.report()
	return entry.ws
}

// Len is the number of live workspaces.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Sweep drops workspaces idle for longer than the ttl and returns how many went.
func (w *Workspaces) Sweep() int {
	if w.ttl <= 0 {
		return 0
	}
	w.mu.Lock()
	cutoff := w.now().Add(-w.ttl)
	var evicted []*Workspace
	for id, entry := range w.items {
		if entry.lastSeen.Before(cutoff) {
			evicted = append(evicted, entry.ws)
			delete(w.items, id)
		}
	}
	w.report()
	w.mu.Unlock()

	for _, ws := range evicted {
		ws.Worklist.Close()
	}
	if len(evicted) > 0 {
		w.logger.Debug("evicted idle workspaces", slog.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (w *Workspaces) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

func (w *Workspaces) report() {
	if w.gauge != nil {
		w.gauge.Set(float64(len(w.items)))
	}
}
