// Package refdata caches the reference lists the invoice screens select from: customers,
// service categories and statuses. Each list is fetched at most once until invalidated.
package refdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qmuntal/stateless"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of a cached list.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "error"
)

const (
	triggerLoad    = "load"
	triggerSucceed = "succeed"
	triggerFail    = "fail"
	triggerReset   = "reset"
)

// Store shares loaded lists across processes. *cache.Versioned satisfies it.
type Store interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error
	Bump(ctx context.Context) error
}

// Loader fetches a fresh copy of the list.
type Loader[T any] func(ctx context.Context) (T, error)

// Snapshot is the observable cache state.
type Snapshot[T any] struct {
	State    State
	Data     T
	Err      error
	LoadedAt time.Time
}

// Cache holds one reference list.
type Cache[T any] struct {
	name   string
	loader Loader[T]
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group

	mu       sync.Mutex
	machine  *stateless.StateMachine
	value    T
	err      error
	loadedAt time.Time
	// generation advances on every Reset. A load started under an older generation
	// never lands in the cache.
	generation uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// WithStore backs the cache with a shared store.
func WithStore(store Store) Option {
	return func(o *options) { o.store = store }
}

// WithTTL expires the in-memory copy after ttl. Zero keeps it until invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New returns an idle cache named name.
func New[T any](name string, loader Loader[T], opts ...Option) *Cache[T] {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache[T]{
		name:    name,
		loader:  loader,
		store:   o.store,
		ttl:     o.ttl,
		logger:  o.logger.With(slog.String("refdata", name)),
		now:     o.now,
		machine: newMachine(),
	}
	return c
}

func newMachine() *stateless.StateMachine {
	machine := stateless.NewStateMachine(StateIdle)

	machine.Configure(StateIdle).
		Permit(triggerLoad, StateLoading).
		Ignore(triggerReset)

	machine.Configure(StateLoading).
		Permit(triggerSucceed, StateLoaded).
		Permit(triggerFail, StateFailed).
		Permit(triggerReset, StateIdle)

	machine.Configure(StateLoaded).
		Permit(triggerLoad, StateLoading).
		Permit(triggerReset, StateIdle)

	machine.Configure(StateFailed).
		Permit(triggerLoad, StateLoading).
		Permit(triggerReset, StateIdle)

	return machine
}

// Name identifies the list.
func (c *Cache[T]) Name() string {
	return c.name
}

// FetchOnce returns the cached list, loading it when nothing fresh is held. Concurrent
// callers share a single load. A failed load is reported and retried on the next call.
func (c *Cache[T]) FetchOnce(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.state() == StateLoaded && c.fresh() {
		value := c.value
		c.mu.Unlock()
		return value, nil
	}
	if c.state() != StateLoading {
		c.fire(triggerLoad)
	}
	gen := c.generation
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	result := c.group.DoChan(c.flightKey(gen), func() (interface{}, error) {
		return c.load(detached, gen)
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops the cached list and bumps the shared store so other processes reload.
func (c *Cache[T]) Invalidate(ctx context.Context) error {
	c.Reset()
	if c.store == nil {
		return nil
	}
	if err := c.store.Bump(ctx); err != nil {
		return fmt.Errorf("refdata: invalidate %s: %w", c.name, err)
	}
	return nil
}

// Reset drops the in-memory copy only. Loads already in flight still answer their callers
// but are not cached, and later callers start a fresh load.
func (c *Cache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group.Forget(c.flightKey(c.generation))
	c.generation++
	c.fire(triggerReset)
	var zero T
	c.value = zero
	c.err = nil
	c.loadedAt = time.Time{}
}

// Snapshot reports the current state without loading.
func (c *Cache[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[T]{State: c.state(), Data: c.value, Err: c.err, LoadedAt: c.loadedAt}
}

func (c *Cache[T]) load(ctx context.Context, gen uint64) (T, error) {
	value, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("reference data load superseded by reset")
		if err != nil {
			var zero T
			return zero, fmt.Errorf("refdata: load %s: %w", c.name, err)
		}
		return value, nil
	}
	if c.state() != StateLoading {
		c.fire(triggerLoad)
	}
	if err != nil {
		c.err = err
		c.fire(triggerFail)
		c.logger.Warn("reference data load failed", slog.Any("error", err))
		var zero T
		return zero, fmt.Errorf("refdata: load %s: %w", c.name, err)
	}
	c.value = value
	c.err = nil
	c.loadedAt = c.now()
	c.fire(triggerSucceed)
	return value, nil
}

func (c *Cache[T]) fetch(ctx context.Context) (T, error) {
	if c.store == nil {
		return c.loader(ctx)
	}
	var value T
	key, err := c.store.BuildKey(ctx, c.name)
	if err != nil {
		c.logger.Warn("reference data store unavailable", slog.Any("error", err))
		return c.loader(ctx)
	}
	err = c.store.FetchJSON(ctx, key, &value, func(ctx context.Context) (interface{}, error) {
		return c.loader(ctx)
	})
	return value, err
}

func (c *Cache[T]) flightKey(gen uint64) string {
	return fmt.Sprintf("%s#%d", c.name, gen)
}

func (c *Cache[T]) fresh() bool {
	return c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl
}

func (c *Cache[T]) state() State {
	return c.machine.MustState().(State)
}

func (c *Cache[T]) fire(trigger string) {
	if err := c.machine.Fire(trigger); err != nil {
		c.logger.Debug("reference data transition rejected",
			slog.String("trigger", trigger),
			slog.String("state", string(c.state())),
			slog.Any("error", err))
	}
}
