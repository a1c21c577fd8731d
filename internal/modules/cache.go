package modules

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tendermint/vmruntime/libs/log"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

// Store loads raw module blobs. It reports false when no module is
// published under id.
type Store interface {
	Load(id types.ModuleID) ([]byte, bool, error)
}

// Cache is the process-wide module cache. Modules are loaded from the
// Store on first use, verified, and kept for the life of the cache.
// Concurrent first loads of the same module share one load, and a module
// becomes visible only once it is verified.
//
// Cache is safe for concurrent use.
type Cache struct {
	store   Store
	logger  log.Logger
	metrics *Metrics

	group singleflight.Group

	mtx     sync.RWMutex
	modules map[types.ModuleID]*vm.Module
}

var _ vm.ModuleResolver = (*Cache)(nil)

// Option sets an optional parameter on the Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Cache) { c.metrics = metrics }
}

// NewCache returns an empty cache over store.
func NewCache(store Store, options ...Option) *Cache {
	c := &Cache{
		store:   store,
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
		modules: make(map[types.ModuleID]*vm.Module),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Cache) get(id types.ModuleID) (*vm.Module, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	m, ok := c.modules[id]
	return m, ok
}

// Resolve returns the module published as id. Every call for the same id
// returns the same *vm.Module.
//
// Unknown modules fail with LINKER_ERROR, undecodable ones with
// CODE_DESERIALIZATION_ERROR and ones failing verification with
// VERIFICATION_ERROR. Failures are not cached.
func (c *Cache) Resolve(ctx context.Context, id types.ModuleID) (*vm.Module, error) {
	if m, ok := c.get(id); ok {
		c.metrics.Hits.Add(1)
		return m, nil
	}
	c.metrics.Misses.Add(1)

	ch := c.group.DoChan(id.String(), func() (interface{}, error) {
		return c.load(id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*vm.Module), nil
	}
}

func (c *Cache) load(id types.ModuleID) (*vm.Module, error) {
	// a previous flight may have finished between the miss and now
	if m, ok := c.get(id); ok {
		return m, nil
	}

	start := time.Now()
	blob, ok, err := c.store.Load(id)
	if err != nil {
		return nil, types.NewVMStatus(types.StatusStorageError).WithMessage("loading %v: %v", id, err)
	}
	if !ok {
		return nil, types.NewVMStatus(types.StatusLinkerError).WithMessage("module %v not found", id)
	}

	m, err := vm.DecodeModule(blob)
	if err != nil {
		return nil, types.NewVMStatus(types.StatusCodeDeserializationError).WithMessage("%v: %v", id, err)
	}
	if m.ID != id {
		return nil, types.NewVMStatus(types.StatusVerificationError).
			WithMessage("module stored as %v declares itself %v", id, m.ID)
	}
	if err := vm.VerifyModule(m); err != nil {
		return nil, err
	}

	c.mtx.Lock()
	c.modules[id] = m
	size := len(c.modules)
	c.mtx.Unlock()

	c.metrics.LoadDurationSeconds.Observe(time.Since(start).Seconds())
	c.metrics.Size.Set(float64(size))
	c.logger.Debug("loaded module", "module", id, "bytes", len(blob), "functions", len(m.Functions))
	return m, nil
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return len(c.modules)
}
