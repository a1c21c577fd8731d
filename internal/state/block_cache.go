package state

import (
	"sync"

	"github.com/tendermint/vmruntime/types"
)

// Reader is the read side shared by the caches.
type Reader interface {
	Read(ap types.AccessPath) ([]byte, bool, error)
}

// BlockDataCache buffers the writes of one block over a read-only view of
// committed state. Reads see buffered writes and deletions first. The view
// is never written; the buffered write-set is handed to Store.Commit when
// the block is done.
//
// A BlockDataCache must not outlive its block. It is safe for concurrent
// readers; writes are applied by the block executor in block order.
type BlockDataCache struct {
	view StateView

	mtx    sync.RWMutex
	writes map[string]types.WriteOp
}

var _ Reader = (*BlockDataCache)(nil)

func NewBlockDataCache(view StateView) *BlockDataCache {
	return &BlockDataCache{
		view:   view,
		writes: make(map[string]types.WriteOp),
	}
}

// Read returns the value at ap and whether it exists.
func (cache *BlockDataCache) Read(ap types.AccessPath) ([]byte, bool, error) {
	cache.mtx.RLock()
	op, ok := cache.writes[string(ap.Key())]
	cache.mtx.RUnlock()
	if ok {
		if op.Deletion {
			return nil, false, nil
		}
		return op.Value, true, nil
	}

	bz, err := cache.view.Get(ap)
	if err != nil {
		return nil, false, err
	}
	return bz, bz != nil, nil
}

func (cache *BlockDataCache) Write(ap types.AccessPath, value []byte) {
	cache.set(types.WriteOp{AccessPath: ap, Value: value})
}

func (cache *BlockDataCache) Delete(ap types.AccessPath) {
	cache.set(types.WriteOp{AccessPath: ap, Deletion: true})
}

func (cache *BlockDataCache) set(op types.WriteOp) {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()
	cache.writes[string(op.AccessPath.Key())] = op
}

// ApplyWriteSet buffers every op of ws, in order.
func (cache *BlockDataCache) ApplyWriteSet(ws types.WriteSet) {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()
	for _, op := range ws {
		cache.writes[string(op.AccessPath.Key())] = op
	}
}

// WriteSet returns the buffered writes sorted by access path.
func (cache *BlockDataCache) WriteSet() types.WriteSet {
	cache.mtx.RLock()
	defer cache.mtx.RUnlock()
	return writeSetFromMap(cache.writes)
}

// Len returns the number of buffered access paths.
func (cache *BlockDataCache) Len() int {
	cache.mtx.RLock()
	defer cache.mtx.RUnlock()
	return len(cache.writes)
}

func writeSetFromMap(writes map[string]types.WriteOp) types.WriteSet {
	ops := make([]types.WriteOp, 0, len(writes))
	for _, op := range writes {
		ops = append(ops, op)
	}
	return types.NewWriteSet(ops...)
}
