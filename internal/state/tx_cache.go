package state

import (
	"github.com/tendermint/vmruntime/types"
)

// TxCache buffers the writes of a single transaction over the block's
// cache. It is dropped when the transaction is discarded and turned into
// the transaction's write-set when it is kept.
//
// Not goroutine safe.
type TxCache struct {
	backend Reader
	writes  map[string]types.WriteOp
}

func NewTxCache(backend Reader) *TxCache {
	return &TxCache{
		backend: backend,
		writes:  make(map[string]types.WriteOp),
	}
}

func (cache *TxCache) Read(ap types.AccessPath) ([]byte, bool, error) {
	if op, ok := cache.writes[string(ap.Key())]; ok {
		if op.Deletion {
			return nil, false, nil
		}
		return op.Value, true, nil
	}
	return cache.backend.Read(ap)
}

func (cache *TxCache) Write(ap types.AccessPath, value []byte) {
	cache.writes[string(ap.Key())] = types.WriteOp{AccessPath: ap, Value: value}
}

func (cache *TxCache) Delete(ap types.AccessPath) {
	cache.writes[string(ap.Key())] = types.WriteOp{AccessPath: ap, Deletion: true}
}

// WriteSet returns the transaction's writes sorted by access path.
func (cache *TxCache) WriteSet() types.WriteSet {
	return writeSetFromMap(cache.writes)
}
