package state_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
	"pgregory.net/rapid"

	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/types"
)

func committedStore(t require.TestingT, ops ...types.WriteOp) *state.Store {
	store := state.NewStore(dbm.NewMemDB())
	_, err := store.Commit(types.NewWriteSet(ops...))
	require.NoError(t, err)
	return store
}

func TestBlockDataCacheReadThrough(t *testing.T) {
	store := committedStore(t, types.WriteOp{AccessPath: aliceGas, Value: []byte("stored")})
	cache := state.NewBlockDataCache(store)

	bz, ok, err := cache.Read(aliceGas)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("stored"), bz)

	cache.Write(aliceGas, []byte("buffered"))
	bz, ok, err = cache.Read(aliceGas)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("buffered"), bz)

	cache.Delete(aliceGas)
	_, ok, err = cache.Read(aliceGas)
	require.NoError(t, err)
	assert.False(t, ok)

	// the store is untouched until commit
	stored, err := store.Get(aliceGas)
	require.NoError(t, err)
	assert.Equal(t, []byte("stored"), stored)

	want := types.WriteSet{{AccessPath: aliceGas, Deletion: true}}
	if diff := cmp.Diff(want, cache.WriteSet()); diff != "" {
		t.Fatalf("write set mismatch (-want +got):\n%s", diff)
	}
}

// Every read following a write to the same path returns the written value,
// whatever the store holds.
func TestBlockDataCacheReadYourWrites(t *testing.T) {
	paths := []types.AccessPath{
		aliceGas,
		bobGas,
		types.ResourcePath(alice, types.BlockMetadataTag),
		types.CodePath(types.SystemModuleID),
	}
	rapid.Check(t, func(t *rapid.T) {
		var committed []types.WriteOp
		for _, ap := range paths {
			if rapid.Bool().Draw(t, "stored").(bool) {
				committed = append(committed, types.WriteOp{AccessPath: ap, Value: []byte("old")})
			}
		}
		cache := state.NewBlockDataCache(committedStore(t, committed...))
		tx := state.NewTxCache(cache)
		model := make(map[int][]byte)

		steps := rapid.IntRange(1, 50).Draw(t, "steps").(int)
		for i := 0; i < steps; i++ {
			idx := rapid.IntRange(0, len(paths)-1).Draw(t, "path").(int)
			ap := paths[idx]
			if rapid.Bool().Draw(t, "delete").(bool) {
				tx.Delete(ap)
				model[idx] = nil
			} else {
				v := rapid.SliceOfN(rapid.Byte(), 1, 8).Draw(t, "value").([]byte)
				tx.Write(ap, v)
				model[idx] = v
			}

			bz, ok, err := tx.Read(ap)
			require.NoError(t, err)
			if model[idx] == nil {
				require.False(t, ok)
			} else {
				require.True(t, ok)
				require.Equal(t, model[idx], bz)
			}
		}

		// promoting the transaction's writes keeps the same view
		cache.ApplyWriteSet(tx.WriteSet())
		for idx, want := range model {
			bz, ok, err := cache.Read(paths[idx])
			require.NoError(t, err)
			require.Equal(t, want != nil, ok)
			if want != nil {
				require.Equal(t, want, bz)
			}
		}
		require.Equal(t, len(model), cache.Len())
	})
}

func TestTxCacheDiscardLeavesBlockUntouched(t *testing.T) {
	cache := state.NewBlockDataCache(committedStore(t))
	tx := state.NewTxCache(cache)
	tx.Write(aliceGas, []byte{1})
	tx.Delete(bobGas)
	assert.Len(t, tx.WriteSet(), 2)

	// dropping tx is the discard
	assert.Equal(t, 0, cache.Len())
	_, ok, err := cache.Read(aliceGas)
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingView struct{}

var errViewDown = errors.New("view down")

func (failingView) Get(types.AccessPath) ([]byte, error) { return nil, errViewDown }

func TestBlockDataCachePropagatesViewErrors(t *testing.T) {
	cache := state.NewBlockDataCache(failingView{})
	_, _, err := cache.Read(aliceGas)
	assert.ErrorIs(t, err, errViewDown)

	cache.Write(aliceGas, []byte{1})
	_, ok, err := cache.Read(aliceGas)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBlockDataCacheConcurrentReaders(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	cache := state.NewBlockDataCache(committedStore(t, types.WriteOp{AccessPath: bobGas, Value: []byte("bob")}))
	cache.Write(aliceGas, []byte("alice"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bz, ok, err := cache.Read(aliceGas)
				if assert.NoError(t, err) && assert.True(t, ok) {
					assert.Equal(t, []byte("alice"), bz)
				}
				bz, _, err = cache.Read(bobGas)
				if assert.NoError(t, err) {
					assert.Equal(t, []byte("bob"), bz)
				}
			}
		}()
	}
	wg.Wait()
}
