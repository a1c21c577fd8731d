package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/vmruntime/crypto"
	"github.com/tendermint/vmruntime/internal/executor"
	"github.com/tendermint/vmruntime/internal/genesis"
	"github.com/tendermint/vmruntime/internal/modules"
	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

func blockMetadata(ts uint64, proposer types.AccountAddress) types.BlockMetadata {
	return types.BlockMetadata{
		ID:                 crypto.Sha3(vm.EncodeValue(vm.U64(ts))),
		Timestamp:          ts,
		PreviousBlockVotes: []byte("votes"),
		Proposer:           proposer,
	}
}

type countingResolver struct {
	vm.ModuleResolver
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, id types.ModuleID) (*vm.Module, error) {
	r.calls++
	return r.ModuleResolver.Resolve(ctx, id)
}

func TestProcessBlockMetadataMalformed(t *testing.T) {
	store, cache := setup(t, nil)
	resolver := &countingResolver{ModuleResolver: cache}
	valid := blockMetadata(10, bob).Encode()

	for name, raw := range map[string][]byte{
		"empty":     nil,
		"truncated": valid[:len(valid)-1],
		"trailing":  append(append([]byte{}, valid...), 0),
	} {
		out := executor.ProcessBlockMetadata(context.Background(), raw, resolver, state.NewBlockDataCache(store))
		assert.True(t, out.IsDiscarded(), name)
		assert.Equal(t, types.StatusMalformed, out.Status.Status.Code, name)
		assert.Zero(t, out.GasUsed, name)
		assert.Empty(t, out.WriteSet, name)
	}
	assert.Zero(t, resolver.calls)
}

func readBlockMetadata(t *testing.T, r state.Reader) []vm.Value {
	t.Helper()
	bz, ok, err := r.Read(types.ResourcePath(types.SystemAddress, types.BlockMetadataTag))
	require.NoError(t, err)
	require.True(t, ok)
	v, err := vm.DecodeValue(bz)
	require.NoError(t, err)
	require.True(t, v.IsResource())
	return v.Fields()
}

func TestProcessBlockMetadataRunsPrologue(t *testing.T) {
	store, cache := setup(t, nil)
	blockCache := state.NewBlockDataCache(store)
	ctx := context.Background()

	first := blockMetadata(100, bob)
	out := executor.ProcessBlockMetadata(ctx, first.Encode(), cache, blockCache)
	require.False(t, out.IsDiscarded(), out.Status.String())
	assert.Equal(t, types.StatusExecuted, out.Status.Status.Code)
	assert.Zero(t, out.GasUsed)
	require.Len(t, out.WriteSet, 1)
	blockCache.ApplyWriteSet(out.WriteSet)

	fields := readBlockMetadata(t, blockCache)
	require.Len(t, fields, 5)
	assert.True(t, fields[0].Equal(vm.U64(1)))
	assert.True(t, fields[1].Equal(vm.U64(100)))
	assert.True(t, fields[2].Equal(vm.ByteArray(first.ID.Bytes())))
	assert.True(t, fields[3].Equal(vm.ByteArray([]byte("votes"))))
	assert.True(t, fields[4].Equal(vm.Address(bob)))

	out = executor.ProcessBlockMetadata(ctx, blockMetadata(200, carol).Encode(), cache, blockCache)
	require.False(t, out.IsDiscarded(), out.Status.String())
	blockCache.ApplyWriteSet(out.WriteSet)
	fields = readBlockMetadata(t, blockCache)
	assert.True(t, fields[0].Equal(vm.U64(2)))
	assert.True(t, fields[4].Equal(vm.Address(carol)))

	for _, ts := range []uint64{200, 150} {
		out = executor.ProcessBlockMetadata(ctx, blockMetadata(ts, carol).Encode(), cache, blockCache)
		require.True(t, out.IsDiscarded())
		assert.Empty(t, out.WriteSet)
		assert.Equal(t, types.StatusAborted, out.Status.Status.Code)
		require.NotNil(t, out.Status.Status.SubStatus)
		assert.EqualValues(t, genesis.AbortTimestampNotIncreasing, *out.Status.Status.SubStatus)
	}
}

// expensivePrologue replaces the system module with one whose prologue
// spins timestamp times.
func expensivePrologue() *vm.Module {
	b := vm.NewModuleBuilder(types.SystemModuleID)
	b.Function(types.BlockPrologueName, true,
		[]vm.ValueKind{vm.KindU64, vm.KindByteArray, vm.KindByteArray, vm.KindAddress}, nil, nil).
		Label("top").
		Op(vm.CopyLoc, 0).
		Op(vm.LdU64, 0).
		Op(vm.Eq).
		Jump(vm.BrTrue, "done").
		Op(vm.MoveLoc, 0).
		Op(vm.LdU64, 1).
		Op(vm.Sub).
		Op(vm.StLoc, 0).
		Jump(vm.Branch, "top").
		Label("done").
		Op(vm.Ret)
	return b.MustBuild()
}

func TestPrologueNeverRunsOutOfGas(t *testing.T) {
	store := state.NewStore(dbm.NewMemDB())
	_, err := store.Commit(types.NewWriteSet(modules.PublishOp(expensivePrologue())))
	require.NoError(t, err)
	cache := modules.NewCache(modules.NewStateStore(store))

	out := executor.ProcessBlockMetadata(context.Background(), blockMetadata(200000, bob).Encode(),
		cache, state.NewBlockDataCache(store))
	require.False(t, out.IsDiscarded(), out.Status.String())
	assert.Zero(t, out.GasUsed)
	assert.Empty(t, out.WriteSet)
}

func TestProcessBlockMetadataWithoutSystemModule(t *testing.T) {
	store := state.NewStore(dbm.NewMemDB())
	cache := modules.NewCache(modules.NewStateStore(store))
	out := executor.ProcessBlockMetadata(context.Background(), blockMetadata(1, bob).Encode(),
		cache, state.NewBlockDataCache(store))
	assert.True(t, out.IsDiscarded())
	assert.Equal(t, types.StatusLinkerError, out.Status.Status.Code)
}
