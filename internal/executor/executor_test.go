package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
	"pgregory.net/rapid"

	"github.com/tendermint/vmruntime/internal/executor"
	"github.com/tendermint/vmruntime/internal/genesis"
	"github.com/tendermint/vmruntime/internal/modules"
	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

var (
	counterID = types.NewModuleID(types.MustParseAddress("0xc0ffee"), "Counter")
	alice     = types.MustParseAddress("0xa11ce")
	bob       = types.MustParseAddress("0xb0b")
	carol     = types.MustParseAddress("0xca201")
	dave      = types.MustParseAddress("0xda7e")
)

func counterModule() *vm.Module {
	b := vm.NewModuleBuilder(counterID)
	counter := b.Struct("Counter", true, vm.KindU64)
	u64 := []vm.ValueKind{vm.KindU64}

	b.Function("publish", true, u64, nil, nil).
		Op(vm.MoveLoc, 0).
		Op(vm.Pack, counter).
		Op(vm.MoveToSender, counter).
		Op(vm.Ret)
	b.Function("spin", true, u64, nil, nil).
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
	b.Function("fail", true, u64, nil, nil).
		Op(vm.MoveLoc, 0).
		Op(vm.Abort)
	b.Function("secret", false, nil, nil, nil).
		Op(vm.Ret)
	b.Function("leak", true, nil, []vm.ValueKind{vm.KindStruct}, nil).
		Op(vm.LdU64, 1).
		Op(vm.Pack, counter).
		Op(vm.Ret)
	return b.MustBuild()
}

// setup returns a store holding the genesis modules, the counter module
// and the given balances, with a cache over it.
func setup(t require.TestingT, funds map[types.AccountAddress]uint64) (*state.Store, *modules.Cache) {
	store := state.NewStore(dbm.NewMemDB())
	_, err := genesis.Install(store, funds)
	require.NoError(t, err)
	_, err = store.Commit(types.NewWriteSet(modules.PublishOp(counterModule())))
	require.NoError(t, err)
	return store, modules.NewCache(modules.NewStateStore(store))
}

func balanceOf(t require.TestingT, r state.Reader, addr types.AccountAddress) uint64 {
	bz, ok, err := r.Read(genesis.GasAccountPath(addr))
	require.NoError(t, err)
	if !ok {
		return 0
	}
	balance, err := genesis.DecodeGasAccount(bz)
	require.NoError(t, err)
	return balance
}

func TestExecuteFunctionFailuresDiscard(t *testing.T) {
	store, cache := setup(t, nil)
	meta := types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000, GasUnitPrice: 1}

	testCases := []struct {
		name   string
		module types.ModuleID
		fn     string
		args   []vm.Value
		status types.StatusCode
	}{
		{"unknown module", types.NewModuleID(alice, "Nope"), "f", nil, types.StatusLinkerError},
		{"unknown function", counterID, "nope", nil, types.StatusFunctionNotFound},
		{"private function", counterID, "secret", nil, types.StatusLinkerError},
		{"arity", counterID, "spin", nil, types.StatusNumberOfArgumentsMismatch},
		{"argument type", counterID, "spin", []vm.Value{vm.Bool(true)}, types.StatusTypeMismatch},
		{"abort", counterID, "fail", []vm.Value{vm.U64(42)}, types.StatusAborted},
		{"out of gas", counterID, "spin", []vm.Value{vm.U64(1 << 20)}, types.StatusOutOfGas},
		{"resource returned", counterID, "leak", nil, types.StatusUnknownInvariantViolation},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			blockCache := state.NewBlockDataCache(store)
			exec := executor.New(cache, vm.DefaultCostTable(), blockCache, meta)
			err := exec.ExecuteFunction(context.Background(), tc.module, tc.fn, tc.args)
			require.Error(t, err)

			out := exec.DiscardErrorOutput(err)
			assert.True(t, out.IsDiscarded())
			assert.Empty(t, out.WriteSet)
			assert.Equal(t, tc.status, out.Status.Status.Code)
			assert.Zero(t, blockCache.Len())
		})
	}
}

func TestAbortKeepsSubStatus(t *testing.T) {
	store, cache := setup(t, nil)
	exec := executor.New(cache, vm.DefaultCostTable(), state.NewBlockDataCache(store),
		types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000})
	err := exec.ExecuteFunction(context.Background(), counterID, "fail", []vm.Value{vm.U64(42)})
	out := exec.DiscardErrorOutput(err)
	require.NotNil(t, out.Status.Status.SubStatus)
	assert.EqualValues(t, 42, *out.Status.Status.SubStatus)
	assert.NotZero(t, out.GasUsed)
}

func TestDiscardErrorOutputMapsForeignErrors(t *testing.T) {
	store, cache := setup(t, nil)
	exec := executor.New(cache, vm.DefaultCostTable(), state.NewBlockDataCache(store), types.TransactionMetadata{})
	out := exec.DiscardErrorOutput(assert.AnError)
	assert.Equal(t, types.StatusUnknownInvariantViolation, out.Status.Status.Code)
	assert.Contains(t, out.Status.Status.Message, assert.AnError.Error())
}

func TestTransactionCleanupKeepsWrites(t *testing.T) {
	store, cache := setup(t, map[types.AccountAddress]uint64{alice: 1000})
	blockCache := state.NewBlockDataCache(store)
	exec := executor.New(cache, vm.DefaultCostTable(), blockCache,
		types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000, GasUnitPrice: 2})
	require.NoError(t, exec.ExecuteFunction(context.Background(), counterID, "publish", []vm.Value{vm.U64(7)}))

	out := exec.TransactionCleanup([]types.AccountAddress{bob})
	require.False(t, out.IsDiscarded())
	assert.Equal(t, types.StatusExecuted, out.Status.Status.Code)
	require.NotZero(t, out.GasUsed)

	blockCache.ApplyWriteSet(out.WriteSet)
	fee := out.GasUsed * 2
	assert.Equal(t, 1000-fee, balanceOf(t, blockCache, alice))
	assert.Equal(t, fee, balanceOf(t, blockCache, bob))

	tag := types.StructTag{Module: counterID, Name: "Counter"}
	bz, ok, err := blockCache.Read(types.ResourcePath(alice, tag))
	require.NoError(t, err)
	require.True(t, ok)
	v, err := vm.DecodeValue(bz)
	require.NoError(t, err)
	assert.True(t, v.Equal(vm.Struct(true, vm.U64(7))))
}

func TestTransactionCleanupSplitsFee(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		recipients := []types.AccountAddress{bob, carol, dave}[:rapid.IntRange(1, 3).Draw(t, "recipients").(int)]
		price := rapid.Uint64Range(0, 7).Draw(t, "price").(uint64)
		spins := rapid.Uint64Range(0, 20).Draw(t, "spins").(uint64)

		store, cache := setup(t, map[types.AccountAddress]uint64{alice: 1 << 20, bob: 5})
		blockCache := state.NewBlockDataCache(store)
		exec := executor.New(cache, vm.DefaultCostTable(), blockCache,
			types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000, GasUnitPrice: price})
		require.NoError(t, exec.ExecuteFunction(context.Background(), counterID, "spin", []vm.Value{vm.U64(spins)}))
		out := exec.TransactionCleanup(recipients)
		require.False(t, out.IsDiscarded())
		blockCache.ApplyWriteSet(out.WriteSet)

		fee := out.GasUsed * price
		n := uint64(len(recipients))
		require.Equal(t, uint64(1<<20)-fee, balanceOf(t, blockCache, alice))
		require.Equal(t, 5+fee/n+fee%n, balanceOf(t, blockCache, bob))
		for _, r := range recipients[1:] {
			require.Equal(t, fee/n, balanceOf(t, blockCache, r))
		}
	})
}

func TestInsufficientBalance(t *testing.T) {
	store, cache := setup(t, map[types.AccountAddress]uint64{alice: 10})
	meta := types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000, GasUnitPrice: 1}

	exec := executor.New(cache, vm.DefaultCostTable(), state.NewBlockDataCache(store), meta)
	err := exec.CheckGasBalance()
	assert.Equal(t, types.StatusInsufficientBalanceForTransactionFee, types.StatusOf(err).Code)

	// a fee beyond the balance discards even when the cap was not checked
	exec = executor.New(cache, vm.DefaultCostTable(), state.NewBlockDataCache(store), meta)
	require.NoError(t, exec.ExecuteFunction(context.Background(), counterID, "spin", []vm.Value{vm.U64(10)}))
	out := exec.TransactionCleanup([]types.AccountAddress{bob})
	assert.True(t, out.IsDiscarded())
	assert.Empty(t, out.WriteSet)
	assert.Equal(t, types.StatusInsufficientBalanceForTransactionFee, out.Status.Status.Code)
}

func TestCheckGasBalanceFreeTransactions(t *testing.T) {
	store, cache := setup(t, nil)
	exec := executor.New(cache, vm.DefaultCostTable(), state.NewBlockDataCache(store),
		types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000})
	assert.NoError(t, exec.CheckGasBalance())
}

func TestCustomNatives(t *testing.T) {
	store, cache := setup(t, nil)
	exec := executor.New(cache, vm.DefaultCostTable(), state.NewBlockDataCache(store),
		types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000},
		executor.WithNatives(vm.NewNativeDispatcher(nil)))
	err := exec.ExecuteFunction(context.Background(), vm.HashModule, "sha3_256", []vm.Value{vm.ByteArray([]byte("x"))})
	assert.Equal(t, types.StatusLinkerError, types.StatusOf(err).Code)
}

func TestSha3NativeEntryPoint(t *testing.T) {
	store, cache := setup(t, nil)
	exec := executor.New(cache, vm.DefaultCostTable(), state.NewBlockDataCache(store),
		types.TransactionMetadata{Sender: alice, MaxGasAmount: 1000})
	require.NoError(t, exec.ExecuteFunction(context.Background(), vm.HashModule, "sha3_256", []vm.Value{vm.ByteArray([]byte("x"))}))
	assert.EqualValues(t, 1, exec.GasUsed())
}
