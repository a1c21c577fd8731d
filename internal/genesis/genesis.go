// Package genesis builds the modules every chain starts with and installs
// them into a fresh state store.
package genesis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tendermint/vmruntime/internal/modules"
	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

// ErrInstalled is returned by Install when the store already holds the
// system module.
var ErrInstalled = errors.New("genesis modules already installed")

// Abort codes of LibraSystem::block_prologue.
const (
	AbortTimestampNotIncreasing = 1
)

// Local slots of block_prologue after its four parameters.
const (
	locHeight = 4 + iota
	locLastTimestamp
	locLastID
	locLastVote
	locLastProposer
)

// SystemModule returns 0x0::LibraSystem. It keeps a BlockMetadata resource
// {height, timestamp, id, previous_vote, proposer} under the system
// address, replaced by block_prologue at the start of every block.
func SystemModule() *vm.Module {
	b := vm.NewModuleBuilder(types.SystemModuleID)
	meta := b.Struct(types.BlockMetadataStruct, true,
		vm.KindU64, vm.KindU64, vm.KindByteArray, vm.KindByteArray, vm.KindAddress)

	b.Function(types.BlockPrologueName, true,
		[]vm.ValueKind{vm.KindU64, vm.KindByteArray, vm.KindByteArray, vm.KindAddress},
		nil,
		[]vm.ValueKind{vm.KindU64, vm.KindU64, vm.KindByteArray, vm.KindByteArray, vm.KindAddress}).
		Op(vm.LdSender).
		Op(vm.Exists, meta).
		Jump(vm.BrFalse, "first").
		Op(vm.LdSender).
		Op(vm.MoveFrom, meta).
		Op(vm.Unpack, meta).
		Op(vm.StLoc, locLastProposer).
		Op(vm.StLoc, locLastVote).
		Op(vm.StLoc, locLastID).
		Op(vm.StLoc, locLastTimestamp).
		Op(vm.StLoc, locHeight).
		Op(vm.CopyLoc, 0).
		Op(vm.CopyLoc, locLastTimestamp).
		Op(vm.Gt).
		Jump(vm.BrTrue, "next").
		Op(vm.LdU64, AbortTimestampNotIncreasing).
		Op(vm.Abort).
		Label("next").
		Op(vm.MoveLoc, locHeight).
		Op(vm.LdU64, 1).
		Op(vm.Add).
		Op(vm.StLoc, locHeight).
		Jump(vm.Branch, "store").
		Label("first").
		Op(vm.LdU64, 1).
		Op(vm.StLoc, locHeight).
		Label("store").
		Op(vm.MoveLoc, locHeight).
		Op(vm.MoveLoc, 0).
		Op(vm.MoveLoc, 1).
		Op(vm.MoveLoc, 2).
		Op(vm.MoveLoc, 3).
		Op(vm.Pack, meta).
		Op(vm.MoveToSender, meta).
		Op(vm.Ret)

	return b.MustBuild()
}

// GasAccountModule returns 0x0::GasAccount. Its T resource holds the gas
// balance fees are paid from.
func GasAccountModule() *vm.Module {
	b := vm.NewModuleBuilder(types.GasAccountModuleID)
	t := b.Struct(types.GasAccountStruct, true, vm.KindU64)

	// publish creates an empty account for the sender
	b.Function("publish", true, nil, nil, nil).
		Op(vm.LdU64, 0).
		Op(vm.Pack, t).
		Op(vm.MoveToSender, t).
		Op(vm.Ret)

	b.Function("balance", true, nil, []vm.ValueKind{vm.KindU64}, []vm.ValueKind{vm.KindU64}).
		Op(vm.LdSender).
		Op(vm.MoveFrom, t).
		Op(vm.Unpack, t).
		Op(vm.StLoc, 0).
		Op(vm.CopyLoc, 0).
		Op(vm.Pack, t).
		Op(vm.MoveToSender, t).
		Op(vm.MoveLoc, 0).
		Op(vm.Ret)

	return b.MustBuild()
}

// NativeModules returns one module per module declaring natives in
// natives, each function declared with the native's signature. All
// natives return a byte array.
func NativeModules(natives *vm.NativeDispatcher) []*vm.Module {
	builders := make(map[types.ModuleID]*vm.ModuleBuilder)
	var order []types.ModuleID
	for _, id := range natives.IDs() {
		b, ok := builders[id.Module]
		if !ok {
			b = vm.NewModuleBuilder(id.Module)
			builders[id.Module] = b
			order = append(order, id.Module)
		}
		fn, _ := natives.Lookup(id)
		b.Native(id.Function, fn.Params, []vm.ValueKind{vm.KindByteArray})
	}

	mods := make([]*vm.Module, 0, len(order))
	for _, id := range order {
		mods = append(mods, builders[id].MustBuild())
	}
	return mods
}

// Modules returns every genesis module, ordered by identity.
func Modules() []*vm.Module {
	mods := append([]*vm.Module{SystemModule(), GasAccountModule()}, NativeModules(vm.DefaultNatives())...)
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID.String() < mods[j].ID.String() })
	return mods
}

// WriteSet publishes the genesis modules and funds the given accounts.
func WriteSet(funds map[types.AccountAddress]uint64) types.WriteSet {
	var ops []types.WriteOp
	for _, m := range Modules() {
		ops = append(ops, modules.PublishOp(m))
	}
	for addr, balance := range funds {
		ops = append(ops, FundOp(addr, balance))
	}
	return types.NewWriteSet(ops...)
}

// Install commits the genesis write-set to a store that has none yet and
// returns the new store version.
func Install(store *state.Store, funds map[types.AccountAddress]uint64) (uint64, error) {
	existing, err := store.Get(types.CodePath(types.SystemModuleID))
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrInstalled
	}
	version, err := store.Commit(WriteSet(funds))
	if err != nil {
		return 0, fmt.Errorf("installing genesis: %w", err)
	}
	return version, nil
}
