package executor

import (
	"context"
	"math"

	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

// ProcessBlockMetadata executes the block prologue pseudo-transaction
// encoded in raw. It runs as the system address with an unbounded budget
// and a zero cost table, so it can never run out of gas.
//
// Undecodable metadata is discarded as MALFORMED with no gas used, without
// running anything.
func ProcessBlockMetadata(
	ctx context.Context,
	raw []byte,
	modules vm.ModuleResolver,
	blockCache state.Reader,
	options ...Option,
) types.TransactionOutput {
	meta, err := types.DecodeBlockMetadata(raw)
	if err != nil {
		return types.NewTransactionOutput(nil, 0,
			types.DiscardStatus(types.NewVMStatus(types.StatusMalformed).WithMessage("%v", err)))
	}

	return runBlockPrologue(ctx, meta, modules, blockCache, options...)
}

func runBlockPrologue(
	ctx context.Context,
	meta types.BlockMetadata,
	modules vm.ModuleResolver,
	blockCache state.Reader,
	options ...Option,
) types.TransactionOutput {
	txnMeta := types.TransactionMetadata{
		Sender:       types.SystemAddress,
		MaxGasAmount: math.MaxUint64,
	}
	exec := New(modules, vm.ZeroCostTable(), blockCache, txnMeta, options...)
	args := []vm.Value{
		vm.U64(meta.Timestamp),
		vm.ByteArray(meta.ID.Bytes()),
		vm.ByteArray(meta.PreviousBlockVotes),
		vm.Address(meta.Proposer),
	}
	if err := exec.ExecuteFunction(ctx, types.SystemModuleID, types.BlockPrologueName, args); err != nil {
		return exec.DiscardErrorOutput(err)
	}
	return exec.TransactionCleanup(nil)
}
