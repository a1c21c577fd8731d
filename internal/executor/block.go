package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/libs/log"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

// ErrInvalidBlock is returned when a block's prologue is discarded. Such a
// block cannot be applied.
var ErrInvalidBlock = errors.New("invalid block")

// DefaultPrefetchConcurrency bounds concurrent module loads while warming
// the cache.
const DefaultPrefetchConcurrency = 8

// BlockResult is the outcome of executing a block.
type BlockResult struct {
	Metadata types.BlockMetadata
	Prologue types.TransactionOutput
	// Outputs has one entry per user transaction, in block order.
	Outputs []types.TransactionOutput
	// WriteSet is everything the block changes, ready for CommitBlock.
	WriteSet types.WriteSet
}

// BlockExecutor executes blocks against the committed state in store.
// Blocks must be executed and committed one at a time.
type BlockExecutor struct {
	store   *state.Store
	modules vm.ModuleResolver
	table   *vm.CostTable
	hashers types.Hashers
	logger  log.Logger
	metrics *Metrics

	prefetchConcurrency int
}

// BlockExecutorOption sets an optional parameter on the BlockExecutor.
type BlockExecutorOption func(*BlockExecutor)

// BlockExecutorWithLogger sets the logger.
func BlockExecutorWithLogger(logger log.Logger) BlockExecutorOption {
	return func(be *BlockExecutor) { be.logger = logger }
}

// BlockExecutorWithPrefetch sets how many modules are loaded concurrently
// before a block runs.
func BlockExecutorWithPrefetch(n int) BlockExecutorOption {
	return func(be *BlockExecutor) { be.prefetchConcurrency = n }
}

// BlockExecutorWithMetrics sets the metrics.
func BlockExecutorWithMetrics(metrics *Metrics) BlockExecutorOption {
	return func(be *BlockExecutor) { be.metrics = metrics }
}

func NewBlockExecutor(
	store *state.Store,
	modules vm.ModuleResolver,
	table *vm.CostTable,
	options ...BlockExecutorOption,
) *BlockExecutor {
	be := &BlockExecutor{
		store:   store,
		modules: modules,
		table:   table,
		hashers: types.NewHashers(),
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),

		prefetchConcurrency: DefaultPrefetchConcurrency,
	}
	for _, opt := range options {
		opt(be)
	}
	if be.prefetchConcurrency < 1 {
		be.prefetchConcurrency = 1
	}
	return be
}

func (be *BlockExecutor) txOptions() []Option {
	return []Option{WithLogger(be.logger), WithMetrics(be.metrics)}
}

// ExecuteBlock runs the prologue and then every user transaction of block
// in order, each seeing the writes of those kept before it. Nothing is
// committed. A discarded prologue fails the block with ErrInvalidBlock.
func (be *BlockExecutor) ExecuteBlock(ctx context.Context, block types.Block) (*BlockResult, error) {
	start := time.Now()
	if err := be.prefetch(ctx, block); err != nil {
		return nil, err
	}

	meta, err := types.DecodeBlockMetadata(block.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed metadata: %v", ErrInvalidBlock, err)
	}

	cache := state.NewBlockDataCache(be.store)
	prologue := runBlockPrologue(ctx, meta, be.modules, cache, be.txOptions()...)
	if prologue.IsDiscarded() {
		return nil, fmt.Errorf("%w: prologue %v", ErrInvalidBlock, prologue.Status)
	}
	cache.ApplyWriteSet(prologue.WriteSet)

	res := &BlockResult{
		Metadata: meta,
		Prologue: prologue,
		Outputs:  make([]types.TransactionOutput, 0, len(block.Transactions)),
	}
	var discarded int
	for _, tx := range block.Transactions {
		out := be.executeTransaction(ctx, cache, meta, tx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if out.IsDiscarded() {
			discarded++
		} else {
			cache.ApplyWriteSet(out.WriteSet)
		}
		res.Outputs = append(res.Outputs, out)
	}
	res.WriteSet = cache.WriteSet()

	be.metrics.Blocks.Add(1)
	be.metrics.BlockTransactions.Observe(float64(len(block.Transactions)))
	be.metrics.BlockProcessingSeconds.Observe(time.Since(start).Seconds())
	be.logger.Info("executed block",
		"id", meta.ID,
		"timestamp", meta.Timestamp,
		"txs", len(block.Transactions),
		"discarded", discarded,
		"writes", len(res.WriteSet),
	)
	return res, nil
}

// CommitBlock commits the write-set of an executed block and returns the
// new store version.
func (be *BlockExecutor) CommitBlock(res *BlockResult) (uint64, error) {
	version, err := be.store.Commit(res.WriteSet)
	if err != nil {
		return 0, fmt.Errorf("committing block %v: %w", res.Metadata.ID, err)
	}
	return version, nil
}

func (be *BlockExecutor) executeTransaction(
	ctx context.Context,
	cache *state.BlockDataCache,
	meta types.BlockMetadata,
	tx types.SignedTransaction,
) types.TransactionOutput {
	if err := tx.CheckSignature(be.hashers); err != nil {
		return be.discardUnexecuted(types.StatusInvalidSignature, err)
	}
	if tx.Raw.ExpirationTime <= meta.Timestamp {
		return be.discardUnexecuted(types.StatusTransactionExpired,
			fmt.Errorf("expired at %d, block time %d", tx.Raw.ExpirationTime, meta.Timestamp))
	}
	args := make([]vm.Value, len(tx.Raw.Payload.Args))
	for i, arg := range tx.Raw.Payload.Args {
		v, err := vm.ValueFromArgument(arg)
		if err != nil {
			return be.discardUnexecuted(types.StatusMalformed, err)
		}
		args[i] = v
	}

	exec := New(be.modules, be.table, cache, tx.Raw.Metadata(), be.txOptions()...)
	if err := exec.CheckGasBalance(); err != nil {
		return exec.DiscardErrorOutput(err)
	}
	if err := exec.ExecuteFunction(ctx, tx.Raw.Payload.Module, tx.Raw.Payload.Function, args); err != nil {
		return exec.DiscardErrorOutput(err)
	}
	return exec.TransactionCleanup([]types.AccountAddress{meta.Proposer})
}

// discardUnexecuted rejects a transaction before it runs. No gas is used.
func (be *BlockExecutor) discardUnexecuted(code types.StatusCode, err error) types.TransactionOutput {
	status := types.NewVMStatus(code).WithMessage("%v", err)
	be.metrics.Transactions.With("outcome", "discard").Add(1)
	be.logger.Info("transaction rejected", "status", status)
	return types.NewTransactionOutput(nil, 0, types.DiscardStatus(status))
}

// prefetch loads every module the block calls into the cache
// concurrently. Load failures are left for the transactions to report.
func (be *BlockExecutor) prefetch(ctx context.Context, block types.Block) error {
	ids := map[types.ModuleID]struct{}{types.SystemModuleID: {}}
	for _, tx := range block.Transactions {
		ids[tx.Raw.Payload.Module] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, be.prefetchConcurrency)
	for id := range ids {
		id := id
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if _, err := be.modules.Resolve(gctx, id); err != nil {
				be.logger.Debug("prefetch failed", "module", id, "err", err)
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}
