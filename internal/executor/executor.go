// Package executor runs transactions against a block's data cache and
// turns their outcomes into transaction outputs.
package executor

import (
	"context"

	"github.com/tendermint/vmruntime/internal/genesis"
	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/libs/log"
	tmmath "github.com/tendermint/vmruntime/libs/math"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

// TransactionExecutor executes a single transaction. It owns the
// transaction's gas meter and write buffer; the block's cache is only
// read. Build a new one per transaction.
//
// Not goroutine safe.
type TransactionExecutor struct {
	modules vm.ModuleResolver
	natives *vm.NativeDispatcher
	meter   *vm.GasMeter
	data    *state.TxCache
	txnMeta types.TransactionMetadata
	logger  log.Logger
	metrics *Metrics
}

// Option sets an optional parameter on the TransactionExecutor.
type Option func(*TransactionExecutor)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(e *TransactionExecutor) { e.logger = logger }
}

// WithNatives replaces the default natives.
func WithNatives(natives *vm.NativeDispatcher) Option {
	return func(e *TransactionExecutor) { e.natives = natives }
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(e *TransactionExecutor) { e.metrics = metrics }
}

// New returns an executor for the transaction described by txnMeta. Its
// gas budget is txnMeta.MaxGasAmount priced by table.
func New(
	modules vm.ModuleResolver,
	table *vm.CostTable,
	blockCache state.Reader,
	txnMeta types.TransactionMetadata,
	options ...Option,
) *TransactionExecutor {
	e := &TransactionExecutor{
		modules: modules,
		natives: vm.DefaultNatives(),
		meter:   vm.NewGasMeter(vm.GasUnits(txnMeta.MaxGasAmount), table),
		data:    state.NewTxCache(blockCache),
		txnMeta: txnMeta,
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
	}
	for _, opt := range options {
		opt(e)
	}
	e.logger = e.logger.With("sender", e.txnMeta.Sender.ShortString())
	return e
}

// ExecuteFunction runs the public function name of module with args. On
// error the transaction must be discarded with DiscardErrorOutput.
func (e *TransactionExecutor) ExecuteFunction(ctx context.Context, module types.ModuleID, name string, args []vm.Value) error {
	m, err := e.modules.Resolve(ctx, module)
	if err != nil {
		return err
	}
	fn, ok := m.Function(name)
	if !ok {
		return types.NewVMStatus(types.StatusFunctionNotFound).WithMessage("%v::%s", module, name)
	}
	if !fn.Public {
		return types.NewVMStatus(types.StatusLinkerError).WithMessage("%v::%s is not public", module, name)
	}

	in := vm.NewInterpreter(vm.Env{
		Modules: e.modules,
		Natives: e.natives,
		Meter:   e.meter,
		Data:    e.data,
		Sender:  e.txnMeta.Sender,
		Logger:  e.logger,
	})
	rets, err := in.Execute(ctx, m, fn, args)
	if err != nil {
		return err
	}
	for i, v := range rets {
		if v.IsResource() {
			return types.NewVMStatus(types.StatusUnknownInvariantViolation).
				WithMessage("%v::%s returned a resource in position %d", module, name, i)
		}
	}
	e.logger.Debug("executed function", "function", module.String()+"::"+name, "gas_used", e.meter.Used())
	return nil
}

// CheckGasBalance fails with INSUFFICIENT_BALANCE_FOR_TRANSACTION_FEE
// unless the sender's gas account covers the maximum fee.
func (e *TransactionExecutor) CheckGasBalance() error {
	maxFee, overflow := tmmath.SafeMulUint64(e.txnMeta.MaxGasAmount, e.txnMeta.GasUnitPrice)
	if overflow {
		return types.NewVMStatus(types.StatusInsufficientBalanceForTransactionFee).
			WithMessage("maximum fee overflows")
	}
	if maxFee == 0 {
		return nil
	}
	balance, err := e.gasBalance(e.txnMeta.Sender)
	if err != nil {
		return err
	}
	if balance < maxFee {
		return types.NewVMStatus(types.StatusInsufficientBalanceForTransactionFee).
			WithMessage("balance %d below maximum fee %d", balance, maxFee)
	}
	return nil
}

// GasUsed is the gas charged so far.
func (e *TransactionExecutor) GasUsed() uint64 {
	return uint64(e.meter.Used())
}

// TransactionCleanup charges the fee and returns the kept output. The fee
// is gas used times the gas price, debited from the sender and split
// evenly across recipients, the first taking the remainder. Nothing is
// charged when there are no recipients.
func (e *TransactionExecutor) TransactionCleanup(recipients []types.AccountAddress) types.TransactionOutput {
	if err := e.payFee(recipients); err != nil {
		return e.DiscardErrorOutput(err)
	}
	out := types.NewTransactionOutput(
		e.data.WriteSet(),
		e.GasUsed(),
		types.KeepStatus(types.NewVMStatus(types.StatusExecuted)),
	)
	e.metrics.Transactions.With("outcome", "keep").Add(1)
	e.metrics.GasUsed.Observe(float64(out.GasUsed))
	e.logger.Debug("transaction kept", "writes", len(out.WriteSet), "gas_used", out.GasUsed)
	return out
}

// DiscardErrorOutput returns the discarded output for err. Its write-set
// is empty; errors carrying no VMStatus become
// UNKNOWN_INVARIANT_VIOLATION.
func (e *TransactionExecutor) DiscardErrorOutput(err error) types.TransactionOutput {
	status := types.StatusOf(err)
	out := types.NewTransactionOutput(nil, e.GasUsed(), types.DiscardStatus(status))
	e.metrics.Transactions.With("outcome", "discard").Add(1)
	e.metrics.GasUsed.Observe(float64(out.GasUsed))
	e.logger.Info("transaction discarded", "status", status, "gas_used", out.GasUsed)
	return out
}

func (e *TransactionExecutor) payFee(recipients []types.AccountAddress) error {
	if len(recipients) == 0 {
		return nil
	}
	fee, overflow := tmmath.SafeMulUint64(e.GasUsed(), e.txnMeta.GasUnitPrice)
	if overflow {
		return types.NewVMStatus(types.StatusInsufficientBalanceForTransactionFee).
			WithMessage("fee overflows")
	}
	if fee == 0 {
		return nil
	}

	balance, err := e.gasBalance(e.txnMeta.Sender)
	if err != nil {
		return err
	}
	if balance < fee {
		return types.NewVMStatus(types.StatusInsufficientBalanceForTransactionFee).
			WithMessage("balance %d below fee %d", balance, fee)
	}
	e.data.Write(genesis.GasAccountPath(e.txnMeta.Sender), genesis.EncodeGasAccount(balance-fee))

	n := uint64(len(recipients))
	share, rem := fee/n, fee%n
	for i, r := range recipients {
		amount := share
		if i == 0 {
			amount += rem
		}
		if amount == 0 {
			continue
		}
		if err := e.credit(r, amount); err != nil {
			return err
		}
	}
	return nil
}

func (e *TransactionExecutor) credit(addr types.AccountAddress, amount uint64) error {
	balance, err := e.gasBalance(addr)
	if err != nil {
		return err
	}
	sum, overflow := tmmath.SafeAddUint64(balance, amount)
	if overflow {
		return types.NewVMStatus(types.StatusArithmeticError).
			WithMessage("crediting %d to %v overflows", amount, addr)
	}
	e.data.Write(genesis.GasAccountPath(addr), genesis.EncodeGasAccount(sum))
	return nil
}

// gasBalance returns addr's gas balance, zero when it has no account.
func (e *TransactionExecutor) gasBalance(addr types.AccountAddress) (uint64, error) {
	bz, ok, err := e.data.Read(genesis.GasAccountPath(addr))
	if err != nil {
		return 0, types.NewVMStatus(types.StatusStorageError).WithMessage("%v", err)
	}
	if !ok {
		return 0, nil
	}
	balance, err := genesis.DecodeGasAccount(bz)
	if err != nil {
		return 0, types.NewVMStatus(types.StatusUnknownInvariantViolation).
			WithMessage("gas account of %v: %v", addr, err)
	}
	return balance, nil
}
