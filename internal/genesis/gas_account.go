package genesis

import (
	"fmt"

	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

// GasAccountPath is where addr's gas balance lives.
func GasAccountPath(addr types.AccountAddress) types.AccessPath {
	return types.ResourcePath(addr, types.GasAccountTag)
}

// EncodeGasAccount returns the stored form of a GasAccount::T holding
// balance.
func EncodeGasAccount(balance uint64) []byte {
	return vm.EncodeValue(vm.Struct(true, vm.U64(balance)))
}

// DecodeGasAccount returns the balance held by a stored GasAccount::T.
func DecodeGasAccount(bz []byte) (uint64, error) {
	v, err := vm.DecodeValue(bz)
	if err != nil {
		return 0, err
	}
	fields := v.Fields()
	if v.Kind() != vm.KindStruct || !v.IsResource() || len(fields) != 1 {
		return 0, fmt.Errorf("not a gas account: %v", v)
	}
	balance, ok := fields[0].AsU64()
	if !ok {
		return 0, fmt.Errorf("not a gas account: %v", v)
	}
	return balance, nil
}

// FundOp writes a gas account holding balance for addr.
func FundOp(addr types.AccountAddress, balance uint64) types.WriteOp {
	return types.WriteOp{AccessPath: GasAccountPath(addr), Value: EncodeGasAccount(balance)}
}
