package vm

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/tendermint/vmruntime/crypto"
	"github.com/tendermint/vmruntime/types"
)

// Modules holding the default natives, all published at the system
// address.
var (
	BytearrayUtilModule = types.NewModuleID(types.SystemAddress, "BytearrayUtil")
	AddressUtilModule   = types.NewModuleID(types.SystemAddress, "AddressUtil")
	U64UtilModule       = types.NewModuleID(types.SystemAddress, "U64Util")
	HashModule          = types.NewModuleID(types.SystemAddress, "Hash")
)

// Identifiers of the default natives.
var (
	NativeBytearrayConcat = NativeID{Module: BytearrayUtilModule, Function: "bytearray_concat"}
	NativeAddressToBytes  = NativeID{Module: AddressUtilModule, Function: "address_to_bytes"}
	NativeU64ToBytes      = NativeID{Module: U64UtilModule, Function: "u64_to_bytes"}
	NativeSha3256         = NativeID{Module: HashModule, Function: "sha3_256"}
)

// NativeID names a native function by its declaring module and name.
type NativeID struct {
	Module   types.ModuleID
	Function string
}

// ParseNativeID parses "<address>::<module>::<function>".
func ParseNativeID(s string) (NativeID, error) {
	i := strings.LastIndex(s, "::")
	if i < 0 {
		return NativeID{}, fmt.Errorf("invalid native id %q", s)
	}
	mod, err := types.ParseModuleID(s[:i])
	if err != nil {
		return NativeID{}, err
	}
	fn := s[i+2:]
	if !types.IsValidIdentifier(fn) {
		return NativeID{}, fmt.Errorf("invalid native function name %q", fn)
	}
	return NativeID{Module: mod, Function: fn}, nil
}

func (id NativeID) String() string {
	return id.Module.String() + "::" + id.Function
}

// NativeResult is what a native hands back: its results and the cost of
// producing them, which the caller charges.
type NativeResult struct {
	Cost   AbstractUnits
	Values []Value
}

// NativeFunc pops its arguments off args, last declared first, and
// computes its result.
type NativeFunc func(args *Stack) (NativeResult, error)

// NativeFunction is a registered native. Its arity is len(Params).
type NativeFunction struct {
	Params []ValueKind
	Fn     NativeFunc
}

func (f NativeFunction) Arity() int {
	return len(f.Params)
}

// NativeDispatcher is a fixed table of natives. It is immutable once built
// and safe for concurrent use.
type NativeDispatcher struct {
	natives map[NativeID]NativeFunction
}

// NewNativeDispatcher builds a dispatcher over natives.
func NewNativeDispatcher(natives map[NativeID]NativeFunction) *NativeDispatcher {
	table := make(map[NativeID]NativeFunction, len(natives))
	for id, fn := range natives {
		table[id] = fn
	}
	return &NativeDispatcher{natives: table}
}

// DefaultNatives returns the dispatcher with the built-in natives.
func DefaultNatives() *NativeDispatcher {
	return NewNativeDispatcher(map[NativeID]NativeFunction{
		NativeBytearrayConcat: {
			Params: []ValueKind{KindByteArray, KindByteArray},
			Fn:     nativeBytearrayConcat,
		},
		NativeAddressToBytes: {
			Params: []ValueKind{KindAddress},
			Fn:     nativeAddressToBytes,
		},
		NativeU64ToBytes: {
			Params: []ValueKind{KindU64},
			Fn:     nativeU64ToBytes,
		},
		NativeSha3256: {
			Params: []ValueKind{KindByteArray},
			Fn:     nativeSha3256,
		},
	})
}

func (d *NativeDispatcher) Lookup(id NativeID) (NativeFunction, bool) {
	fn, ok := d.natives[id]
	return fn, ok
}

// IDs returns the registered identifiers in a stable order.
func (d *NativeDispatcher) IDs() []NativeID {
	ids := make([]NativeID, 0, len(d.natives))
	for id := range d.natives {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Dispatch runs the native id over args, given in declaration order.
// Arity and type errors are UNREACHABLE: verified callers never make them.
func (d *NativeDispatcher) Dispatch(id NativeID, args []Value) (NativeResult, error) {
	native, ok := d.natives[id]
	if !ok {
		return NativeResult{}, types.NewVMStatus(types.StatusLinkerError).
			WithMessage("unknown native %v", id)
	}
	if len(args) != native.Arity() {
		return NativeResult{}, types.NewVMStatus(types.StatusUnreachable).
			WithMessage("wrong number of arguments for %s expected %d found %d", id.Function, native.Arity(), len(args))
	}
	return native.Fn(NewArgStack(args))
}

func nativeBytearrayConcat(args *Stack) (NativeResult, error) {
	rhs, err := args.PopByteArray()
	if err != nil {
		return NativeResult{}, err
	}
	lhs, err := args.PopByteArray()
	if err != nil {
		return NativeResult{}, err
	}
	out := make([]byte, 0, len(lhs)+len(rhs))
	out = append(out, lhs...)
	out = append(out, rhs...)
	return NativeResult{
		Cost:   AbstractUnits(len(out)),
		Values: []Value{ByteArray(out)},
	}, nil
}

func nativeAddressToBytes(args *Stack) (NativeResult, error) {
	addr, err := args.PopAddress()
	if err != nil {
		return NativeResult{}, err
	}
	out := addr.Bytes()
	return NativeResult{
		Cost:   AbstractUnits(len(out)),
		Values: []Value{ByteArray(out)},
	}, nil
}

func nativeU64ToBytes(args *Stack) (NativeResult, error) {
	x, err := args.PopU64()
	if err != nil {
		return NativeResult{}, err
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, x)
	return NativeResult{
		Cost:   AbstractUnits(len(out)),
		Values: []Value{ByteArray(out)},
	}, nil
}

func nativeSha3256(args *Stack) (NativeResult, error) {
	bz, err := args.PopByteArray()
	if err != nil {
		return NativeResult{}, err
	}
	sum := crypto.Sha3(bz)
	return NativeResult{
		Cost:   AbstractUnits(len(bz)),
		Values: []Value{ByteArray(sum.Bytes())},
	}, nil
}
