package vm

import (
	"github.com/tendermint/vmruntime/types"
)

// DefaultStackCapacity bounds the operand stack of a single frame.
const DefaultStackCapacity = 1024

// Stack is a LIFO of Values. The interpreter uses one per frame for
// operands, and natives receive their arguments on one: arguments are
// pushed in declaration order, so the last declared argument is popped
// first.
//
// Not goroutine safe.
type Stack struct {
	data     []Value
	capacity int
}

func NewStack(capacity int) *Stack {
	return &Stack{capacity: capacity}
}

// NewArgStack returns a stack holding args with args[len(args)-1] on top.
func NewArgStack(args []Value) *Stack {
	st := &Stack{data: make([]Value, 0, len(args)), capacity: len(args)}
	st.data = append(st.data, args...)
	return st
}

func (st *Stack) Len() int {
	return len(st.data)
}

func (st *Stack) Push(v Value) error {
	if len(st.data) >= st.capacity {
		return types.NewVMStatus(types.StatusExecutionStackOverflow)
	}
	st.data = append(st.data, v)
	return nil
}

func (st *Stack) Pop() (Value, error) {
	if len(st.data) == 0 {
		return Value{}, types.NewVMStatus(types.StatusUnreachable).WithMessage("pop from empty stack")
	}
	v := st.data[len(st.data)-1]
	st.data[len(st.data)-1] = Value{}
	st.data = st.data[:len(st.data)-1]
	return v, nil
}

// Peek returns the top value without removing it.
func (st *Stack) Peek() (Value, bool) {
	if len(st.data) == 0 {
		return Value{}, false
	}
	return st.data[len(st.data)-1], true
}

// PopN pops n values and returns them in push order.
func (st *Stack) PopN(n int) ([]Value, error) {
	if n > len(st.data) {
		return nil, types.NewVMStatus(types.StatusUnreachable).
			WithMessage("pop %d values from stack of %d", n, len(st.data))
	}
	out := make([]Value, n)
	copy(out, st.data[len(st.data)-n:])
	for i := len(st.data) - n; i < len(st.data); i++ {
		st.data[i] = Value{}
	}
	st.data = st.data[:len(st.data)-n]
	return out, nil
}

func (st *Stack) popKind(kind ValueKind) (Value, error) {
	v, err := st.Pop()
	if err != nil {
		return Value{}, err
	}
	if v.kind != kind {
		return Value{}, types.NewVMStatus(types.StatusUnreachable).
			WithMessage("type mismatch: expected %v found %v", kind, v.kind)
	}
	return v, nil
}

func (st *Stack) PopU64() (uint64, error) {
	v, err := st.popKind(KindU64)
	return v.u64, err
}

func (st *Stack) PopBool() (bool, error) {
	v, err := st.popKind(KindBool)
	return v.b, err
}

func (st *Stack) PopAddress() (types.AccountAddress, error) {
	v, err := st.popKind(KindAddress)
	return v.addr, err
}

func (st *Stack) PopByteArray() ([]byte, error) {
	v, err := st.popKind(KindByteArray)
	return v.bytes, err
}

func (st *Stack) PopStruct() (Value, error) {
	return st.popKind(KindStruct)
}
