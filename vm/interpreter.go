package vm

import (
	"context"
	"fmt"

	"github.com/tendermint/vmruntime/libs/log"
	tmmath "github.com/tendermint/vmruntime/libs/math"
	"github.com/tendermint/vmruntime/types"
)

// MaxCallDepth bounds nested calls.
const MaxCallDepth = 100

// ModuleResolver returns verified modules by identity.
type ModuleResolver interface {
	Resolve(ctx context.Context, id types.ModuleID) (*Module, error)
}

// DataStore is the transaction-local view of global state the interpreter
// reads and writes resources through.
type DataStore interface {
	Read(ap types.AccessPath) ([]byte, bool, error)
	Write(ap types.AccessPath, value []byte)
	Delete(ap types.AccessPath)
}

// Env is everything one execution needs besides the code itself.
type Env struct {
	Modules ModuleResolver
	Natives *NativeDispatcher
	Meter   *GasMeter
	Data    DataStore
	Sender  types.AccountAddress
	Logger  log.Logger
}

// Interpreter runs verified bytecode for a single transaction. It charges
// every instruction to the meter and never touches state except through
// the DataStore.
//
// Not goroutine safe.
type Interpreter struct {
	env   Env
	depth int
}

func NewInterpreter(env Env) *Interpreter {
	if env.Logger == nil {
		env.Logger = log.NewNopLogger()
	}
	return &Interpreter{env: env}
}

func unreachable(format string, args ...interface{}) error {
	return types.NewVMStatus(types.StatusUnreachable).WithMessage(format, args...)
}

func invariantViolation(format string, args ...interface{}) error {
	return types.NewVMStatus(types.StatusUnknownInvariantViolation).WithMessage(format, args...)
}

// CheckArguments checks args against the parameter list of fn.
func CheckArguments(fn *FunctionDef, args []Value) error {
	if len(args) != len(fn.Params) {
		return types.NewVMStatus(types.StatusNumberOfArgumentsMismatch).
			WithMessage("%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}
	for i, arg := range args {
		if arg.Kind() != fn.Params[i] {
			return types.NewVMStatus(types.StatusTypeMismatch).
				WithMessage("%s argument %d: expected %v, got %v", fn.Name, i, fn.Params[i], arg.Kind())
		}
	}
	return nil
}

// Execute calls fn of module m with args. Panics raised while executing are
// returned as UNKNOWN_INVARIANT_VIOLATION.
func (in *Interpreter) Execute(ctx context.Context, m *Module, fn *FunctionDef, args []Value) (rets []Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			rets = nil
			err = invariantViolation("panic in %v::%s: %v", m.ID, fn.Name, r)
		}
	}()
	if err := CheckArguments(fn, args); err != nil {
		return nil, err
	}
	if fn.Native {
		return in.callNative(NativeID{Module: m.ID, Function: fn.Name}, args)
	}
	return in.run(ctx, m, fn, args)
}

func (in *Interpreter) callNative(id NativeID, args []Value) ([]Value, error) {
	if in.env.Natives == nil {
		return nil, types.NewVMStatus(types.StatusLinkerError).WithMessage("no natives available for %v", id)
	}
	res, err := in.env.Natives.Dispatch(id, args)
	if err != nil {
		return nil, err
	}
	if err := in.env.Meter.ChargeNative(id, res.Cost); err != nil {
		return nil, err
	}
	return res.Values, nil
}

func (in *Interpreter) memorySize(m *Module, ins Instruction, stack *Stack) uint64 {
	switch ins.Op {
	case LdConst:
		if ins.Arg < uint64(len(m.Constants)) {
			return uint64(len(m.Constants[ins.Arg]))
		}
	case MoveToSender:
		if v, ok := stack.Peek(); ok {
			return v.Size()
		}
	}
	return 0
}

func (in *Interpreter) resolve(ctx context.Context, current *Module, h FunctionHandle) (*Module, *FunctionDef, error) {
	callee := current
	if h.Module != current.ID {
		var err error
		if callee, err = in.env.Modules.Resolve(ctx, h.Module); err != nil {
			return nil, nil, err
		}
	}
	fn, ok := callee.Function(h.Name)
	if !ok {
		return nil, nil, types.NewVMStatus(types.StatusFunctionNotFound).WithMessage("%v::%s", h.Module, h.Name)
	}
	if callee != current && !fn.Public {
		return nil, nil, types.NewVMStatus(types.StatusLinkerError).WithMessage("%v::%s is not public", h.Module, h.Name)
	}
	return callee, fn, nil
}

func storageError(err error) error {
	return types.NewVMStatus(types.StatusStorageError).WithMessage("%v", err)
}

func (in *Interpreter) run(ctx context.Context, m *Module, fn *FunctionDef, args []Value) ([]Value, error) {
	if in.depth >= MaxCallDepth {
		return nil, types.NewVMStatus(types.StatusCallStackOverflow)
	}
	in.depth++
	defer func() { in.depth-- }()

	var (
		locals = make([]Value, fn.NumLocals())
		stack  = NewStack(DefaultStackCapacity)
		code   = fn.Code
		pc     = 0
	)
	copy(locals, args)

	for pc < len(code) {
		ins := code[pc]
		if err := in.env.Meter.ChargeInstruction(ins.Op, in.memorySize(m, ins, stack)); err != nil {
			return nil, err
		}
		next := pc + 1
		var err error

		switch ins.Op {
		case Ret:
			if stack.Len() != len(fn.Returns) {
				return nil, unreachable("%s returns %d values with %d on the stack", fn.Name, len(fn.Returns), stack.Len())
			}
			for i, l := range locals {
				if l.IsResource() {
					return nil, invariantViolation("%s: resource left in local %d", fn.Name, i)
				}
			}
			return stack.PopN(len(fn.Returns))

		case Pop:
			var v Value
			if v, err = stack.Pop(); err == nil && v.IsResource() {
				err = invariantViolation("%s: pop of resource", fn.Name)
			}

		case LdU64:
			err = stack.Push(U64(ins.Arg))

		case LdTrue:
			err = stack.Push(Bool(true))

		case LdFalse:
			err = stack.Push(Bool(false))

		case LdConst:
			err = stack.Push(ByteArray(append([]byte{}, m.Constants[ins.Arg]...)))

		case LdAddr:
			err = stack.Push(Address(m.Addresses[ins.Arg]))

		case LdSender:
			err = stack.Push(Address(in.env.Sender))

		case CopyLoc:
			v := locals[ins.Arg]
			switch {
			case !v.IsValid():
				err = unreachable("%s: copy of empty local %d", fn.Name, ins.Arg)
			case v.IsResource():
				err = invariantViolation("%s: copy of resource in local %d", fn.Name, ins.Arg)
			default:
				err = stack.Push(v.Copy())
			}

		case MoveLoc:
			v := locals[ins.Arg]
			if !v.IsValid() {
				err = unreachable("%s: move of empty local %d", fn.Name, ins.Arg)
				break
			}
			locals[ins.Arg] = Value{}
			err = stack.Push(v)

		case StLoc:
			var v Value
			if v, err = stack.Pop(); err != nil {
				break
			}
			if locals[ins.Arg].IsResource() {
				err = invariantViolation("%s: overwrite of resource in local %d", fn.Name, ins.Arg)
				break
			}
			locals[ins.Arg] = v

		case Add, Sub, Mul, Div, Mod:
			err = arith(stack, ins.Op)

		case Lt, Gt:
			var l, r uint64
			if r, err = stack.PopU64(); err != nil {
				break
			}
			if l, err = stack.PopU64(); err != nil {
				break
			}
			if ins.Op == Lt {
				err = stack.Push(Bool(l < r))
			} else {
				err = stack.Push(Bool(l > r))
			}

		case Eq:
			var vals []Value
			if vals, err = stack.PopN(2); err != nil {
				break
			}
			if vals[0].IsResource() || vals[1].IsResource() {
				err = invariantViolation("%s: equality on resource", fn.Name)
				break
			}
			err = stack.Push(Bool(vals[0].Equal(vals[1])))

		case Not:
			var b bool
			if b, err = stack.PopBool(); err == nil {
				err = stack.Push(Bool(!b))
			}

		case And, Or:
			var l, r bool
			if r, err = stack.PopBool(); err != nil {
				break
			}
			if l, err = stack.PopBool(); err != nil {
				break
			}
			if ins.Op == And {
				err = stack.Push(Bool(l && r))
			} else {
				err = stack.Push(Bool(l || r))
			}

		case Branch:
			next = int(ins.Arg)

		case BrTrue, BrFalse:
			var cond bool
			if cond, err = stack.PopBool(); err == nil && cond == (ins.Op == BrTrue) {
				next = int(ins.Arg)
			}

		case Call:
			err = in.call(ctx, m, m.Handles[ins.Arg], stack)

		case Pack:
			def := m.Structs[ins.Arg]
			var fields []Value
			if fields, err = stack.PopN(len(def.Fields)); err != nil {
				break
			}
			for i, f := range fields {
				if f.Kind() != def.Fields[i] {
					err = unreachable("pack %s field %d: expected %v found %v", def.Name, i, def.Fields[i], f.Kind())
					break
				}
			}
			if err == nil {
				err = stack.Push(Struct(def.Resource, fields...))
			}

		case Unpack:
			def := m.Structs[ins.Arg]
			var v Value
			if v, err = stack.PopStruct(); err != nil {
				break
			}
			if len(v.Fields()) != len(def.Fields) {
				err = unreachable("unpack %s: expected %d fields found %d", def.Name, len(def.Fields), len(v.Fields()))
				break
			}
			for _, f := range v.Fields() {
				if err = stack.Push(f); err != nil {
					break
				}
			}

		case Exists:
			var addr types.AccountAddress
			if addr, err = stack.PopAddress(); err != nil {
				break
			}
			var ok bool
			if _, ok, err = in.env.Data.Read(types.ResourcePath(addr, m.StructTag(int(ins.Arg)))); err != nil {
				err = storageError(err)
				break
			}
			err = stack.Push(Bool(ok))

		case MoveFrom:
			var addr types.AccountAddress
			if addr, err = stack.PopAddress(); err != nil {
				break
			}
			err = in.moveFrom(stack, types.ResourcePath(addr, m.StructTag(int(ins.Arg))))

		case MoveToSender:
			var v Value
			if v, err = stack.PopStruct(); err != nil {
				break
			}
			err = in.moveTo(v, types.ResourcePath(in.env.Sender, m.StructTag(int(ins.Arg))))

		case Abort:
			var code uint64
			if code, err = stack.PopU64(); err != nil {
				break
			}
			in.env.Logger.Debug("execution aborted", "module", m.ID, "function", fn.Name, "code", code)
			return nil, types.NewVMStatus(types.StatusAborted).WithSubStatus(code).
				WithMessage("%v::%s", m.ID, fn.Name)

		default:
			err = unreachable("invalid opcode %v at pc %d", ins.Op, pc)
		}

		if err != nil {
			return nil, err
		}
		pc = next
	}
	return nil, unreachable("%s: fell off the end of the code", fn.Name)
}

func arith(stack *Stack, op Opcode) error {
	r, err := stack.PopU64()
	if err != nil {
		return err
	}
	l, err := stack.PopU64()
	if err != nil {
		return err
	}

	var (
		res      uint64
		overflow bool
	)
	switch op {
	case Add:
		res, overflow = tmmath.SafeAddUint64(l, r)
	case Sub:
		res, overflow = tmmath.SafeSubUint64(l, r)
	case Mul:
		res, overflow = tmmath.SafeMulUint64(l, r)
	case Div, Mod:
		if r == 0 {
			return types.NewVMStatus(types.StatusArithmeticError).WithMessage("%v by zero", op)
		}
		if op == Div {
			res = l / r
		} else {
			res = l % r
		}
	}
	if overflow {
		return types.NewVMStatus(types.StatusArithmeticError).WithMessage("%d %v %d overflows", l, op, r)
	}
	return stack.Push(U64(res))
}

func (in *Interpreter) call(ctx context.Context, m *Module, h FunctionHandle, stack *Stack) error {
	callee, fn, err := in.resolve(ctx, m, h)
	if err != nil {
		return err
	}
	args, err := stack.PopN(len(fn.Params))
	if err != nil {
		return err
	}

	var rets []Value
	if fn.Native {
		rets, err = in.callNative(NativeID{Module: callee.ID, Function: fn.Name}, args)
	} else {
		for i, arg := range args {
			if arg.Kind() != fn.Params[i] {
				return unreachable("call %v::%s argument %d: expected %v found %v", h.Module, h.Name, i, fn.Params[i], arg.Kind())
			}
		}
		rets, err = in.run(ctx, callee, fn, args)
	}
	if err != nil {
		return err
	}
	for _, v := range rets {
		if err := stack.Push(v); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) moveFrom(stack *Stack, ap types.AccessPath) error {
	blob, ok, err := in.env.Data.Read(ap)
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return types.NewVMStatus(types.StatusMissingData).WithMessage("%v", ap)
	}
	v, err := DecodeValue(blob)
	if err != nil {
		return invariantViolation("decoding resource at %v: %v", ap, err)
	}
	in.env.Data.Delete(ap)
	return stack.Push(v)
}

func (in *Interpreter) moveTo(v Value, ap types.AccessPath) error {
	_, exists, err := in.env.Data.Read(ap)
	if err != nil {
		return storageError(err)
	}
	if exists {
		return types.NewVMStatus(types.StatusResourceAlreadyExists).WithMessage("%v", ap)
	}
	in.env.Data.Write(ap, EncodeValue(v))
	return nil
}

// String renders a function's code for debugging.
func (f *FunctionDef) String() string {
	s := fmt.Sprintf("%s(%v) -> %v", f.Name, f.Params, f.Returns)
	for pc, ins := range f.Code {
		s += fmt.Sprintf("\n  %3d: %v", pc, ins)
	}
	return s
}
