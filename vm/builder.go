package vm

import (
	"bytes"
	"fmt"

	"github.com/tendermint/vmruntime/types"
)

// ModuleBuilder assembles a Module in Go code. The genesis modules and
// tests are written with it.
type ModuleBuilder struct {
	id        types.ModuleID
	structs   []StructDef
	functions []*FunctionBuilder
	handles   []FunctionHandle
	constants [][]byte
	addresses []types.AccountAddress
}

func NewModuleBuilder(id types.ModuleID) *ModuleBuilder {
	return &ModuleBuilder{id: id}
}

// Struct declares a struct and returns its index.
func (b *ModuleBuilder) Struct(name string, resource bool, fields ...ValueKind) uint64 {
	b.structs = append(b.structs, StructDef{Name: name, Resource: resource, Fields: fields})
	return uint64(len(b.structs) - 1)
}

// Constant interns a byte-array constant and returns its index.
func (b *ModuleBuilder) Constant(bz []byte) uint64 {
	for i, c := range b.constants {
		if bytes.Equal(c, bz) {
			return uint64(i)
		}
	}
	b.constants = append(b.constants, append([]byte{}, bz...))
	return uint64(len(b.constants) - 1)
}

// AddressConstant interns an address constant and returns its index.
func (b *ModuleBuilder) AddressConstant(a types.AccountAddress) uint64 {
	for i, c := range b.addresses {
		if c == a {
			return uint64(i)
		}
	}
	b.addresses = append(b.addresses, a)
	return uint64(len(b.addresses) - 1)
}

// Handle interns a call target and returns its index.
func (b *ModuleBuilder) Handle(module types.ModuleID, name string) uint64 {
	h := FunctionHandle{Module: module, Name: name}
	for i, c := range b.handles {
		if c == h {
			return uint64(i)
		}
	}
	b.handles = append(b.handles, h)
	return uint64(len(b.handles) - 1)
}

// Native declares a public native function.
func (b *ModuleBuilder) Native(name string, params, returns []ValueKind) {
	b.functions = append(b.functions, &FunctionBuilder{
		def: FunctionDef{Name: name, Public: true, Native: true, Params: params, Returns: returns},
	})
}

// Function starts a bytecode function.
func (b *ModuleBuilder) Function(name string, public bool, params, returns, locals []ValueKind) *FunctionBuilder {
	fb := &FunctionBuilder{
		def:    FunctionDef{Name: name, Public: public, Params: params, Returns: returns, Locals: locals},
		labels: make(map[string]int),
	}
	b.functions = append(b.functions, fb)
	return fb
}

// Build resolves labels and verifies the module.
func (b *ModuleBuilder) Build() (*Module, error) {
	functions := make([]FunctionDef, 0, len(b.functions))
	for _, fb := range b.functions {
		def, err := fb.finish()
		if err != nil {
			return nil, fmt.Errorf("%v::%s: %w", b.id, fb.def.Name, err)
		}
		functions = append(functions, def)
	}
	m := NewModule(b.id, b.structs, functions, b.handles, b.constants, b.addresses)
	if err := VerifyModule(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MustBuild is Build that panics on error.
func (b *ModuleBuilder) MustBuild() *Module {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// FunctionBuilder appends instructions to one function.
type FunctionBuilder struct {
	def     FunctionDef
	labels  map[string]int
	pending map[int]string
}

// Op appends an instruction. Operands beyond the first are ignored.
func (fb *FunctionBuilder) Op(op Opcode, arg ...uint64) *FunctionBuilder {
	ins := Instruction{Op: op}
	if len(arg) > 0 {
		ins.Arg = arg[0]
	}
	fb.def.Code = append(fb.def.Code, ins)
	return fb
}

// Label marks the position of the next instruction.
func (fb *FunctionBuilder) Label(name string) *FunctionBuilder {
	fb.labels[name] = len(fb.def.Code)
	return fb
}

// Jump appends a branch to a label, which may be defined later.
func (fb *FunctionBuilder) Jump(op Opcode, label string) *FunctionBuilder {
	if fb.pending == nil {
		fb.pending = make(map[int]string)
	}
	fb.pending[len(fb.def.Code)] = label
	return fb.Op(op)
}

func (fb *FunctionBuilder) finish() (FunctionDef, error) {
	for pc, label := range fb.pending {
		target, ok := fb.labels[label]
		if !ok {
			return FunctionDef{}, fmt.Errorf("undefined label %q", label)
		}
		fb.def.Code[pc].Arg = uint64(target)
	}
	return fb.def, nil
}
