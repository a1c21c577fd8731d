package vm

import (
	"github.com/tendermint/vmruntime/types"
)

// StructDef declares a struct type. Resource structs are linear.
type StructDef struct {
	Name     string
	Resource bool
	Fields   []ValueKind
}

// FunctionHandle is a call target: a function of this or another module.
type FunctionHandle struct {
	Module types.ModuleID
	Name   string
}

// FunctionDef is a function declared by a module. Native functions have no
// code; calls to them go to the NativeDispatcher.
type FunctionDef struct {
	Name    string
	Public  bool
	Native  bool
	Params  []ValueKind
	Returns []ValueKind
	// Locals are the slots after the parameters.
	Locals []ValueKind
	Code   []Instruction
}

// NumLocals is the size of the frame: parameters plus locals.
func (f *FunctionDef) NumLocals() int {
	return len(f.Params) + len(f.Locals)
}

// Module is a loaded module. It is never modified after construction and
// may be shared between goroutines.
type Module struct {
	ID        types.ModuleID
	Structs   []StructDef
	Functions []FunctionDef
	Handles   []FunctionHandle
	Constants [][]byte
	Addresses []types.AccountAddress

	functionIndex map[string]int
}

// NewModule indexes the given definitions. It does not verify them.
func NewModule(
	id types.ModuleID,
	structs []StructDef,
	functions []FunctionDef,
	handles []FunctionHandle,
	constants [][]byte,
	addresses []types.AccountAddress,
) *Module {
	m := &Module{
		ID:        id,
		Structs:   structs,
		Functions: functions,
		Handles:   handles,
		Constants: constants,
		Addresses: addresses,
	}
	m.functionIndex = make(map[string]int, len(functions))
	for i := range functions {
		if _, ok := m.functionIndex[functions[i].Name]; !ok {
			m.functionIndex[functions[i].Name] = i
		}
	}
	return m
}

// Function looks up a function by name.
func (m *Module) Function(name string) (*FunctionDef, bool) {
	i, ok := m.functionIndex[name]
	if !ok {
		return nil, false
	}
	return &m.Functions[i], true
}

// StructTag returns the tag of the struct declared at idx.
func (m *Module) StructTag(idx int) types.StructTag {
	return types.StructTag{Module: m.ID, Name: m.Structs[idx].Name}
}
