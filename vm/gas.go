package vm

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	tmmath "github.com/tendermint/vmruntime/libs/math"
	"github.com/tendermint/vmruntime/types"
)

// ErrOutOfGas is returned by every charge that exceeds the remaining
// budget.
var ErrOutOfGas = types.NewVMStatus(types.StatusOutOfGas)

// GasUnits is what transactions pay for. AbstractUnits is what the cost
// table prices work in; CostTable.ToGas converts between them.
type (
	GasUnits      uint64
	AbstractUnits uint64
)

// GasCost prices one instruction or native call: a fixed part plus a part
// proportional to the size of the data involved.
type GasCost struct {
	Instruction AbstractUnits `toml:"instruction"`
	Memory      AbstractUnits `toml:"memory"`
}

// Total returns Instruction + Memory*size.
func (c GasCost) Total(size uint64) (AbstractUnits, error) {
	mem, overflow := tmmath.SafeMulUint64(uint64(c.Memory), size)
	if overflow {
		return 0, tmmath.ErrOverflowUint64
	}
	total, overflow := tmmath.SafeAddUint64(uint64(c.Instruction), mem)
	if overflow {
		return 0, tmmath.ErrOverflowUint64
	}
	return AbstractUnits(total), nil
}

// CostTable maps instructions and natives to their cost.
type CostTable struct {
	// UnitMultiplier is the number of gas units per abstract unit.
	UnitMultiplier uint64
	Instructions   [NumOpcodes]GasCost
	Natives        map[NativeID]GasCost
	// DefaultNative prices natives missing from Natives.
	DefaultNative GasCost
}

// DefaultCostTable is the table user transactions run under.
func DefaultCostTable() *CostTable {
	t := &CostTable{
		UnitMultiplier: 1,
		Natives:        make(map[NativeID]GasCost),
		DefaultNative:  GasCost{Memory: 1},
	}
	for op := Ret; op < NumOpcodes; op++ {
		t.Instructions[op] = GasCost{Instruction: 1}
	}
	t.Instructions[LdConst] = GasCost{Instruction: 1, Memory: 1}
	t.Instructions[Call] = GasCost{Instruction: 4}
	t.Instructions[Exists] = GasCost{Instruction: 10}
	t.Instructions[MoveFrom] = GasCost{Instruction: 20}
	t.Instructions[MoveToSender] = GasCost{Instruction: 20, Memory: 1}
	return t
}

// ZeroCostTable prices everything at zero. Every charge made under it is a
// no-op; only the block prologue runs with it.
func ZeroCostTable() *CostTable {
	return &CostTable{Natives: make(map[NativeID]GasCost)}
}

// IsZero reports whether every charge under t is free.
func (t *CostTable) IsZero() bool {
	return t.UnitMultiplier == 0
}

// ToGas converts abstract units to gas units.
func (t *CostTable) ToGas(units AbstractUnits) (GasUnits, error) {
	if t.IsZero() {
		return 0, nil
	}
	g, overflow := tmmath.SafeMulUint64(uint64(units), t.UnitMultiplier)
	if overflow {
		return 0, tmmath.ErrOverflowUint64
	}
	return GasUnits(g), nil
}

func (t *CostTable) InstructionCost(op Opcode) GasCost {
	if !op.IsValid() {
		return GasCost{}
	}
	return t.Instructions[op]
}

func (t *CostTable) NativeCost(id NativeID) GasCost {
	if c, ok := t.Natives[id]; ok {
		return c
	}
	return t.DefaultNative
}

type costTableFile struct {
	UnitMultiplier uint64             `toml:"unit_multiplier"`
	DefaultNative  GasCost            `toml:"default_native"`
	Instructions   map[string]GasCost `toml:"instructions"`
	Natives        map[string]GasCost `toml:"natives"`
}

// LoadCostTable reads a TOML cost table. Entries the file omits keep their
// DefaultCostTable price.
func LoadCostTable(path string) (*CostTable, error) {
	var file costTableFile
	file.UnitMultiplier = 1
	file.DefaultNative = DefaultCostTable().DefaultNative
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("reading cost table %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in cost table %s: %v", path, undecoded)
	}

	t := DefaultCostTable()
	t.UnitMultiplier = file.UnitMultiplier
	t.DefaultNative = file.DefaultNative
	for name, cost := range file.Instructions {
		op, err := ParseOpcode(name)
		if err != nil {
			return nil, err
		}
		t.Instructions[op] = cost
	}
	for name, cost := range file.Natives {
		id, err := ParseNativeID(name)
		if err != nil {
			return nil, err
		}
		t.Natives[id] = cost
	}
	return t, nil
}

// WriteTOML writes t in the format LoadCostTable reads.
func (t *CostTable) WriteTOML(w io.Writer) error {
	file := costTableFile{
		UnitMultiplier: t.UnitMultiplier,
		DefaultNative:  t.DefaultNative,
		Instructions:   make(map[string]GasCost, NumOpcodes),
		Natives:        make(map[string]GasCost, len(t.Natives)),
	}
	for op := Ret; op < NumOpcodes; op++ {
		file.Instructions[op.String()] = t.Instructions[op]
	}
	for id, cost := range t.Natives {
		file.Natives[id.String()] = cost
	}
	return toml.NewEncoder(w).Encode(file)
}

// GasMeter tracks the remaining budget of one transaction.
//
// Not goroutine safe.
type GasMeter struct {
	table     *CostTable
	budget    GasUnits
	remaining GasUnits
}

func NewGasMeter(budget GasUnits, table *CostTable) *GasMeter {
	return &GasMeter{table: table, budget: budget, remaining: budget}
}

// ChargeGas debits g. On failure the budget is left untouched.
func (m *GasMeter) ChargeGas(g GasUnits) error {
	if g > m.remaining {
		return ErrOutOfGas
	}
	m.remaining -= g
	return nil
}

// Charge converts units through the cost table and debits the result.
func (m *GasMeter) Charge(units AbstractUnits) error {
	g, err := m.table.ToGas(units)
	if err != nil {
		return ErrOutOfGas
	}
	return m.ChargeGas(g)
}

// ChargeInstruction charges one execution of op touching size units of
// memory.
func (m *GasMeter) ChargeInstruction(op Opcode, size uint64) error {
	if m.table.IsZero() {
		return nil
	}
	total, err := m.table.InstructionCost(op).Total(size)
	if err != nil {
		return ErrOutOfGas
	}
	return m.Charge(total)
}

// ChargeNative charges a native call that reported the given cost.
func (m *GasMeter) ChargeNative(id NativeID, cost AbstractUnits) error {
	if m.table.IsZero() {
		return nil
	}
	total, err := m.table.NativeCost(id).Total(uint64(cost))
	if err != nil {
		return ErrOutOfGas
	}
	return m.Charge(total)
}

func (m *GasMeter) Table() *CostTable   { return m.table }
func (m *GasMeter) Budget() GasUnits    { return m.budget }
func (m *GasMeter) Remaining() GasUnits { return m.remaining }

// Used returns the gas consumed so far.
func (m *GasMeter) Used() GasUnits {
	return m.budget - m.remaining
}
