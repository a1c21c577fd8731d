package vm

import "fmt"

// Opcode is a bytecode instruction.
type Opcode uint8

const (
	Ret Opcode = iota + 1
	Pop
	LdU64 // arg: value
	LdTrue
	LdFalse
	LdConst // arg: constant pool index
	LdAddr  // arg: address pool index
	LdSender
	CopyLoc // arg: local index
	MoveLoc // arg: local index
	StLoc   // arg: local index
	Add
	Sub
	Mul
	Div
	Mod
	Lt
	Gt
	Eq
	Not
	And
	Or
	Branch       // arg: code offset
	BrTrue       // arg: code offset
	BrFalse      // arg: code offset
	Call         // arg: function handle index
	Pack         // arg: struct definition index
	Unpack       // arg: struct definition index
	Exists       // arg: struct definition index
	MoveFrom     // arg: struct definition index
	MoveToSender // arg: struct definition index
	Abort

	// NumOpcodes is one past the largest opcode.
	NumOpcodes
)

var opcodeNames = [NumOpcodes]string{
	Ret:          "Ret",
	Pop:          "Pop",
	LdU64:        "LdU64",
	LdTrue:       "LdTrue",
	LdFalse:      "LdFalse",
	LdConst:      "LdConst",
	LdAddr:       "LdAddr",
	LdSender:     "LdSender",
	CopyLoc:      "CopyLoc",
	MoveLoc:      "MoveLoc",
	StLoc:        "StLoc",
	Add:          "Add",
	Sub:          "Sub",
	Mul:          "Mul",
	Div:          "Div",
	Mod:          "Mod",
	Lt:           "Lt",
	Gt:           "Gt",
	Eq:           "Eq",
	Not:          "Not",
	And:          "And",
	Or:           "Or",
	Branch:       "Branch",
	BrTrue:       "BrTrue",
	BrFalse:      "BrFalse",
	Call:         "Call",
	Pack:         "Pack",
	Unpack:       "Unpack",
	Exists:       "Exists",
	MoveFrom:     "MoveFrom",
	MoveToSender: "MoveToSender",
	Abort:        "Abort",
}

func (op Opcode) IsValid() bool {
	return op >= Ret && op < NumOpcodes
}

func (op Opcode) String() string {
	if op.IsValid() {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(0x%02x)", uint8(op))
}

// ParseOpcode is the inverse of Opcode.String.
func ParseOpcode(name string) (Opcode, error) {
	for op := Ret; op < NumOpcodes; op++ {
		if opcodeNames[op] == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown opcode %q", name)
}

// HasArg reports whether the instruction carries an immediate operand.
func (op Opcode) HasArg() bool {
	switch op {
	case LdU64, LdConst, LdAddr, CopyLoc, MoveLoc, StLoc,
		Branch, BrTrue, BrFalse, Call,
		Pack, Unpack, Exists, MoveFrom, MoveToSender:
		return true
	default:
		return false
	}
}

// IsBranch reports whether Arg is a code offset.
func (op Opcode) IsBranch() bool {
	return op == Branch || op == BrTrue || op == BrFalse
}

// Instruction is one decoded instruction. Arg is zero for opcodes without
// an operand.
type Instruction struct {
	Op  Opcode
	Arg uint64
}

func (ins Instruction) String() string {
	if ins.Op.HasArg() {
		return fmt.Sprintf("%v(%d)", ins.Op, ins.Arg)
	}
	return ins.Op.String()
}
