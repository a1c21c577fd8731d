package vm

import (
	"fmt"

	"github.com/tendermint/vmruntime/types"
)

// maxFrameSize bounds parameters plus locals, since local indices are one
// byte.
const maxFrameSize = 256

func verificationError(format string, args ...interface{}) error {
	return types.NewVMStatus(types.StatusVerificationError).WithMessage(format, args...)
}

// VerifyModule runs the structural checks a module must pass before it is
// cached: identifiers, table bounds, operand indices and branch targets.
// Type and linearity checking belong to the bytecode verifier proper and
// are trusted here.
func VerifyModule(m *Module) error {
	if err := m.ID.ValidateBasic(); err != nil {
		return verificationError("module id: %v", err)
	}

	seen := make(map[string]struct{}, len(m.Structs))
	for i, s := range m.Structs {
		if !types.IsValidIdentifier(s.Name) {
			return verificationError("struct %d: invalid name %q", i, s.Name)
		}
		if _, ok := seen[s.Name]; ok {
			return verificationError("duplicate struct %s", s.Name)
		}
		seen[s.Name] = struct{}{}
		if len(s.Fields) > maxStructFields {
			return verificationError("struct %s: too many fields", s.Name)
		}
		if err := verifyKinds(s.Fields); err != nil {
			return verificationError("struct %s: %v", s.Name, err)
		}
	}

	for i, h := range m.Handles {
		if err := h.Module.ValidateBasic(); err != nil {
			return verificationError("handle %d: %v", i, err)
		}
		if !types.IsValidIdentifier(h.Name) {
			return verificationError("handle %d: invalid function name %q", i, h.Name)
		}
	}

	seen = make(map[string]struct{}, len(m.Functions))
	for i := range m.Functions {
		f := &m.Functions[i]
		if !types.IsValidIdentifier(f.Name) {
			return verificationError("function %d: invalid name %q", i, f.Name)
		}
		if _, ok := seen[f.Name]; ok {
			return verificationError("duplicate function %s", f.Name)
		}
		seen[f.Name] = struct{}{}
		if err := verifyFunction(m, f); err != nil {
			return verificationError("function %s: %v", f.Name, err)
		}
	}
	return nil
}

func verifyKinds(kinds []ValueKind) error {
	for _, k := range kinds {
		if !k.IsValid() {
			return fmt.Errorf("invalid type %v", k)
		}
	}
	return nil
}

func verifyFunction(m *Module, f *FunctionDef) error {
	for _, kinds := range [][]ValueKind{f.Params, f.Returns, f.Locals} {
		if err := verifyKinds(kinds); err != nil {
			return err
		}
	}
	if f.NumLocals() > maxFrameSize {
		return fmt.Errorf("frame of %d locals exceeds %d", f.NumLocals(), maxFrameSize)
	}

	if f.Native {
		if len(f.Code) != 0 {
			return fmt.Errorf("native function has code")
		}
		return nil
	}
	if len(f.Code) == 0 {
		return fmt.Errorf("empty function body")
	}
	switch last := f.Code[len(f.Code)-1].Op; last {
	case Ret, Branch, Abort:
	default:
		return fmt.Errorf("function ends with %v", last)
	}

	for pc, ins := range f.Code {
		if !ins.Op.IsValid() {
			return fmt.Errorf("pc %d: invalid opcode %v", pc, ins.Op)
		}
		if !ins.Op.HasArg() && ins.Arg != 0 {
			return fmt.Errorf("pc %d: unexpected operand on %v", pc, ins.Op)
		}
		var bound int
		switch ins.Op {
		case LdConst:
			bound = len(m.Constants)
		case LdAddr:
			bound = len(m.Addresses)
		case CopyLoc, MoveLoc, StLoc:
			bound = f.NumLocals()
		case Branch, BrTrue, BrFalse:
			bound = len(f.Code)
		case Call:
			bound = len(m.Handles)
		case Pack, Unpack:
			bound = len(m.Structs)
		case Exists, MoveFrom, MoveToSender:
			bound = len(m.Structs)
			if ins.Arg < uint64(bound) && !m.Structs[ins.Arg].Resource {
				return fmt.Errorf("pc %d: %v on non-resource struct %s", pc, ins.Op, m.Structs[ins.Arg].Name)
			}
		default:
			continue
		}
		if ins.Arg >= uint64(bound) {
			return fmt.Errorf("pc %d: %v operand %d out of bounds (%d)", pc, ins.Op, ins.Arg, bound)
		}
	}
	return nil
}
