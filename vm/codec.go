package vm

import (
	"fmt"

	"github.com/tendermint/vmruntime/internal/libs/protoio"
	"github.com/tendermint/vmruntime/types"
)

const (
	// MaxModuleItems bounds every table of a module.
	MaxModuleItems = 1 << 16
	// MaxCodeLength bounds the instruction count of a function.
	MaxCodeLength = 1 << 16
	// MaxSignatureLength bounds parameter, return and local lists.
	MaxSignatureLength = 255
	// MaxModuleSize bounds an encoded module.
	MaxModuleSize = 1 << 20
)

// EncodeModule returns the binary form of m that DecodeModule reads.
func EncodeModule(m *Module) []byte {
	enc := protoio.NewEncoder()
	enc.Raw(m.ID.Address[:]).String(m.ID.Name)

	enc.Uvarint(uint64(len(m.Structs)))
	for _, s := range m.Structs {
		enc.String(s.Name).Bool(s.Resource)
		encodeKinds(enc, s.Fields)
	}

	enc.Uvarint(uint64(len(m.Constants)))
	for _, c := range m.Constants {
		enc.Bytes(c)
	}

	enc.Uvarint(uint64(len(m.Addresses)))
	for _, a := range m.Addresses {
		enc.Raw(a[:])
	}

	enc.Uvarint(uint64(len(m.Handles)))
	for _, h := range m.Handles {
		enc.Raw(h.Module.Address[:]).String(h.Module.Name).String(h.Name)
	}

	enc.Uvarint(uint64(len(m.Functions)))
	for _, f := range m.Functions {
		enc.String(f.Name).Bool(f.Public).Bool(f.Native)
		encodeKinds(enc, f.Params)
		encodeKinds(enc, f.Returns)
		encodeKinds(enc, f.Locals)
		enc.Uvarint(uint64(len(f.Code)))
		for _, ins := range f.Code {
			enc.Uvarint(uint64(ins.Op))
			if ins.Op.HasArg() {
				enc.Uvarint(ins.Arg)
			}
		}
	}
	return enc.Output()
}

func encodeKinds(enc *protoio.Encoder, kinds []ValueKind) {
	enc.Uvarint(uint64(len(kinds)))
	for _, k := range kinds {
		enc.Uvarint(uint64(k))
	}
}

func decodeKinds(dec *protoio.Decoder) ([]ValueKind, error) {
	n := dec.Count(MaxSignatureLength)
	kinds := make([]ValueKind, 0, n)
	for i := 0; i < n; i++ {
		raw := dec.Uvarint()
		if raw > uint64(KindStruct) {
			return nil, fmt.Errorf("invalid value kind %d", raw)
		}
		kinds = append(kinds, ValueKind(raw))
	}
	return kinds, dec.Err()
}

func decodeAddress(dec *protoio.Decoder) types.AccountAddress {
	var a types.AccountAddress
	copy(a[:], dec.Raw(types.AddressLength))
	return a
}

// DecodeModule parses an encoded module. The result is not verified.
func DecodeModule(bz []byte) (*Module, error) {
	if len(bz) > MaxModuleSize {
		return nil, fmt.Errorf("module too large: %d > %d", len(bz), MaxModuleSize)
	}
	dec := protoio.NewDecoder(bz)
	var id types.ModuleID
	id.Address = decodeAddress(dec)
	id.Name = dec.String()

	var err error
	structs := make([]StructDef, dec.Count(MaxModuleItems))
	for i := range structs {
		structs[i].Name = dec.String()
		structs[i].Resource = dec.Bool()
		if structs[i].Fields, err = decodeKinds(dec); err != nil {
			return nil, err
		}
	}

	constants := make([][]byte, dec.Count(MaxModuleItems))
	for i := range constants {
		constants[i] = dec.Bytes()
	}

	addresses := make([]types.AccountAddress, dec.Count(MaxModuleItems))
	for i := range addresses {
		addresses[i] = decodeAddress(dec)
	}

	handles := make([]FunctionHandle, dec.Count(MaxModuleItems))
	for i := range handles {
		handles[i].Module.Address = decodeAddress(dec)
		handles[i].Module.Name = dec.String()
		handles[i].Name = dec.String()
	}

	functions := make([]FunctionDef, dec.Count(MaxModuleItems))
	for i := range functions {
		f := &functions[i]
		f.Name = dec.String()
		f.Public = dec.Bool()
		f.Native = dec.Bool()
		if f.Params, err = decodeKinds(dec); err != nil {
			return nil, err
		}
		if f.Returns, err = decodeKinds(dec); err != nil {
			return nil, err
		}
		if f.Locals, err = decodeKinds(dec); err != nil {
			return nil, err
		}
		n := dec.Count(MaxCodeLength)
		if n > 0 {
			f.Code = make([]Instruction, n)
		}
		for j := 0; j < n; j++ {
			raw := dec.Uvarint()
			if err := dec.Err(); err != nil {
				return nil, err
			}
			op := Opcode(raw)
			if raw >= uint64(NumOpcodes) || !op.IsValid() {
				return nil, fmt.Errorf("function %s: invalid opcode %d", f.Name, raw)
			}
			f.Code[j].Op = op
			if op.HasArg() {
				f.Code[j].Arg = dec.Uvarint()
			}
		}
		if err := dec.Err(); err != nil {
			return nil, err
		}
	}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	return NewModule(id, structs, functions, handles, constants, addresses), nil
}
