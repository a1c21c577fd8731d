package vm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/tendermint/vmruntime/internal/libs/protoio"
	"github.com/tendermint/vmruntime/types"
)

const (
	// maxValueDepth bounds struct nesting in decoded values.
	maxValueDepth = 32
	// maxStructFields bounds the field count of a struct value.
	maxStructFields = 255
)

// ValueKind is the runtime type of a Value.
type ValueKind uint8

const (
	KindU64 ValueKind = iota + 1
	KindBool
	KindAddress
	KindByteArray
	KindStruct
)

func (k ValueKind) IsValid() bool {
	return k >= KindU64 && k <= KindStruct
}

func (k ValueKind) String() string {
	switch k {
	case KindU64:
		return "u64"
	case KindBool:
		return "bool"
	case KindAddress:
		return "address"
	case KindByteArray:
		return "bytearray"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is a runtime value. The zero Value is invalid and marks an empty
// local slot.
//
// Structs flagged as resources are linear: the interpreter moves them but
// never copies or silently drops them.
type Value struct {
	kind     ValueKind
	u64      uint64
	b        bool
	addr     types.AccountAddress
	bytes    []byte
	fields   []Value
	resource bool
}

func U64(x uint64) Value { return Value{kind: KindU64, u64: x} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Address(a types.AccountAddress) Value { return Value{kind: KindAddress, addr: a} }

// ByteArray wraps bz. The caller must not modify bz afterwards.
func ByteArray(bz []byte) Value {
	if bz == nil {
		bz = []byte{}
	}
	return Value{kind: KindByteArray, bytes: bz}
}

// Struct builds a struct value from fields.
func Struct(resource bool, fields ...Value) Value {
	return Value{kind: KindStruct, fields: fields, resource: resource}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsValid() bool { return v.kind.IsValid() }

// IsResource reports whether v is a resource or holds one.
func (v Value) IsResource() bool {
	if v.kind != KindStruct {
		return false
	}
	if v.resource {
		return true
	}
	for _, f := range v.fields {
		if f.IsResource() {
			return true
		}
	}
	return false
}

func (v Value) AsU64() (uint64, bool)                   { return v.u64, v.kind == KindU64 }
func (v Value) AsBool() (bool, bool)                    { return v.b, v.kind == KindBool }
func (v Value) AsAddress() (types.AccountAddress, bool) { return v.addr, v.kind == KindAddress }
func (v Value) AsByteArray() ([]byte, bool)             { return v.bytes, v.kind == KindByteArray }
func (v Value) Fields() []Value                         { return v.fields }

// Copy returns a deep copy of v.
func (v Value) Copy() Value {
	cp := v
	if v.bytes != nil {
		cp.bytes = append([]byte{}, v.bytes...)
	}
	if v.fields != nil {
		cp.fields = make([]Value, len(v.fields))
		for i, f := range v.fields {
			cp.fields[i] = f.Copy()
		}
	}
	return cp
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindU64:
		return v.u64 == other.u64
	case KindBool:
		return v.b == other.b
	case KindAddress:
		return v.addr == other.addr
	case KindByteArray:
		return bytes.Equal(v.bytes, other.bytes)
	case KindStruct:
		if v.resource != other.resource || len(v.fields) != len(other.fields) {
			return false
		}
		for i := range v.fields {
			if !v.fields[i].Equal(other.fields[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Size is the abstract memory size of v, used for memory gas.
func (v Value) Size() uint64 {
	switch v.kind {
	case KindU64:
		return 8
	case KindBool:
		return 1
	case KindAddress:
		return types.AddressLength
	case KindByteArray:
		return uint64(len(v.bytes))
	case KindStruct:
		var n uint64 = 1
		for _, f := range v.fields {
			n += f.Size()
		}
		return n
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindU64:
		return fmt.Sprintf("%d", v.u64)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindAddress:
		return v.addr.ShortString()
	case KindByteArray:
		return fmt.Sprintf("b\"%X\"", v.bytes)
	case KindStruct:
		parts := make([]string, len(v.fields))
		for i, f := range v.fields {
			parts[i] = f.String()
		}
		prefix := "struct"
		if v.resource {
			prefix = "resource"
		}
		return prefix + "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid>"
	}
}

// ValueFromArgument converts a transaction argument into a Value.
func ValueFromArgument(arg types.TransactionArgument) (Value, error) {
	switch arg.Kind {
	case types.ArgumentU64:
		return U64(arg.U64), nil
	case types.ArgumentAddress:
		return Address(arg.Address), nil
	case types.ArgumentByteArray:
		return ByteArray(append([]byte{}, arg.ByteArray...)), nil
	case types.ArgumentBool:
		return Bool(arg.Bool), nil
	default:
		return Value{}, fmt.Errorf("unsupported argument kind %v", arg.Kind)
	}
}

// EncodeValue returns the storage encoding of v.
func EncodeValue(v Value) []byte {
	enc := protoio.NewEncoder()
	encodeValue(enc, v)
	return enc.Output()
}

func encodeValue(enc *protoio.Encoder, v Value) {
	enc.Uvarint(uint64(v.kind))
	switch v.kind {
	case KindU64:
		enc.Fixed64(v.u64)
	case KindBool:
		enc.Bool(v.b)
	case KindAddress:
		enc.Raw(v.addr[:])
	case KindByteArray:
		enc.Bytes(v.bytes)
	case KindStruct:
		enc.Bool(v.resource).Uvarint(uint64(len(v.fields)))
		for _, f := range v.fields {
			encodeValue(enc, f)
		}
	}
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(bz []byte) (Value, error) {
	dec := protoio.NewDecoder(bz)
	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, err
	}
	return v, dec.Finish()
}

func decodeValue(dec *protoio.Decoder, depth int) (Value, error) {
	if depth > maxValueDepth {
		return Value{}, errors.New("value nesting too deep")
	}
	kind := ValueKind(dec.Uvarint())
	if err := dec.Err(); err != nil {
		return Value{}, err
	}
	var v Value
	switch kind {
	case KindU64:
		v = U64(dec.Fixed64())
	case KindBool:
		v = Bool(dec.Bool())
	case KindAddress:
		var a types.AccountAddress
		copy(a[:], dec.Raw(types.AddressLength))
		v = Address(a)
	case KindByteArray:
		v = ByteArray(dec.Bytes())
	case KindStruct:
		resource := dec.Bool()
		n := dec.Count(maxStructFields)
		fields := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			f, err := decodeValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, f)
		}
		v = Struct(resource, fields...)
	default:
		return Value{}, fmt.Errorf("unknown value kind %d", kind)
	}
	return v, dec.Err()
}
