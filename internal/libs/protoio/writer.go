package protoio

import (
	"github.com/gogo/protobuf/proto"
)

// Encoder writes the canonical encoding used for values, modules and
// transactions: a positional sequence of protobuf wire primitives (varints,
// little-endian fixed64 and varint-length-prefixed byte strings) without
// field tags. Two equal inputs always produce byte-identical output.
type Encoder struct {
	buf *proto.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: proto.NewBuffer(nil)}
}

// Uvarint appends x as a protobuf varint.
func (e *Encoder) Uvarint(x uint64) *Encoder {
	// proto.Buffer encoders only ever return nil
	_ = e.buf.EncodeVarint(x)
	return e
}

// Fixed64 appends x as eight little-endian bytes.
func (e *Encoder) Fixed64(x uint64) *Encoder {
	_ = e.buf.EncodeFixed64(x)
	return e
}

// Bool appends b as a single varint 0 or 1.
func (e *Encoder) Bool(b bool) *Encoder {
	if b {
		return e.Uvarint(1)
	}
	return e.Uvarint(0)
}

// Bytes appends bz prefixed with its varint length.
func (e *Encoder) Bytes(bz []byte) *Encoder {
	_ = e.buf.EncodeRawBytes(bz)
	return e
}

// String appends s prefixed with its varint length.
func (e *Encoder) String(s string) *Encoder {
	_ = e.buf.EncodeStringBytes(s)
	return e
}

// Raw appends bz verbatim. Only fixed-size fields may be written this way.
func (e *Encoder) Raw(bz []byte) *Encoder {
	e.buf.SetBuf(append(e.buf.Bytes(), bz...))
	return e
}

// Output returns the encoded bytes.
func (e *Encoder) Output() []byte {
	return e.buf.Bytes()
}
