package protoio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogo/protobuf/proto"
)

var (
	ErrTruncated     = errors.New("unexpected end of input")
	ErrTrailingBytes = errors.New("trailing bytes after value")
	ErrInvalidBool   = errors.New("invalid boolean encoding")
)

// Decoder reads what an Encoder wrote. The first error is sticky: once
// set, every further read returns a zero value and Err reports it.
//
// Not goroutine safe.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder returns a Decoder over bz. bz is not retained past the
// returned slices, which are always copies.
func NewDecoder(bz []byte) *Decoder {
	return &Decoder{buf: bz}
}

func (d *Decoder) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first error encountered, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Finish returns the first decoding error, or ErrTrailingBytes when input
// remains unread.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d bytes", ErrTrailingBytes, len(d.buf)-d.off)
	}
	return nil
}

func (d *Decoder) Uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	x, n := proto.DecodeVarint(d.buf[d.off:])
	if n == 0 {
		d.setErr(ErrTruncated)
		return 0
	}
	d.off += n
	return x
}

func (d *Decoder) Fixed64() uint64 {
	raw := d.Raw(8)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(raw)
}

func (d *Decoder) Bool() bool {
	switch d.Uvarint() {
	case 0:
		return false
	case 1:
		return true
	default:
		d.setErr(ErrInvalidBool)
		return false
	}
}

// Bytes reads a length-prefixed byte string. An empty string decodes to a
// non-nil empty slice.
func (d *Decoder) Bytes() []byte {
	n := d.Uvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.buf)-d.off) {
		d.setErr(ErrTruncated)
		return nil
	}
	return d.Raw(int(n))
}

func (d *Decoder) String() string {
	return string(d.Bytes())
}

// Raw reads exactly n bytes.
func (d *Decoder) Raw(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.buf)-d.off {
		d.setErr(ErrTruncated)
		return nil
	}
	out := make([]byte, n)
	copy(out, d.buf[d.off:d.off+n])
	d.off += n
	return out
}

// Count reads a varint element count and rejects counts above max.
func (d *Decoder) Count(max int) int {
	n := d.Uvarint()
	if d.err != nil {
		return 0
	}
	if n > uint64(max) {
		d.setErr(fmt.Errorf("element count %d exceeds limit %d", n, max))
		return 0
	}
	return int(n)
}
