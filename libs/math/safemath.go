package math

import (
	"errors"
	"math"
	"math/bits"
)

var ErrOverflowUint64 = errors.New("uint64 overflow")
var ErrOverflowUint16 = errors.New("uint16 overflow")

// SafeAddUint64 adds two uint64 integers. The second return value reports
// whether the addition overflowed, in which case the first is zero.
func SafeAddUint64(a, b uint64) (uint64, bool) {
	c, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, true
	}
	return c, false
}

// SafeSubUint64 subtracts b from a. The second return value reports whether
// the subtraction would have gone below zero, in which case the first is zero.
func SafeSubUint64(a, b uint64) (uint64, bool) {
	c, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, true
	}
	return c, false
}

// SafeMulUint64 multiplies two uint64 integers. The second return value
// reports whether the product overflowed, in which case the first is zero.
func SafeMulUint64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, true
	}
	return lo, false
}

// SafeAddClipUint64 adds two uint64 integers and clips the result to
// math.MaxUint64 on overflow.
func SafeAddClipUint64(a, b uint64) uint64 {
	c, overflow := SafeAddUint64(a, b)
	if overflow {
		return math.MaxUint64
	}
	return c
}

// SafeConvertUint16 takes an int and checks if it overflows a uint16.
// If there is an overflow it returns an error
func SafeConvertUint16(a int) (uint16, error) {
	if a > math.MaxUint16 || a < 0 {
		return 0, ErrOverflowUint16
	}
	return uint16(a), nil
}
