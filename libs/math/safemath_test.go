package math_test

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"

	vmmath "github.com/tendermint/vmruntime/libs/math"
)

func TestSafeAddUint64(t *testing.T) {
	f := func(a, b uint64) bool {
		c, overflow := vmmath.SafeAddUint64(a, b)
		return (overflow && a > math.MaxUint64-b) || (!overflow && c == a+b)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestSafeSubUint64(t *testing.T) {
	f := func(a, b uint64) bool {
		c, underflow := vmmath.SafeSubUint64(a, b)
		return (underflow && b > a) || (!underflow && c == a-b)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestSafeMulUint64(t *testing.T) {
	testCases := []struct {
		a        uint64
		b        uint64
		c        uint64
		overflow bool
	}{
		0: {0, 0, 0, false},
		1: {1, 0, 0, false},
		2: {2, 3, 6, false},
		3: {math.MaxUint64, 1, math.MaxUint64, false},
		4: {math.MaxUint64 / 2, 2, math.MaxUint64 - 1, false},
		5: {math.MaxUint64 / 2, 3, 0, true},
		6: {math.MaxUint64, 2, 0, true},
	}

	for i, tc := range testCases {
		c, overflow := vmmath.SafeMulUint64(tc.a, tc.b)
		assert.Equal(t, tc.c, c, "#%d", i)
		assert.Equal(t, tc.overflow, overflow, "#%d", i)
	}
}

func TestSafeAddClipUint64(t *testing.T) {
	assert.EqualValues(t, uint64(math.MaxUint64), vmmath.SafeAddClipUint64(math.MaxUint64, 10))
	assert.EqualValues(t, 15, vmmath.SafeAddClipUint64(5, 10))
}

func TestSafeConvertUint16(t *testing.T) {
	v, err := vmmath.SafeConvertUint16(math.MaxUint16)
	assert.NoError(t, err)
	assert.EqualValues(t, math.MaxUint16, v)

	_, err = vmmath.SafeConvertUint16(math.MaxUint16 + 1)
	assert.Error(t, err)
	_, err = vmmath.SafeConvertUint16(-1)
	assert.Error(t, err)
}
