package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tendermint/vmruntime/types"
)

func TestBytearrayConcat(t *testing.T) {
	natives := DefaultNatives()
	res, err := natives.Dispatch(NativeBytearrayConcat, []Value{
		ByteArray([]byte{0x01, 0x02}),
		ByteArray([]byte{0x03}),
	})
	require.NoError(t, err)
	require.Len(t, res.Values, 1)
	out, ok := res.Values[0].AsByteArray()
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, out)
	assert.Equal(t, AbstractUnits(3), res.Cost)
}

func TestNativeArityMismatch(t *testing.T) {
	natives := DefaultNatives()
	testCases := []struct {
		name string
		args []Value
		msg  string
	}{
		{"one", []Value{ByteArray([]byte{1})}, "wrong number of arguments for bytearray_concat expected 2 found 1"},
		{"three", []Value{ByteArray(nil), ByteArray(nil), ByteArray(nil)}, "wrong number of arguments for bytearray_concat expected 2 found 3"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := natives.Dispatch(NativeBytearrayConcat, tc.args)
			require.Error(t, err)
			st := types.StatusOf(err)
			assert.Equal(t, types.StatusUnreachable, st.Code)
			assert.Equal(t, tc.msg, st.Message)
		})
	}
}

func TestNativeArityFollowsParams(t *testing.T) {
	sum3 := NativeID{Module: U64UtilModule, Function: "sum3"}
	natives := NewNativeDispatcher(map[NativeID]NativeFunction{
		sum3: {
			Params: []ValueKind{KindU64, KindU64, KindU64},
			Fn: func(args *Stack) (NativeResult, error) {
				var total uint64
				for i := 0; i < 3; i++ {
					x, err := args.PopU64()
					if err != nil {
						return NativeResult{}, err
					}
					total += x
				}
				return NativeResult{Cost: 1, Values: []Value{U64(total)}}, nil
			},
		},
	})

	fn, ok := natives.Lookup(sum3)
	require.True(t, ok)
	assert.Equal(t, 3, fn.Arity())

	_, err := natives.Dispatch(sum3, []Value{U64(1), U64(2)})
	st := types.StatusOf(err)
	assert.Equal(t, types.StatusUnreachable, st.Code)
	assert.Equal(t, "wrong number of arguments for sum3 expected 3 found 2", st.Message)

	res, err := natives.Dispatch(sum3, []Value{U64(1), U64(2), U64(3)})
	require.NoError(t, err)
	require.Len(t, res.Values, 1)
	total, ok := res.Values[0].AsU64()
	require.True(t, ok)
	assert.Equal(t, uint64(6), total)

	for _, id := range DefaultNatives().IDs() {
		fn, ok := DefaultNatives().Lookup(id)
		require.True(t, ok)
		assert.Equal(t, len(fn.Params), fn.Arity(), id.String())
	}
}

func TestNativeTypeMismatchIsUnreachable(t *testing.T) {
	_, err := DefaultNatives().Dispatch(NativeBytearrayConcat, []Value{ByteArray(nil), U64(1)})
	assert.Equal(t, types.StatusUnreachable, types.StatusOf(err).Code)

	_, err = DefaultNatives().Dispatch(NativeU64ToBytes, []Value{Bool(true)})
	assert.Equal(t, types.StatusUnreachable, types.StatusOf(err).Code)

	_, err = DefaultNatives().Dispatch(NativeID{Module: HashModule, Function: "keccak"}, nil)
	assert.Equal(t, types.StatusLinkerError, types.StatusOf(err).Code)
}

func TestConversionNativesAreDeterministic(t *testing.T) {
	natives := DefaultNatives()
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Uint64().Draw(t, "x").(uint64)
		raw := rapid.SliceOfN(rapid.Byte(), types.AddressLength, types.AddressLength).Draw(t, "addr").([]byte)
		addr, err := types.AddressFromBytes(raw)
		require.NoError(t, err)

		for _, call := range []struct {
			id   NativeID
			arg  Value
			size int
		}{
			{NativeU64ToBytes, U64(x), 8},
			{NativeAddressToBytes, Address(addr), types.AddressLength},
		} {
			first, err := natives.Dispatch(call.id, []Value{call.arg})
			require.NoError(t, err)
			second, err := natives.Dispatch(call.id, []Value{call.arg})
			require.NoError(t, err)

			out, ok := first.Values[0].AsByteArray()
			require.True(t, ok)
			assert.Len(t, out, call.size)
			assert.Equal(t, AbstractUnits(call.size), first.Cost)
			assert.True(t, first.Values[0].Equal(second.Values[0]))
			assert.Equal(t, first.Cost, second.Cost)
		}
	})
}

func TestU64ToBytesIsLittleEndian(t *testing.T) {
	res, err := DefaultNatives().Dispatch(NativeU64ToBytes, []Value{U64(0x0102)})
	require.NoError(t, err)
	out, _ := res.Values[0].AsByteArray()
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, out)
}

func TestSha3Native(t *testing.T) {
	res, err := DefaultNatives().Dispatch(NativeSha3256, []Value{ByteArray([]byte("abc"))})
	require.NoError(t, err)
	out, _ := res.Values[0].AsByteArray()
	assert.Len(t, out, 32)
	assert.Equal(t, AbstractUnits(3), res.Cost)
}

func TestParseNativeID(t *testing.T) {
	for _, id := range DefaultNatives().IDs() {
		parsed, err := ParseNativeID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
	for _, bad := range []string{"", "concat", "0x0::Hash::", "0x0::9Hash::f"} {
		_, err := ParseNativeID(bad)
		assert.Error(t, err, bad)
	}
}
