package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tendermint/vmruntime/types"
)

func TestArgStackPopsLastDeclaredFirst(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64().Draw(t, "a").(uint64)
		b := rapid.SliceOf(rapid.Byte()).Draw(t, "b").([]byte)

		st := NewArgStack([]Value{U64(a), ByteArray(b)})
		gotB, err := st.PopByteArray()
		require.NoError(t, err)
		gotA, err := st.PopU64()
		require.NoError(t, err)

		assert.Equal(t, a, gotA)
		assert.Equal(t, append([]byte{}, b...), gotB)
		assert.Equal(t, 0, st.Len())
	})
}

func TestStackPopNKeepsPushOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xs := rapid.SliceOfN(rapid.Uint64(), 0, 64).Draw(t, "xs").([]uint64)
		st := NewStack(DefaultStackCapacity)
		for _, x := range xs {
			require.NoError(t, st.Push(U64(x)))
		}
		vals, err := st.PopN(len(xs))
		require.NoError(t, err)
		for i, v := range vals {
			got, ok := v.AsU64()
			require.True(t, ok)
			assert.Equal(t, xs[i], got)
		}
	})
}

func TestStackErrors(t *testing.T) {
	st := NewStack(1)
	require.NoError(t, st.Push(Bool(true)))
	err := st.Push(Bool(false))
	assert.Equal(t, types.StatusExecutionStackOverflow, types.StatusOf(err).Code)

	_, err = st.PopU64()
	assert.Equal(t, types.StatusUnreachable, types.StatusOf(err).Code)
	assert.Contains(t, err.Error(), "expected u64 found bool")

	_, err = st.Pop()
	assert.Equal(t, types.StatusUnreachable, types.StatusOf(err).Code)

	_, err = st.PopN(1)
	assert.Error(t, err)

	_, ok := st.Peek()
	assert.False(t, ok)
}
