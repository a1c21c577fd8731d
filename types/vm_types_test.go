package types_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/vmruntime/crypto"
	"github.com/tendermint/vmruntime/types"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		in      string
		short   string
		wantErr bool
	}{
		{"0x0", "0x0", false},
		{"0x1", "0x1", false},
		{"abc", "0xabc", false},
		{"0X0a", "0xa", false},
		{"", "", true},
		{"0xzz", "", true},
		{"0x" + fmt.Sprintf("%066x", 1), "", true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			addr, err := types.ParseAddress(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.short, addr.ShortString())

			back, err := types.ParseAddress(addr.String())
			require.NoError(t, err)
			assert.Equal(t, addr, back)
		})
	}
	assert.True(t, types.MustParseAddress("0x0").IsZero())
}

func TestModuleID(t *testing.T) {
	id, err := types.ParseModuleID("0x0::LibraSystem")
	require.NoError(t, err)
	assert.Equal(t, types.SystemModuleID, id)
	assert.Equal(t, "0x0::LibraSystem", id.String())

	for _, bad := range []string{"0x0", "0x0::", "0x0::1abc", "0x0::a::b", "0x0::a-b"} {
		_, err := types.ParseModuleID(bad)
		assert.Error(t, err, bad)
	}
}

func TestAccessPathKeyRoundTrip(t *testing.T) {
	addr := types.MustParseAddress("0xcafe")
	paths := []types.AccessPath{
		types.CodePath(types.SystemModuleID),
		types.ResourcePath(addr, types.BlockMetadataTag),
		types.ResourcePath(addr, types.GasAccountTag),
		{Address: addr, Path: []byte{0x00, 0xff, 0x00}},
	}
	for _, ap := range paths {
		got, err := types.ParseAccessPathKey(ap.Key())
		require.NoError(t, err)
		assert.True(t, ap.Equal(got), "%v != %v", ap, got)
	}
	assert.True(t, paths[0].IsCode())
	assert.False(t, paths[1].IsCode())

	_, err := types.ParseAccessPathKey([]byte("garbage"))
	assert.Error(t, err)
}

func TestWriteSetSortedAndDeduplicated(t *testing.T) {
	a := types.MustParseAddress("0x1")
	b := types.MustParseAddress("0x2")
	opB := types.WriteOp{AccessPath: types.ResourcePath(b, types.GasAccountTag), Value: []byte{2}}
	opA := types.WriteOp{AccessPath: types.ResourcePath(a, types.GasAccountTag), Value: []byte{1}}
	opA2 := types.WriteOp{AccessPath: types.ResourcePath(a, types.GasAccountTag), Deletion: true}

	ws := types.NewWriteSet(opB, opA, opA2)
	want := types.WriteSet{opA2, opB}
	if diff := cmp.Diff(want, ws); diff != "" {
		t.Fatalf("write set mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, types.NewWriteSet().IsEmpty())
}

func TestVMStatus(t *testing.T) {
	st := types.NewVMStatus(types.StatusAborted).WithSubStatus(7).WithMessage("at %d", 3)
	assert.Equal(t, "ABORTED (sub-status 7): at 3", st.Error())

	wrapped := fmt.Errorf("running: %w", st)
	assert.True(t, errors.Is(wrapped, types.NewVMStatus(types.StatusAborted)))
	assert.False(t, errors.Is(wrapped, types.NewVMStatus(types.StatusOutOfGas)))
	assert.Equal(t, types.StatusAborted, types.StatusOf(wrapped).Code)
	assert.Equal(t, uint64(7), *types.StatusOf(wrapped).SubStatus)

	assert.Equal(t, types.StatusExecuted, types.StatusOf(nil).Code)
	plain := types.StatusOf(errors.New("boom"))
	assert.Equal(t, types.StatusUnknownInvariantViolation, plain.Code)
	assert.Equal(t, "boom", plain.Message)
	assert.True(t, plain.Code.IsInvariantViolation())
	assert.False(t, types.StatusOutOfGas.IsInvariantViolation())
	assert.Equal(t, "UNKNOWN_STATUS(9999)", types.StatusCode(9999).String())
}

func TestDiscardedOutputHasNoWriteSet(t *testing.T) {
	ws := types.NewWriteSet(types.WriteOp{
		AccessPath: types.ResourcePath(types.SystemAddress, types.BlockMetadataTag),
		Value:      []byte{1},
	})
	out := types.NewTransactionOutput(ws, 10, types.DiscardStatus(types.NewVMStatus(types.StatusOutOfGas)))
	assert.True(t, out.IsDiscarded())
	assert.Empty(t, out.WriteSet)

	kept := types.NewTransactionOutput(ws, 10, types.KeepStatus(types.NewVMStatus(types.StatusExecuted)))
	assert.False(t, kept.IsDiscarded())
	assert.Len(t, kept.WriteSet, 1)
}

func TestBlockMetadataCodec(t *testing.T) {
	m := types.BlockMetadata{
		ID:                 crypto.Sha3([]byte("block")),
		Timestamp:          1_600_000_000_000_000,
		PreviousBlockVotes: []byte("votes"),
		Proposer:           types.MustParseAddress("0xbeef"),
	}
	bz := m.Encode()
	decoded, err := types.DecodeBlockMetadata(bz)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)

	empty := m
	empty.PreviousBlockVotes = []byte{}
	decodedEmpty, err := types.DecodeBlockMetadata(empty.Encode())
	require.NoError(t, err)
	assert.Equal(t, empty, decodedEmpty)

	_, err = types.DecodeBlockMetadata(bz[:len(bz)-1])
	assert.Error(t, err)
	_, err = types.DecodeBlockMetadata(append(bz, 0x00))
	assert.Error(t, err)
	_, err = types.DecodeBlockMetadata(nil)
	assert.Error(t, err)

	h := types.NewHashers()
	assert.Equal(t, m.Hash(h), decoded.Hash(h))
	assert.Equal(t, empty.Hash(h), decodedEmpty.Hash(h))
	assert.NotEqual(t, m.Hash(h), decodedEmpty.Hash(h))
}

func TestSignedTransaction(t *testing.T) {
	h := types.NewHashers()
	for _, kt := range []crypto.KeyType{crypto.KeyTypeEd25519, crypto.KeyTypeSecp256k1} {
		kt := kt
		t.Run(kt.String(), func(t *testing.T) {
			priv, err := crypto.GenPrivKey(kt)
			require.NoError(t, err)
			pub, err := priv.PubKey()
			require.NoError(t, err)

			raw := types.RawTransaction{
				Sender:         types.AddressFromPublicKey(h.AccountAddress, pub),
				SequenceNumber: 3,
				Payload: types.Script{
					Module:   types.GasAccountModuleID,
					Function: "transfer",
					Args: []types.TransactionArgument{
						types.AddressArgument(types.MustParseAddress("0x2")),
						types.U64Argument(10),
						types.ByteArrayArgument([]byte("memo")),
						types.BoolArgument(true),
					},
				},
				MaxGasAmount:   1000,
				GasUnitPrice:   1,
				ExpirationTime: 42,
			}
			stx, err := types.SignTransaction(h, raw, priv)
			require.NoError(t, err)
			require.NoError(t, stx.CheckSignature(h))

			decoded, err := types.DecodeSignedTransaction(stx.Bytes())
			require.NoError(t, err)
			assert.Equal(t, stx, decoded)
			require.NoError(t, decoded.CheckSignature(h))

			tampered := stx
			tampered.Raw.GasUnitPrice = 2
			assert.Error(t, tampered.CheckSignature(h))

			wrongSender := stx
			wrongSender.Raw.Sender = types.MustParseAddress("0x3")
			assert.ErrorIs(t, wrongSender.CheckSignature(h), types.ErrInvalidSender)

			meta := raw.Metadata()
			assert.Equal(t, raw.Sender, meta.Sender)
			assert.Equal(t, uint64(1000), meta.MaxGasAmount)
		})
	}

	_, err := types.DecodeSignedTransaction([]byte{0x05, 0x01})
	assert.Error(t, err)
}
