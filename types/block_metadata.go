package types

import (
	"fmt"

	"github.com/tendermint/vmruntime/crypto"
	"github.com/tendermint/vmruntime/internal/libs/protoio"
)

// MaxPreviousVotesSize bounds the previous-vote blob.
const MaxPreviousVotesSize = 1 << 20

// BlockMetadata is the payload of the block prologue pseudo-transaction.
type BlockMetadata struct {
	ID                 crypto.HashValue
	Timestamp          uint64 // microseconds since the epoch
	PreviousBlockVotes []byte
	Proposer           AccountAddress
}

// Encode returns the canonical encoding of m.
func (m BlockMetadata) Encode() []byte {
	return protoio.NewEncoder().
		Raw(m.ID[:]).
		Fixed64(m.Timestamp).
		Bytes(m.PreviousBlockVotes).
		Raw(m.Proposer[:]).
		Output()
}

// Hash returns the domain-separated hash of the encoding.
func (m BlockMetadata) Hash(h Hashers) crypto.HashValue {
	return h.BlockMetadata.Hash(m.Encode())
}

// DecodeBlockMetadata parses bz. Any truncation, oversize blob or trailing
// data is an error.
func DecodeBlockMetadata(bz []byte) (BlockMetadata, error) {
	var m BlockMetadata
	dec := protoio.NewDecoder(bz)
	copy(m.ID[:], dec.Raw(crypto.HashSize))
	m.Timestamp = dec.Fixed64()
	m.PreviousBlockVotes = dec.Bytes()
	copy(m.Proposer[:], dec.Raw(AddressLength))
	if err := dec.Finish(); err != nil {
		return BlockMetadata{}, fmt.Errorf("decoding block metadata: %w", err)
	}
	if len(m.PreviousBlockVotes) > MaxPreviousVotesSize {
		return BlockMetadata{}, fmt.Errorf("previous block votes too large: %d", len(m.PreviousBlockVotes))
	}
	return m, nil
}
