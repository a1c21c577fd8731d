package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tendermint/vmruntime/crypto"
)

// AddressLength is the size in bytes of an AccountAddress.
const AddressLength = 32

// AccountAddress identifies an account in global state.
type AccountAddress [AddressLength]byte

// SystemAddress is the all-zero address that publishes the system modules
// and sends the block prologue.
var SystemAddress = AccountAddress{}

// AddressFromBytes copies bz into an AccountAddress.
func AddressFromBytes(bz []byte) (AccountAddress, error) {
	var addr AccountAddress
	if len(bz) != AddressLength {
		return addr, fmt.Errorf("invalid address length: expected %d, got %d", AddressLength, len(bz))
	}
	copy(addr[:], bz)
	return addr, nil
}

// ParseAddress parses a hex address with an optional 0x prefix. Short
// inputs are left-padded with zeros, so "0x0" is the system address.
func ParseAddress(s string) (AccountAddress, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 || len(s) > 2*AddressLength {
		return AccountAddress{}, fmt.Errorf("invalid address %q", s)
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return AccountAddress{}, fmt.Errorf("invalid address: %w", err)
	}
	var addr AccountAddress
	copy(addr[AddressLength-len(raw):], raw)
	return addr, nil
}

// MustParseAddress is ParseAddress that panics on error. Intended for
// constants and tests.
func MustParseAddress(s string) AccountAddress {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFromPublicKey derives the account address that owns pub.
func AddressFromPublicKey(hasher crypto.Hasher, pub crypto.PublicKey) AccountAddress {
	return AccountAddress(hasher.Hash(pub.Bytes()))
}

func (a AccountAddress) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

func (a AccountAddress) IsZero() bool {
	return a == SystemAddress
}

func (a AccountAddress) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ShortString trims leading zero bytes, e.g. 0x0 for the system address.
func (a AccountAddress) ShortString() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}
