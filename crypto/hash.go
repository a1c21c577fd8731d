package crypto

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const (
	// HashSize is the size in bytes of a HashValue.
	HashSize = 32

	hasherSaltPrefix = "VMRUNTIME::"
)

// HashValue is the output of a Hasher.
type HashValue [HashSize]byte

// HashValueFromBytes checks bz has the right length and copies it.
func HashValueFromBytes(bz []byte) (HashValue, error) {
	var h HashValue
	if len(bz) != HashSize {
		return h, fmt.Errorf("invalid hash length: expected %d, got %d", HashSize, len(bz))
	}
	copy(h[:], bz)
	return h, nil
}

func (h HashValue) Bytes() []byte {
	return append([]byte(nil), h[:]...)
}

func (h HashValue) String() string {
	return hex.EncodeToString(h[:])
}

// Sha3 returns the plain SHA3-256 digest of bz.
func Sha3(bz []byte) HashValue {
	return sha3.Sum256(bz)
}

// Hasher is a domain-separated SHA3-256 hasher. Every domain gets its own
// salt (the hash of the domain name), so values of different types that
// serialize to the same bytes never share a hash.
//
// A Hasher is a plain value: construct one where it is needed and pass it
// along. There is no process-wide registry.
type Hasher struct {
	domain string
	salt   HashValue
}

// NewHasher returns the hasher for the named domain. The same name always
// yields the same hasher.
func NewHasher(domain string) Hasher {
	return Hasher{
		domain: domain,
		salt:   sha3.Sum256([]byte(hasherSaltPrefix + domain)),
	}
}

// Domain returns the name the hasher was created with.
func (h Hasher) Domain() string {
	return h.domain
}

// Hash returns SHA3-256(salt || chunks...).
func (h Hasher) Hash(chunks ...[]byte) HashValue {
	state := sha3.New256()
	state.Write(h.salt[:])
	for _, c := range chunks {
		state.Write(c)
	}
	var out HashValue
	copy(out[:], state.Sum(nil))
	return out
}
