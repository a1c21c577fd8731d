package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/tendermint/vmruntime/crypto/ed25519"
	"github.com/tendermint/vmruntime/crypto/secp256k1"
)

// KeyType tags the signature scheme of a key. The set of schemes is closed;
// every capability below dispatches on it with a single switch.
type KeyType uint8

const (
	KeyTypeEd25519   KeyType = 1
	KeyTypeSecp256k1 KeyType = 2
)

var ErrUnknownKeyType = errors.New("unknown key type")

func (t KeyType) String() string {
	switch t {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeSecp256k1:
		return "secp256k1"
	default:
		return fmt.Sprintf("KeyType(%d)", uint8(t))
	}
}

// ParseKeyType is the inverse of KeyType.String.
func ParseKeyType(s string) (KeyType, error) {
	switch s {
	case "ed25519":
		return KeyTypeEd25519, nil
	case "secp256k1":
		return KeyTypeSecp256k1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKeyType, s)
	}
}

func (t KeyType) pubKeySize() (int, error) {
	switch t {
	case KeyTypeEd25519:
		return ed25519.PubKeySize, nil
	case KeyTypeSecp256k1:
		return secp256k1.PubKeySize, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownKeyType, t)
	}
}

// PublicKey is a public key of any supported scheme.
type PublicKey struct {
	Type KeyType
	Key  []byte
}

// PrivateKey is a private key of any supported scheme.
type PrivateKey struct {
	Type KeyType
	Key  []byte
}

// GenPrivKey generates a fresh private key of the given scheme.
func GenPrivKey(t KeyType) (PrivateKey, error) {
	var (
		key []byte
		err error
	)
	switch t {
	case KeyTypeEd25519:
		key, err = ed25519.GenPrivKey(rand.Reader)
	case KeyTypeSecp256k1:
		key, err = secp256k1.GenPrivKey(rand.Reader)
	default:
		return PrivateKey{}, fmt.Errorf("%w: %d", ErrUnknownKeyType, t)
	}
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{Type: t, Key: key}, nil
}

// PubKey derives the public key.
func (k PrivateKey) PubKey() (PublicKey, error) {
	var (
		pub []byte
		err error
	)
	switch k.Type {
	case KeyTypeEd25519:
		pub, err = ed25519.PubKey(k.Key)
	case KeyTypeSecp256k1:
		pub, err = secp256k1.PubKey(k.Key)
	default:
		return PublicKey{}, fmt.Errorf("%w: %d", ErrUnknownKeyType, k.Type)
	}
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{Type: k.Type, Key: pub}, nil
}

// Sign signs msg.
func (k PrivateKey) Sign(msg []byte) ([]byte, error) {
	switch k.Type {
	case KeyTypeEd25519:
		return ed25519.Sign(k.Key, msg)
	case KeyTypeSecp256k1:
		return secp256k1.Sign(k.Key, msg)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKeyType, k.Type)
	}
}

// VerifySignature reports whether sig is a valid signature of msg. Unknown
// key types never verify.
func (k PublicKey) VerifySignature(msg, sig []byte) bool {
	switch k.Type {
	case KeyTypeEd25519:
		return ed25519.Verify(k.Key, msg, sig)
	case KeyTypeSecp256k1:
		return secp256k1.Verify(k.Key, msg, sig)
	default:
		return false
	}
}

// Validate checks the tag is known and the key has the scheme's size.
func (k PublicKey) Validate() error {
	size, err := k.Type.pubKeySize()
	if err != nil {
		return err
	}
	if len(k.Key) != size {
		return fmt.Errorf("invalid %s public key size: expected %d, got %d", k.Type, size, len(k.Key))
	}
	return nil
}

// Bytes serializes the key as its one-byte tag followed by the key bytes.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, 0, 1+len(k.Key))
	out = append(out, byte(k.Type))
	return append(out, k.Key...)
}

// PublicKeyFromBytes is the inverse of PublicKey.Bytes.
func PublicKeyFromBytes(bz []byte) (PublicKey, error) {
	if len(bz) == 0 {
		return PublicKey{}, errors.New("empty public key")
	}
	pk := PublicKey{Type: KeyType(bz[0]), Key: append([]byte(nil), bz[1:]...)}
	if err := pk.Validate(); err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

func (k PublicKey) Equals(other PublicKey) bool {
	return k.Type == other.Type && bytes.Equal(k.Key, other.Key)
}

func (k PublicKey) String() string {
	return fmt.Sprintf("PubKey%s{%X}", k.Type, k.Key)
}
