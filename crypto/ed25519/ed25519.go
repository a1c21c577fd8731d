package ed25519

import (
	"errors"
	"io"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

const (
	// PubKeySize is the size, in bytes, of public keys as used in this package.
	PubKeySize = ed25519.PublicKeySize
	// PrivateKeySize is the size, in bytes, of private keys as used in this package.
	PrivateKeySize = ed25519.PrivateKeySize
	// SignatureSize is the size of Ed25519 signatures in bytes.
	SignatureSize = ed25519.SignatureSize
	// SeedSize is the size, in bytes, of private key seeds.
	SeedSize = ed25519.SeedSize
)

// ZIP-215 verification semantics, so that every node accepts exactly the
// same set of signatures.
var verifyOptions = &ed25519.Options{
	Verify: ed25519.VerifyOptionsZIP_215,
}

var ErrInvalidKeySize = errors.New("ed25519: invalid key size")

// GenPrivKey generates a new private key from the given source of randomness.
func GenPrivKey(rand io.Reader) ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return priv, nil
}

// GenPrivKeyFromSeed derives a private key deterministically from a
// SeedSize-byte seed.
func GenPrivKeyFromSeed(seed []byte) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, ErrInvalidKeySize
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// PubKey returns the public half of privKey.
func PubKey(privKey []byte) ([]byte, error) {
	if len(privKey) != PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	// the public key is the second half of the expanded private key
	pubkeyBytes := make([]byte, PubKeySize)
	copy(pubkeyBytes, privKey[32:])
	return pubkeyBytes, nil
}

// Sign produces a signature on the provided message.
func Sign(privKey, msg []byte) ([]byte, error) {
	if len(privKey) != PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	return ed25519.Sign(privKey, msg), nil
}

// Verify reports whether sig is a valid signature of msg by pubKey.
func Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != PubKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.VerifyWithOptions(pubKey, msg, sig, verifyOptions)
}
