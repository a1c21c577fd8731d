package secp256k1

import (
	"errors"
	"io"
	"math/big"

	secp256k1 "github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/sha3"
)

const (
	// PubKeySize is the size of a compressed public key.
	PubKeySize = 33
	// PrivateKeySize is the size of a serialized private key scalar.
	PrivateKeySize = 32
	// SignatureSize is the size of an R || S signature.
	SignatureSize = 64
)

var ErrInvalidKeySize = errors.New("secp256k1: invalid key size")

// used to reject malleable signatures
// see:
//  - https://github.com/ethereum/go-ethereum/blob/f9401ae011ddf7f8d2d95020b7446c17f8d98dc1/crypto/signature_nocgo.go#L90-L93
//  - https://github.com/ethereum/go-ethereum/blob/f9401ae011ddf7f8d2d95020b7446c17f8d98dc1/crypto/crypto.go#L39
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
var secp256k1halfN = new(big.Int).Div(secp256k1N, big.NewInt(2))

// GenPrivKey generates a new private key scalar from the given source of
// randomness.
func GenPrivKey(rand io.Reader) ([]byte, error) {
	var scalar [PrivateKeySize]byte
	one := new(big.Int).SetInt64(1)
	for {
		if _, err := io.ReadFull(rand, scalar[:]); err != nil {
			return nil, err
		}
		k := new(big.Int).SetBytes(scalar[:])
		// k must be in [1, N-1]
		if k.Cmp(one) >= 0 && k.Cmp(secp256k1N) < 0 {
			return scalar[:], nil
		}
	}
}

// PubKey returns the compressed public key for privKey.
func PubKey(privKey []byte) ([]byte, error) {
	if len(privKey) != PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	_, pub := secp256k1.PrivKeyFromBytes(secp256k1.S256(), privKey)
	return pub.SerializeCompressed(), nil
}

// Sign creates an ECDSA signature on curve Secp256k1, using SHA3-256 on the msg.
// The returned signature will be of the form R || S (in lower-S form).
func Sign(privKey, msg []byte) ([]byte, error) {
	if len(privKey) != PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	priv, _ := secp256k1.PrivKeyFromBytes(secp256k1.S256(), privKey)
	digest := sha3.Sum256(msg)
	sig, err := priv.Sign(digest[:])
	if err != nil {
		return nil, err
	}
	return serializeSig(sig), nil
}

// Verify reports whether sigStr is a lower-S signature of msg by pubKey.
func Verify(pubKey, msg, sigStr []byte) bool {
	if len(sigStr) != SignatureSize || len(pubKey) != PubKeySize {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubKey, secp256k1.S256())
	if err != nil {
		return false
	}
	signature := signatureFromBytes(sigStr)
	// Reject malleable signatures. libsecp256k1 does this check but btcec doesn't.
	if signature.S.Cmp(secp256k1halfN) > 0 {
		return false
	}
	digest := sha3.Sum256(msg)
	return signature.Verify(digest[:], pub)
}

// Read Signature struct from R || S. Caller needs to ensure
// that len(sigStr) == 64.
func signatureFromBytes(sigStr []byte) *secp256k1.Signature {
	return &secp256k1.Signature{
		R: new(big.Int).SetBytes(sigStr[:32]),
		S: new(big.Int).SetBytes(sigStr[32:64]),
	}
}

// Serialize signature to R || S.
// R, S are padded to 32 bytes respectively.
func serializeSig(sig *secp256k1.Signature) []byte {
	rBytes := sig.R.Bytes()
	sBytes := sig.S.Bytes()
	sigBytes := make([]byte, SignatureSize)
	// 0 pad the byte arrays from the left if they aren't big enough.
	copy(sigBytes[32-len(rBytes):32], rBytes)
	copy(sigBytes[64-len(sBytes):64], sBytes)
	return sigBytes
}
