package crypto

import (
	crand "crypto/rand"
)

// CRandBytes returns numBytes of cryptographically random bytes from the
// OS entropy source.
func CRandBytes(numBytes int) []byte {
	b := make([]byte, numBytes)
	_, err := crand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}
