package types

import "github.com/tendermint/vmruntime/crypto"

// Hashers holds one domain-separated hasher per hashed type. Components
// receive it explicitly; there is no package-level instance.
type Hashers struct {
	AccountAddress crypto.Hasher
	RawTransaction crypto.Hasher
	BlockMetadata  crypto.Hasher
}

func NewHashers() Hashers {
	return Hashers{
		AccountAddress: crypto.NewHasher("AccountAddress"),
		RawTransaction: crypto.NewHasher("RawTransaction"),
		BlockMetadata:  crypto.NewHasher("BlockMetadata"),
	}
}
