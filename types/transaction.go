package types

import (
	"errors"
	"fmt"

	"github.com/tendermint/vmruntime/crypto"
	"github.com/tendermint/vmruntime/internal/libs/protoio"
)

const (
	// MaxTransactionArguments bounds the argument list of a script call.
	MaxTransactionArguments = 64
	// MaxTransactionSize bounds an encoded signed transaction.
	MaxTransactionSize = 64 * 1024
)

var ErrInvalidSender = errors.New("public key does not match sender")

// ArgumentKind is the type of a TransactionArgument.
type ArgumentKind uint8

const (
	ArgumentU64 ArgumentKind = iota + 1
	ArgumentAddress
	ArgumentByteArray
	ArgumentBool
)

func (k ArgumentKind) String() string {
	switch k {
	case ArgumentU64:
		return "u64"
	case ArgumentAddress:
		return "address"
	case ArgumentByteArray:
		return "bytearray"
	case ArgumentBool:
		return "bool"
	default:
		return fmt.Sprintf("ArgumentKind(%d)", uint8(k))
	}
}

// TransactionArgument is a typed value supplied by the sender of a
// transaction. Only the field matching Kind is meaningful.
type TransactionArgument struct {
	Kind      ArgumentKind
	U64       uint64
	Address   AccountAddress
	ByteArray []byte
	Bool      bool
}

func U64Argument(x uint64) TransactionArgument {
	return TransactionArgument{Kind: ArgumentU64, U64: x}
}

func AddressArgument(a AccountAddress) TransactionArgument {
	return TransactionArgument{Kind: ArgumentAddress, Address: a}
}

func ByteArrayArgument(bz []byte) TransactionArgument {
	return TransactionArgument{Kind: ArgumentByteArray, ByteArray: bz}
}

func BoolArgument(b bool) TransactionArgument {
	return TransactionArgument{Kind: ArgumentBool, Bool: b}
}

func (arg TransactionArgument) encode(enc *protoio.Encoder) {
	enc.Uvarint(uint64(arg.Kind))
	switch arg.Kind {
	case ArgumentU64:
		enc.Fixed64(arg.U64)
	case ArgumentAddress:
		enc.Raw(arg.Address[:])
	case ArgumentByteArray:
		enc.Bytes(arg.ByteArray)
	case ArgumentBool:
		enc.Bool(arg.Bool)
	}
}

func decodeArgument(dec *protoio.Decoder) (TransactionArgument, error) {
	arg := TransactionArgument{Kind: ArgumentKind(dec.Uvarint())}
	switch arg.Kind {
	case ArgumentU64:
		arg.U64 = dec.Fixed64()
	case ArgumentAddress:
		copy(arg.Address[:], dec.Raw(AddressLength))
	case ArgumentByteArray:
		arg.ByteArray = dec.Bytes()
	case ArgumentBool:
		arg.Bool = dec.Bool()
	default:
		if dec.Err() == nil {
			return arg, fmt.Errorf("unknown argument kind %d", arg.Kind)
		}
	}
	return arg, dec.Err()
}

// Script is the payload of a user transaction: a call to a public
// function of a published module.
type Script struct {
	Module   ModuleID
	Function string
	Args     []TransactionArgument
}

// RawTransaction is the signed portion of a user transaction.
type RawTransaction struct {
	Sender         AccountAddress
	SequenceNumber uint64
	Payload        Script
	MaxGasAmount   uint64
	GasUnitPrice   uint64
	// ExpirationTime is in microseconds, the unit of block timestamps.
	ExpirationTime uint64
}

func (tx RawTransaction) encode(enc *protoio.Encoder) {
	enc.Raw(tx.Sender[:]).
		Uvarint(tx.SequenceNumber).
		Raw(tx.Payload.Module.Address[:]).
		String(tx.Payload.Module.Name).
		String(tx.Payload.Function).
		Uvarint(uint64(len(tx.Payload.Args)))
	for _, arg := range tx.Payload.Args {
		arg.encode(enc)
	}
	enc.Uvarint(tx.MaxGasAmount).
		Uvarint(tx.GasUnitPrice).
		Uvarint(tx.ExpirationTime)
}

// Bytes returns the canonical encoding that signatures cover.
func (tx RawTransaction) Bytes() []byte {
	enc := protoio.NewEncoder()
	tx.encode(enc)
	return enc.Output()
}

// SigningHash is the message signed by the sender.
func (tx RawTransaction) SigningHash(h Hashers) crypto.HashValue {
	return h.RawTransaction.Hash(tx.Bytes())
}

func decodeRawTransaction(dec *protoio.Decoder) (RawTransaction, error) {
	var tx RawTransaction
	copy(tx.Sender[:], dec.Raw(AddressLength))
	tx.SequenceNumber = dec.Uvarint()
	copy(tx.Payload.Module.Address[:], dec.Raw(AddressLength))
	tx.Payload.Module.Name = dec.String()
	tx.Payload.Function = dec.String()
	n := dec.Count(MaxTransactionArguments)
	if n > 0 {
		tx.Payload.Args = make([]TransactionArgument, 0, n)
	}
	for i := 0; i < n; i++ {
		arg, err := decodeArgument(dec)
		if err != nil {
			return tx, err
		}
		tx.Payload.Args = append(tx.Payload.Args, arg)
	}
	tx.MaxGasAmount = dec.Uvarint()
	tx.GasUnitPrice = dec.Uvarint()
	tx.ExpirationTime = dec.Uvarint()
	return tx, dec.Err()
}

// Metadata returns the execution parameters of tx.
func (tx RawTransaction) Metadata() TransactionMetadata {
	return TransactionMetadata{
		Sender:         tx.Sender,
		SequenceNumber: tx.SequenceNumber,
		MaxGasAmount:   tx.MaxGasAmount,
		GasUnitPrice:   tx.GasUnitPrice,
		ExpirationTime: tx.ExpirationTime,
	}
}

// SignedTransaction is a RawTransaction with the sender's key and
// signature.
type SignedTransaction struct {
	Raw       RawTransaction
	PublicKey crypto.PublicKey
	Signature []byte
}

// SignTransaction signs raw with priv.
func SignTransaction(h Hashers, raw RawTransaction, priv crypto.PrivateKey) (SignedTransaction, error) {
	pub, err := priv.PubKey()
	if err != nil {
		return SignedTransaction{}, err
	}
	digest := raw.SigningHash(h)
	sig, err := priv.Sign(digest[:])
	if err != nil {
		return SignedTransaction{}, err
	}
	return SignedTransaction{Raw: raw, PublicKey: pub, Signature: sig}, nil
}

// CheckSignature verifies the signature and that the key owns the sender
// address.
func (tx SignedTransaction) CheckSignature(h Hashers) error {
	if err := tx.PublicKey.Validate(); err != nil {
		return err
	}
	if AddressFromPublicKey(h.AccountAddress, tx.PublicKey) != tx.Raw.Sender {
		return ErrInvalidSender
	}
	digest := tx.Raw.SigningHash(h)
	if !tx.PublicKey.VerifySignature(digest[:], tx.Signature) {
		return errors.New("signature verification failed")
	}
	return nil
}

func (tx SignedTransaction) Bytes() []byte {
	return protoio.NewEncoder().
		Bytes(tx.Raw.Bytes()).
		Bytes(tx.PublicKey.Bytes()).
		Bytes(tx.Signature).
		Output()
}

// DecodeSignedTransaction is the inverse of SignedTransaction.Bytes.
func DecodeSignedTransaction(bz []byte) (SignedTransaction, error) {
	if len(bz) > MaxTransactionSize {
		return SignedTransaction{}, fmt.Errorf("transaction too large: %d > %d", len(bz), MaxTransactionSize)
	}
	dec := protoio.NewDecoder(bz)
	rawBz := dec.Bytes()
	pubBz := dec.Bytes()
	sig := dec.Bytes()
	if err := dec.Finish(); err != nil {
		return SignedTransaction{}, err
	}

	rawDec := protoio.NewDecoder(rawBz)
	raw, err := decodeRawTransaction(rawDec)
	if err != nil {
		return SignedTransaction{}, err
	}
	if err := rawDec.Finish(); err != nil {
		return SignedTransaction{}, err
	}
	pub, err := crypto.PublicKeyFromBytes(pubBz)
	if err != nil {
		return SignedTransaction{}, err
	}
	return SignedTransaction{Raw: raw, PublicKey: pub, Signature: sig}, nil
}

// TransactionMetadata holds the per-transaction execution parameters.
type TransactionMetadata struct {
	Sender         AccountAddress
	SequenceNumber uint64
	MaxGasAmount   uint64
	GasUnitPrice   uint64
	ExpirationTime uint64
}

// TransactionStatus says whether an output is applied or dropped, and why.
type TransactionStatus struct {
	Discard bool
	Status  *VMStatus
}

func KeepStatus(s *VMStatus) TransactionStatus {
	return TransactionStatus{Status: s}
}

func DiscardStatus(s *VMStatus) TransactionStatus {
	return TransactionStatus{Discard: true, Status: s}
}

func (s TransactionStatus) String() string {
	if s.Discard {
		return "Discard(" + s.Status.Error() + ")"
	}
	return "Keep(" + s.Status.Error() + ")"
}

// TransactionOutput is the result of executing one transaction.
type TransactionOutput struct {
	WriteSet WriteSet
	GasUsed  uint64
	Status   TransactionStatus
}

// NewTransactionOutput builds an output. Discarded outputs never carry a
// write-set: ws is dropped when status is a discard.
func NewTransactionOutput(ws WriteSet, gasUsed uint64, status TransactionStatus) TransactionOutput {
	if status.Discard {
		ws = nil
	}
	return TransactionOutput{WriteSet: ws, GasUsed: gasUsed, Status: status}
}

func (o TransactionOutput) IsDiscarded() bool {
	return o.Status.Discard
}

// Block is a block metadata payload followed by the block's user
// transactions. Metadata stays encoded; the prologue decodes it.
type Block struct {
	Metadata     []byte
	Transactions []SignedTransaction
}
