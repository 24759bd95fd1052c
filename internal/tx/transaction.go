// Package tx defines the wire model of contract calls and transactions.
package tx

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// TxHash identifies a transaction.
type TxHash [32]byte

// ContractCall addresses one contract function. Data starts with the
// function discriminant byte, followed by the CBOR-encoded call params.
type ContractCall struct {
	ContractID crypto.ContractID `cbor:"1,keyasint"`
	Data       []byte            `cbor:"2,keyasint"`
}

// Function returns the discriminant byte.
func (c *ContractCall) Function() (byte, error) {
	if len(c.Data) == 0 {
		return 0, errors.New("empty call data")
	}
	return c.Data[0], nil
}

// Params returns the encoded call params following the discriminant.
func (c *ContractCall) Params() ([]byte, error) {
	if len(c.Data) == 0 {
		return nil, errors.New("empty call data")
	}
	return c.Data[1:], nil
}

// Transaction is an ordered list of contract calls, one proof bundle and
// one signature bundle per call.
type Transaction struct {
	Calls      []ContractCall `cbor:"1,keyasint"`
	Proofs     [][][]byte     `cbor:"2,keyasint"`
	Signatures [][][]byte     `cbor:"3,keyasint"`
}

// EncodeCall assembles call data from a discriminant and CBOR params.
func EncodeCall(function byte, params interface{}) ([]byte, error) {
	enc, err := cbor.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "encode call params")
	}
	return append([]byte{function}, enc...), nil
}

// Hash digests the transaction without its signatures, so the digest is
// stable under signing.
func (t *Transaction) Hash() (TxHash, error) {
	unsigned := Transaction{Calls: t.Calls, Proofs: t.Proofs}
	data, err := cbor.Marshal(&unsigned)
	if err != nil {
		return TxHash{}, errors.Wrap(err, "encode transaction")
	}
	return blake3.Sum256(data), nil
}

// SignCall signs the transaction digest for one call with the given keys
// and records the bundle at the call's index.
func (t *Transaction) SignCall(callIdx int, keys []*crypto.SigningKey) error {
	if callIdx < 0 || callIdx >= len(t.Calls) {
		return errors.Errorf("call index %d out of bounds", callIdx)
	}
	for len(t.Signatures) < len(t.Calls) {
		t.Signatures = append(t.Signatures, nil)
	}
	digest, err := t.Hash()
	if err != nil {
		return err
	}
	bundle := make([][]byte, 0, len(keys))
	for _, k := range keys {
		sig, err := k.Sign(digest)
		if err != nil {
			return err
		}
		bundle = append(bundle, sig)
	}
	t.Signatures[callIdx] = bundle
	return nil
}

// Encode serializes the full transaction.
func (t *Transaction) Encode() ([]byte, error) {
	data, err := cbor.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "encode transaction")
	}
	return data, nil
}

// Decode deserializes a transaction.
func Decode(data []byte) (*Transaction, error) {
	var t Transaction
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}
	return &t, nil
}
