// Package crypto holds the commitment, hash, key and merkle primitives
// shared by the ledger, the contract entrypoints and the client builders.
//
// Field conventions: digests (coins, bullas, nullifiers, merkle nodes,
// contract ids) live in the BW6-761 scalar field (48 bytes), which is the
// field our circuits are compiled over. Blinding factors and secret keys
// are BLS12-377 scalars (32 bytes). Commitments are BLS12-377 G1 points.
package crypto

import (
	"encoding/hex"

	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
)

// Base is a canonical serialized element of the proof system's base field.
type Base [48]byte

// Coin is the hash commitment identifying an unspent confidential output.
type Coin Base

// Nullifier is the one-way value published when a coin is spent.
type Nullifier Base

// Bulla is the hash commitment identifying a higher-level entity
// (a DAO, a proposal) over its public parameters and a blind.
type Bulla Base

// MerkleNode is an inner node or leaf of the coin tree.
type MerkleNode Base

// MerkleRoot is a frontier root of the coin tree. The store retains the
// full history of roots so older inclusion proofs stay valid.
type MerkleRoot Base

// ContractID identifies a deployed contract. It doubles as the spend hook
// value embedded in notes that mandate a companion call.
type ContractID Base

// TokenID identifies a token. Token ids are scalar-field values so they
// can be used directly inside Pedersen commitments.
type TokenID [32]byte

// BaseFromElement canonically serializes a field element.
func BaseFromElement(e fr.Element) Base {
	var b Base
	copy(b[:], e.Marshal())
	return b
}

// Element deserializes a Base back into a field element.
func (b Base) Element() fr.Element {
	var e fr.Element
	e.SetBytes(b[:])
	return e
}

// IsZero reports whether the value is the zero element.
func (b Base) IsZero() bool {
	return b == Base{}
}

func (b Base) String() string { return hex.EncodeToString(b[:8]) }

func (c Coin) Element() fr.Element       { return Base(c).Element() }
func (c Coin) String() string            { return Base(c).String() }
func (n Nullifier) Element() fr.Element  { return Base(n).Element() }
func (n Nullifier) String() string       { return Base(n).String() }
func (b Bulla) Element() fr.Element      { return Base(b).Element() }
func (b Bulla) String() string           { return Base(b).String() }
func (m MerkleNode) Element() fr.Element { return Base(m).Element() }
func (m MerkleRoot) Element() fr.Element { return Base(m).Element() }
func (m MerkleRoot) String() string      { return Base(m).String() }
func (c ContractID) Element() fr.Element { return Base(c).Element() }
func (c ContractID) IsZero() bool        { return Base(c).IsZero() }
func (c ContractID) String() string      { return Base(c).String() }
