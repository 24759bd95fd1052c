// Package money implements the confidential payment contract: anonymous
// transfers, atomic swaps, token minting and freezing, and the money
// side of staking.
package money

import (
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// Function discriminants. The byte mapping is closed; anything else is
// rejected with ErrInvalidFunction before any phase runs.
const (
	FuncTransfer byte = 0x00
	FuncOtcSwap  byte = 0x01
	FuncMint     byte = 0x02
	FuncFreeze   byte = 0x03
	FuncStake    byte = 0x05
	FuncUnstake  byte = 0x06
)

// State tables owned by the money contract.
const (
	TableInfo         = "info"
	TableCoins        = "coins"
	TableCoinRoots    = "coin_roots"
	TableNullifiers   = "nullifiers"
	TableTokenFreezes = "token_freezes"

	// KeyCoinTree is the info-table key holding the serialized coin tree.
	KeyCoinTree = "coin_tree"
)

// Tables owned by the consensus contract. Money's unstake entrypoint
// reads them directly, so the names live here next to money's own.
const (
	ConsensusTableInfo       = "consensus_info"
	ConsensusTableCoins      = "consensus_coins"
	ConsensusTableCoinRoots  = "consensus_coin_roots"
	ConsensusTableNullifiers = "consensus_nullifiers"

	KeyConsensusCoinTree = "consensus_coin_tree"
)

// Consensus contract function discriminants, referenced by the
// cross-call checks in stake and unstake.
const (
	ConsensusFuncStake   byte = 0x01
	ConsensusFuncUnstake byte = 0x02
	ConsensusFuncReward  byte = 0x03
)

// ClearInput reveals value and token in plaintext. The blinds travel
// with it so validators can recompute its commitments natively.
type ClearInput struct {
	Value           uint64         `cbor:"1,keyasint"`
	Token           crypto.TokenID `cbor:"2,keyasint"`
	ValueBlind      [32]byte       `cbor:"3,keyasint"`
	TokenBlind      [32]byte       `cbor:"4,keyasint"`
	SignaturePublic []byte         `cbor:"5,keyasint"`
}

// Input is an anonymous spend of an existing coin. Everything about the
// coin stays hidden behind the burn proof; only the nullifier, the
// historical root, and the revealed spend hook surface here.
type Input struct {
	ValueCommit     [48]byte          `cbor:"1,keyasint"`
	TokenCommit     [48]byte          `cbor:"2,keyasint"`
	Nullifier       crypto.Nullifier  `cbor:"3,keyasint"`
	MerkleRoot      crypto.MerkleRoot `cbor:"4,keyasint"`
	SpendHook       crypto.Base       `cbor:"5,keyasint"`
	UserDataEnc     crypto.Base       `cbor:"6,keyasint"`
	SignaturePublic []byte            `cbor:"7,keyasint"`
}

// Output is a freshly created coin plus its sealed note.
type Output struct {
	ValueCommit [48]byte             `cbor:"1,keyasint"`
	TokenCommit [48]byte             `cbor:"2,keyasint"`
	Coin        crypto.Coin          `cbor:"3,keyasint"`
	Note        crypto.EncryptedNote `cbor:"4,keyasint"`
}

// TransferParams carries Transfer and OtcSwap payloads.
type TransferParams struct {
	ClearInputs []ClearInput `cbor:"1,keyasint"`
	Inputs      []Input      `cbor:"2,keyasint"`
	Outputs     []Output     `cbor:"3,keyasint"`
}

// MintParams mints new supply of the token derived from the authority
// key. Mint amounts are public; only the recipient is hidden.
type MintParams struct {
	AuthorityX      crypto.Base    `cbor:"1,keyasint"`
	AuthorityY      crypto.Base    `cbor:"2,keyasint"`
	Token           crypto.TokenID `cbor:"3,keyasint"`
	Value           uint64         `cbor:"4,keyasint"`
	ValueBlind      [32]byte       `cbor:"5,keyasint"`
	TokenBlind      [32]byte       `cbor:"6,keyasint"`
	Output          Output         `cbor:"7,keyasint"`
	SignaturePublic []byte         `cbor:"8,keyasint"`
}

// FreezeParams permanently disables minting for the authority's token.
type FreezeParams struct {
	AuthorityX      crypto.Base `cbor:"1,keyasint"`
	AuthorityY      crypto.Base `cbor:"2,keyasint"`
	SignaturePublic []byte      `cbor:"3,keyasint"`
}

// StakeParams burns a native-token coin on the money side so the
// consensus contract can recreate it in its own coin set. The token
// blind is revealed so validators can check the commitment opens to the
// native token.
type StakeParams struct {
	TokenBlind [32]byte `cbor:"1,keyasint"`
	Input      Input    `cbor:"2,keyasint"`
}

// UnstakeParams is the money side of unstaking: the consensus coin
// burned by the previous call reappears as a regular money coin.
type UnstakeParams struct {
	TokenBlind [32]byte `cbor:"1,keyasint"`
	Input      Input    `cbor:"2,keyasint"`
	Output     Output   `cbor:"3,keyasint"`
}

// Update payloads, one per function family. ProcessUpdate trusts them;
// duplicate-key inserts surface through the store's uniqueness check.

type TransferUpdate struct {
	Nullifiers []crypto.Nullifier `cbor:"1,keyasint"`
	Coins      []crypto.Coin      `cbor:"2,keyasint"`
}

type MintUpdate struct {
	Coin crypto.Coin `cbor:"1,keyasint"`
}

type FreezeUpdate struct {
	Token crypto.TokenID `cbor:"1,keyasint"`
}

type StakeUpdate struct {
	Nullifier crypto.Nullifier `cbor:"1,keyasint"`
}

type UnstakeUpdate struct {
	Coin crypto.Coin `cbor:"1,keyasint"`
}

func blindScalar(b [32]byte) blsfr.Element {
	var e blsfr.Element
	e.SetBytes(b[:])
	return e
}

func commitPoint(b [48]byte) (bls12377.G1Affine, error) {
	p, err := crypto.PointFromBytes(b)
	if err != nil {
		return bls12377.G1Affine{}, errors.Wrap(err, "decode commitment point")
	}
	return p, nil
}
