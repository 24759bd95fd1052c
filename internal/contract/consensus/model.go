// Package consensus implements the staking contract: coins enter and
// leave the consensus coin set through paired money calls, and staked
// coins earn the fixed proposal reward.
package consensus

import (
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// Function discriminants.
const (
	FuncStake   = money.ConsensusFuncStake
	FuncUnstake = money.ConsensusFuncUnstake
	FuncReward  = money.ConsensusFuncReward
)

// Money-side discriminants referenced by the cross-call checks.
const (
	moneyFuncStake   = money.FuncStake
	moneyFuncUnstake = money.FuncUnstake
)

// StakeParams recreates the coin burned by the preceding money stake
// call inside the consensus coin set.
type StakeParams struct {
	Input  money.Input  `cbor:"1,keyasint"`
	Output money.Output `cbor:"2,keyasint"`
}

// UnstakeParams burns a consensus coin. The following money unstake
// call recreates it in the money coin set.
type UnstakeParams struct {
	Input money.Input `cbor:"1,keyasint"`
}

// RewardParams replaces a staked coin with one worth exactly the fixed
// reward more, under the same value blind. Both token commitments must
// open to the native token under the revealed blind.
type RewardParams struct {
	Input      money.Input  `cbor:"1,keyasint"`
	Output     money.Output `cbor:"2,keyasint"`
	TokenBlind [32]byte     `cbor:"3,keyasint"`
}

type StakeUpdate struct {
	Coin crypto.Coin `cbor:"1,keyasint"`
}

type UnstakeUpdate struct {
	Nullifier crypto.Nullifier `cbor:"1,keyasint"`
}

type RewardUpdate struct {
	Nullifier crypto.Nullifier `cbor:"1,keyasint"`
	Coin      crypto.Coin      `cbor:"2,keyasint"`
}

var (
	ErrInvalidFunction    = errors.New("consensus: unknown function")
	ErrDuplicateNullifier = errors.New("consensus: nullifier already exists")
	ErrDuplicateCoin      = errors.New("consensus: coin already exists")
	ErrMerkleRootNotFound = errors.New("consensus: merkle root not in root history")
	ErrValueMismatch      = errors.New("consensus: value commitments do not match")
	ErrNonNativeToken     = errors.New("consensus: native token required")
	ErrSpendHookMismatch  = errors.New("consensus: input spend hook is not the consensus contract")
	ErrCallOutOfBounds    = errors.New("consensus: cross-call index out of bounds")
	ErrPrevCallMismatch   = errors.New("consensus: companion call is not the expected contract function")
	ErrPrevInputMismatch  = errors.New("consensus: companion call input does not match")
)
