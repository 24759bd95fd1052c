package consensus

import (
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

// stakeInstruction admits a coin into the consensus set. The previous
// call must be the money stake burning the exact same input, and the new
// consensus coin must carry the same hidden value.
func stakeInstruction(view blockchain.StateView, p *StakeParams, calls []tx.ContractCall, callIdx int) ([]byte, error) {
	prev := callIdx - 1
	if prev < 0 {
		return nil, ErrCallOutOfBounds
	}
	if calls[prev].ContractID != crypto.MoneyContractID {
		return nil, errors.Wrap(ErrPrevCallMismatch, "previous call is not the money contract")
	}
	fn, err := calls[prev].Function()
	if err != nil {
		return nil, err
	}
	if fn != moneyFuncStake {
		return nil, errors.Wrapf(ErrPrevCallMismatch, "previous call function 0x%02x", fn)
	}
	raw, err := calls[prev].Params()
	if err != nil {
		return nil, err
	}
	var prevParams money.StakeParams
	if err := cbor.Unmarshal(raw, &prevParams); err != nil {
		return nil, errors.Wrap(err, "decode companion stake params")
	}
	if !money.InputsEqual(&prevParams.Input, &p.Input) {
		return nil, ErrPrevInputMismatch
	}

	if p.Output.ValueCommit != p.Input.ValueCommit {
		return nil, ErrValueMismatch
	}

	exists, err := view.ContainsKey(crypto.ConsensusContractID, money.ConsensusTableCoins, p.Output.Coin[:])
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateCoin, "coin %s", p.Output.Coin)
	}

	return encodeUpdate(FuncStake, &StakeUpdate{Coin: p.Output.Coin})
}

// unstakeInstruction burns a consensus coin. The next call must be the
// money unstake recreating the same input on the money side.
func unstakeInstruction(view blockchain.StateView, p *UnstakeParams, calls []tx.ContractCall, callIdx int) ([]byte, error) {
	in := &p.Input

	next := callIdx + 1
	if next >= len(calls) {
		return nil, ErrCallOutOfBounds
	}
	if calls[next].ContractID != crypto.MoneyContractID {
		return nil, errors.Wrap(ErrPrevCallMismatch, "next call is not the money contract")
	}
	fn, err := calls[next].Function()
	if err != nil {
		return nil, err
	}
	if fn != moneyFuncUnstake {
		return nil, errors.Wrapf(ErrPrevCallMismatch, "next call function 0x%02x", fn)
	}
	raw, err := calls[next].Params()
	if err != nil {
		return nil, err
	}
	var nextParams money.UnstakeParams
	if err := cbor.Unmarshal(raw, &nextParams); err != nil {
		return nil, errors.Wrap(err, "decode companion unstake params")
	}
	if !money.InputsEqual(&nextParams.Input, in) {
		return nil, ErrPrevInputMismatch
	}

	if in.SpendHook != crypto.Base(crypto.ConsensusContractID) {
		return nil, ErrSpendHookMismatch
	}

	cid := crypto.ConsensusContractID
	ok, err := view.ContainsKey(cid, money.ConsensusTableCoinRoots, in.MerkleRoot[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrMerkleRootNotFound, "root %s", in.MerkleRoot)
	}
	ok, err = view.ContainsKey(cid, money.ConsensusTableNullifiers, in.Nullifier[:])
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errors.Wrapf(ErrDuplicateNullifier, "nullifier %s", in.Nullifier)
	}

	return encodeUpdate(FuncUnstake, &UnstakeUpdate{Nullifier: in.Nullifier})
}

// rewardInstruction replaces a staked coin with one worth exactly the
// fixed reward more. The homomorphic identity out = in + reward*G is
// checked natively on top of the reward proof.
func rewardInstruction(view blockchain.StateView, p *RewardParams) ([]byte, error) {
	cid := crypto.ConsensusContractID
	in := &p.Input

	if in.SpendHook != crypto.Base(crypto.ConsensusContractID) {
		return nil, ErrSpendHookMismatch
	}

	ok, err := view.ContainsKey(cid, money.ConsensusTableCoinRoots, in.MerkleRoot[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrMerkleRootNotFound, "root %s", in.MerkleRoot)
	}
	ok, err = view.ContainsKey(cid, money.ConsensusTableNullifiers, in.Nullifier[:])
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errors.Wrapf(ErrDuplicateNullifier, "nullifier %s", in.Nullifier)
	}

	var blind blsfr.Element
	blind.SetBytes(p.TokenBlind[:])
	tc := crypto.TokenCommit(crypto.NativeTokenID, blind)
	tcBytes := crypto.PointBytes(&tc)
	if in.TokenCommit != tcBytes || p.Output.TokenCommit != tcBytes {
		return nil, ErrNonNativeToken
	}

	// out == in + reward*G under the same blind.
	inVC, err := crypto.PointFromBytes(in.ValueCommit)
	if err != nil {
		return nil, err
	}
	reward := rewardCommit()
	want := crypto.AddPoints(&inVC, &reward)
	if crypto.PointBytes(&want) != p.Output.ValueCommit {
		return nil, ErrValueMismatch
	}

	exists, err := view.ContainsKey(cid, money.ConsensusTableCoins, p.Output.Coin[:])
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateCoin, "coin %s", p.Output.Coin)
	}

	return encodeUpdate(FuncReward, &RewardUpdate{Nullifier: in.Nullifier, Coin: p.Output.Coin})
}

// rewardCommit is StakeReward*G, the unblinded reward term.
func rewardCommit() bls12377.G1Affine {
	var zeroBlind blsfr.Element
	return crypto.ValueCommit(zk.StakeReward, zeroBlind)
}
