package money

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// InputsEqual compares the full input payload, signature key included.
// Cross-call consistency means the companion recorded the exact same
// input, not merely one with the same nullifier.
func InputsEqual(a, b *Input) bool {
	return a.ValueCommit == b.ValueCommit &&
		a.TokenCommit == b.TokenCommit &&
		a.Nullifier == b.Nullifier &&
		a.MerkleRoot == b.MerkleRoot &&
		a.SpendHook == b.SpendHook &&
		a.UserDataEnc == b.UserDataEnc &&
		bytes.Equal(a.SignaturePublic, b.SignaturePublic)
}

// companionInput mirrors the input-bearing head of the consensus stake
// and unstake params so the cross-call check can decode them without
// depending on the consensus package.
type companionInput struct {
	Input Input `cbor:"1,keyasint"`
}

// stakeInstruction burns a native-token coin on the money side. The
// consensus contract's stake call, which must immediately follow,
// recreates it in the consensus coin set.
func stakeInstruction(view blockchain.StateView, p *StakeParams, calls []tx.ContractCall, callIdx int) ([]byte, error) {
	cid := crypto.MoneyContractID
	in := &p.Input

	ok, err := view.ContainsKey(cid, TableCoinRoots, in.MerkleRoot[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrMerkleRootNotFound, "root %s", in.MerkleRoot)
	}

	ok, err = view.ContainsKey(cid, TableNullifiers, in.Nullifier[:])
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errors.Wrapf(ErrDuplicateNullifier, "nullifier %s", in.Nullifier)
	}

	// Only the native token can be staked.
	tc := crypto.TokenCommit(crypto.NativeTokenID, blindScalar(p.TokenBlind))
	if crypto.PointBytes(&tc) != in.TokenCommit {
		return nil, ErrNonNativeToken
	}

	next := callIdx + 1
	if next >= len(calls) {
		return nil, ErrCallOutOfBounds
	}
	if calls[next].ContractID != crypto.ConsensusContractID {
		return nil, errors.Wrap(ErrPrevCallMismatch, "next call is not the consensus contract")
	}
	fn, err := calls[next].Function()
	if err != nil {
		return nil, err
	}
	if fn != ConsensusFuncStake {
		return nil, errors.Wrapf(ErrPrevCallMismatch, "next call function 0x%02x", fn)
	}
	raw, err := calls[next].Params()
	if err != nil {
		return nil, err
	}
	var companion companionInput
	if err := cbor.Unmarshal(raw, &companion); err != nil {
		return nil, errors.Wrap(err, "decode companion stake params")
	}
	if !InputsEqual(&companion.Input, in) {
		return nil, ErrPrevInputMismatch
	}

	return encodeUpdate(FuncStake, &StakeUpdate{Nullifier: in.Nullifier})
}

func applyStake(w blockchain.StateWriter, u *StakeUpdate) error {
	cid := crypto.MoneyContractID
	if err := w.InsertUnique(cid, TableNullifiers, u.Nullifier[:], []byte{}); err != nil {
		if errors.Is(err, blockchain.ErrKeyExists) {
			return errors.Wrapf(ErrDuplicateNullifier, "%s", u.Nullifier)
		}
		return err
	}
	return nil
}

// unstakeInstruction reverses a stake: the consensus coin burned by the
// immediately preceding consensus unstake call reappears as a regular
// money coin of the same hidden value.
func unstakeInstruction(view blockchain.StateView, p *UnstakeParams, calls []tx.ContractCall, callIdx int) ([]byte, error) {
	in := &p.Input

	prev := callIdx - 1
	if prev < 0 {
		return nil, ErrCallOutOfBounds
	}
	if calls[prev].ContractID != crypto.ConsensusContractID {
		return nil, errors.Wrap(ErrPrevCallMismatch, "previous call is not the consensus contract")
	}
	fn, err := calls[prev].Function()
	if err != nil {
		return nil, err
	}
	if fn != ConsensusFuncUnstake {
		return nil, errors.Wrapf(ErrPrevCallMismatch, "previous call function 0x%02x", fn)
	}
	raw, err := calls[prev].Params()
	if err != nil {
		return nil, err
	}
	var companion companionInput
	if err := cbor.Unmarshal(raw, &companion); err != nil {
		return nil, errors.Wrap(err, "decode companion unstake params")
	}
	if !InputsEqual(&companion.Input, in) {
		return nil, ErrPrevInputMismatch
	}

	if in.SpendHook != crypto.Base(crypto.ConsensusContractID) {
		return nil, errors.Wrapf(ErrSpendHookMismatch, "hook %s", in.SpendHook)
	}

	// The burned coin lives in the consensus contract's tree and
	// nullifier set, so the checks read its tables.
	ccid := crypto.ConsensusContractID
	ok, err := view.ContainsKey(ccid, ConsensusTableNullifiers, in.Nullifier[:])
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errors.Wrapf(ErrDuplicateNullifier, "nullifier %s", in.Nullifier)
	}
	ok, err = view.ContainsKey(ccid, ConsensusTableCoinRoots, in.MerkleRoot[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrMerkleRootNotFound, "root %s", in.MerkleRoot)
	}

	tc := crypto.TokenCommit(crypto.NativeTokenID, blindScalar(p.TokenBlind))
	if crypto.PointBytes(&tc) != p.Output.TokenCommit {
		return nil, ErrNonNativeToken
	}
	if p.Output.ValueCommit != in.ValueCommit {
		return nil, ErrValueMismatch
	}

	exists, err := view.ContainsKey(crypto.MoneyContractID, TableCoins, p.Output.Coin[:])
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateCoin, "coin %s", p.Output.Coin)
	}

	return encodeUpdate(FuncUnstake, &UnstakeUpdate{Coin: p.Output.Coin})
}

func applyUnstake(w blockchain.StateWriter, u *UnstakeUpdate) error {
	cid := crypto.MoneyContractID
	if err := w.InsertUnique(cid, TableCoins, u.Coin[:], []byte{}); err != nil {
		if errors.Is(err, blockchain.ErrKeyExists) {
			return errors.Wrapf(ErrDuplicateCoin, "%s", u.Coin)
		}
		return err
	}
	return blockchain.MerkleAppend(w, cid, TableInfo, KeyCoinTree, TableCoinRoots,
		[]crypto.MerkleNode{crypto.MerkleNode(u.Coin)})
}
