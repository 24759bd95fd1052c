package money

import (
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// transferInstruction validates Transfer and OtcSwap calls against the
// snapshot. Swap mode tightens the shape: exactly two anonymous inputs
// and two outputs, each half conserving value and token exactly.
func transferInstruction(view blockchain.StateView, p *TransferParams, calls []tx.ContractCall, callIdx int, swap bool) ([]byte, error) {
	cid := crypto.MoneyContractID

	if swap {
		if len(p.ClearInputs) != 0 || len(p.Inputs) != 2 || len(p.Outputs) != 2 {
			return nil, ErrSwapShape
		}
	} else {
		if len(p.ClearInputs) == 0 && len(p.Inputs) == 0 {
			return nil, ErrNoInputs
		}
		if len(p.Outputs) == 0 {
			return nil, ErrNoOutputs
		}
	}

	inCommits := make([]bls12377.G1Affine, 0, len(p.ClearInputs)+len(p.Inputs))
	outCommits := make([]bls12377.G1Affine, 0, len(p.Outputs))

	for i := range p.ClearInputs {
		ci := &p.ClearInputs[i]
		vc := crypto.ValueCommit(ci.Value, blindScalar(ci.ValueBlind))
		inCommits = append(inCommits, vc)
	}

	seenNullifiers := make(map[crypto.Nullifier]struct{}, len(p.Inputs))
	for i := range p.Inputs {
		in := &p.Inputs[i]

		ok, err := view.ContainsKey(cid, TableCoinRoots, in.MerkleRoot[:])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(ErrMerkleRootNotFound, "input %d root %s", i, in.MerkleRoot)
		}

		if _, dup := seenNullifiers[in.Nullifier]; dup {
			return nil, errors.Wrapf(ErrDuplicateNullifier, "input %d", i)
		}
		seenNullifiers[in.Nullifier] = struct{}{}
		ok, err = view.ContainsKey(cid, TableNullifiers, in.Nullifier[:])
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, errors.Wrapf(ErrDuplicateNullifier, "input %d nullifier %s", i, in.Nullifier)
		}

		if !in.SpendHook.IsZero() {
			if err := checkSpendHook(calls, callIdx, in.SpendHook); err != nil {
				return nil, errors.Wrapf(err, "input %d", i)
			}
		}

		vc, err := commitPoint(in.ValueCommit)
		if err != nil {
			return nil, err
		}
		inCommits = append(inCommits, vc)
	}

	seenCoins := make(map[crypto.Coin]struct{}, len(p.Outputs))
	for i := range p.Outputs {
		out := &p.Outputs[i]
		if _, dup := seenCoins[out.Coin]; dup {
			return nil, errors.Wrapf(ErrDuplicateCoin, "output %d", i)
		}
		seenCoins[out.Coin] = struct{}{}
		ok, err := view.ContainsKey(cid, TableCoins, out.Coin[:])
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, errors.Wrapf(ErrDuplicateCoin, "output %d coin %s", i, out.Coin)
		}
		vc, err := commitPoint(out.ValueCommit)
		if err != nil {
			return nil, err
		}
		outCommits = append(outCommits, vc)
	}

	if swap {
		// Each half of the swap conserves its own token and value.
		for i := 0; i < 2; i++ {
			if p.Inputs[i].TokenCommit != p.Outputs[i].TokenCommit {
				return nil, errors.Wrapf(ErrTokenMismatch, "swap half %d", i)
			}
			if p.Inputs[i].ValueCommit != p.Outputs[i].ValueCommit {
				return nil, errors.Wrapf(ErrValueMismatch, "swap half %d", i)
			}
		}
	} else {
		if err := checkTokenCommits(p); err != nil {
			return nil, err
		}
		if !crypto.CommitmentsBalance(inCommits, outCommits) {
			return nil, ErrValueMismatch
		}
	}

	update := TransferUpdate{}
	for i := range p.Inputs {
		update.Nullifiers = append(update.Nullifiers, p.Inputs[i].Nullifier)
	}
	for i := range p.Outputs {
		update.Coins = append(update.Coins, p.Outputs[i].Coin)
	}
	fn := FuncTransfer
	if swap {
		fn = FuncOtcSwap
	}
	return encodeUpdate(fn, &update)
}

// checkTokenCommits enforces that every input and output commits to the
// same token. A transfer uses a single token blind across the whole
// call, so the commitments must be pairwise equal.
func checkTokenCommits(p *TransferParams) error {
	var ref [48]byte
	have := false
	for i := range p.ClearInputs {
		ci := &p.ClearInputs[i]
		tc := crypto.TokenCommit(ci.Token, blindScalar(ci.TokenBlind))
		b := crypto.PointBytes(&tc)
		if !have {
			ref, have = b, true
		} else if b != ref {
			return errors.Wrapf(ErrTokenMismatch, "clear input %d", i)
		}
	}
	for i := range p.Inputs {
		if !have {
			ref, have = p.Inputs[i].TokenCommit, true
		} else if p.Inputs[i].TokenCommit != ref {
			return errors.Wrapf(ErrTokenMismatch, "input %d", i)
		}
	}
	for i := range p.Outputs {
		if !have {
			ref, have = p.Outputs[i].TokenCommit, true
		} else if p.Outputs[i].TokenCommit != ref {
			return errors.Wrapf(ErrTokenMismatch, "output %d", i)
		}
	}
	return nil
}

// checkSpendHook requires the next call in the transaction to target
// the contract named by the note's spend hook.
func checkSpendHook(calls []tx.ContractCall, callIdx int, hook crypto.Base) error {
	next := callIdx + 1
	if next >= len(calls) {
		return ErrSpendHookOutOfBounds
	}
	if crypto.Base(calls[next].ContractID) != hook {
		return errors.Wrapf(ErrSpendHookMismatch, "hook %s, next call %s", hook, calls[next].ContractID)
	}
	return nil
}

func applyTransfer(w blockchain.StateWriter, u *TransferUpdate) error {
	cid := crypto.MoneyContractID
	for _, n := range u.Nullifiers {
		if err := w.InsertUnique(cid, TableNullifiers, n[:], []byte{}); err != nil {
			if errors.Is(err, blockchain.ErrKeyExists) {
				return errors.Wrapf(ErrDuplicateNullifier, "%s", n)
			}
			return err
		}
	}
	leaves := make([]crypto.MerkleNode, 0, len(u.Coins))
	for _, coin := range u.Coins {
		if err := w.InsertUnique(cid, TableCoins, coin[:], []byte{}); err != nil {
			if errors.Is(err, blockchain.ErrKeyExists) {
				return errors.Wrapf(ErrDuplicateCoin, "%s", coin)
			}
			return err
		}
		leaves = append(leaves, crypto.MerkleNode(coin))
	}
	return blockchain.MerkleAppend(w, cid, TableInfo, KeyCoinTree, TableCoinRoots, leaves)
}
