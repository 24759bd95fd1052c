package consensus

import (
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

// StakeCallBuilder mirrors a money stake at the next call index,
// recreating the burned coin inside the consensus set. The coin's spend
// hook is forced to the consensus contract so it can only leave through
// a paired unstake.
type StakeCallBuilder struct {
	Stake     *money.StakeResult
	Recipient bls12377.G1Affine
}

func (b *StakeCallBuilder) Build() (*tx.PartialCall, *crypto.Note, error) {
	vb := blindFromBytes(b.Stake.ValueBlind)
	tb, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}

	spec := money.TransferOutput{
		Value:     b.Stake.Value,
		Token:     crypto.NativeTokenID,
		Recipient: b.Recipient,
		SpendHook: crypto.Base(crypto.ConsensusContractID),
	}
	out, note, mintProof, err := money.BuildOutput(&spec, vb, tb)
	if err != nil {
		return nil, nil, err
	}

	params := StakeParams{Input: b.Stake.Input, Output: *out}
	data, err := tx.EncodeCall(FuncStake, &params)
	if err != nil {
		return nil, nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.ConsensusContractID, Data: data},
		Proofs: [][]byte{mintProof},
		Keys:   []*crypto.SigningKey{b.Stake.Key},
	}, note, nil
}

// UnstakeResult is handed to the money unstake builder, which must
// mirror the exact input at the next call index.
type UnstakeResult struct {
	Partial    tx.PartialCall
	Input      money.Input
	Value      uint64
	ValueBlind [32]byte
	BurnProof  []byte
	Key        *crypto.SigningKey
}

// UnstakeCallBuilder burns a consensus coin.
type UnstakeCallBuilder struct {
	Coin money.OwnCoin
	Tree *crypto.MerkleTree
}

func (b *UnstakeCallBuilder) Build() (*UnstakeResult, error) {
	if b.Coin.Note.SpendHook != crypto.Base(crypto.ConsensusContractID) {
		return nil, ErrSpendHookMismatch
	}
	vb, err := crypto.RandomBlind()
	if err != nil {
		return nil, err
	}
	tb, err := crypto.RandomBlind()
	if err != nil {
		return nil, err
	}
	in, burnProof, key, err := money.BuildInput(&b.Coin, vb, tb, b.Tree)
	if err != nil {
		return nil, err
	}

	params := UnstakeParams{Input: *in}
	data, err := tx.EncodeCall(FuncUnstake, &params)
	if err != nil {
		return nil, err
	}

	var vbBytes [32]byte
	copy(vbBytes[:], vb.Marshal())
	return &UnstakeResult{
		Partial: tx.PartialCall{
			Call:   tx.ContractCall{ContractID: crypto.ConsensusContractID, Data: data},
			Proofs: [][]byte{burnProof},
			Keys:   []*crypto.SigningKey{key},
		},
		Input:      *in,
		Value:      b.Coin.Note.Value,
		ValueBlind: vbBytes,
		BurnProof:  burnProof,
		Key:        key,
	}, nil
}

// RewardCallBuilder builds a proposal reward: the staked coin is burned
// and reborn worth exactly the fixed reward more, under the same value
// blind so the homomorphic relation holds.
type RewardCallBuilder struct {
	Coin      money.OwnCoin
	Tree      *crypto.MerkleTree
	Recipient bls12377.G1Affine
}

func (b *RewardCallBuilder) Build() (*tx.PartialCall, *crypto.Note, error) {
	if b.Coin.Note.SpendHook != crypto.Base(crypto.ConsensusContractID) {
		return nil, nil, ErrSpendHookMismatch
	}
	if b.Coin.Note.Token != crypto.NativeTokenID {
		return nil, nil, ErrNonNativeToken
	}

	vb, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}
	tb, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}

	in, burnProof, key, err := money.BuildInput(&b.Coin, vb, tb, b.Tree)
	if err != nil {
		return nil, nil, err
	}

	spec := money.TransferOutput{
		Value:     b.Coin.Note.Value + zk.StakeReward,
		Token:     crypto.NativeTokenID,
		Recipient: b.Recipient,
		SpendHook: crypto.Base(crypto.ConsensusContractID),
	}
	out, note, mintProof, err := money.BuildOutput(&spec, vb, tb)
	if err != nil {
		return nil, nil, err
	}

	inVC, err := crypto.PointFromBytes(in.ValueCommit)
	if err != nil {
		return nil, nil, err
	}
	outVC, err := crypto.PointFromBytes(out.ValueCommit)
	if err != nil {
		return nil, nil, err
	}
	vcx, vcy := crypto.PointCoords(&inVC)
	nvcx, nvcy := crypto.PointCoords(&outVC)
	rewardProof, err := zk.Prove(zk.RewardCircuit, &zk.RewardProof{
		ValueCommit:    sw_bls12377.G1Affine{X: vcx.BigInt(new(big.Int)), Y: vcy.BigInt(new(big.Int))},
		NewValueCommit: sw_bls12377.G1Affine{X: nvcx.BigInt(new(big.Int)), Y: nvcy.BigInt(new(big.Int))},
		Value:          b.Coin.Note.Value,
		ValueBlind:     vb.BigInt(new(big.Int)),
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "reward proof")
	}

	var tbBytes [32]byte
	copy(tbBytes[:], tb.Marshal())
	params := RewardParams{Input: *in, Output: *out, TokenBlind: tbBytes}
	data, err := tx.EncodeCall(FuncReward, &params)
	if err != nil {
		return nil, nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.ConsensusContractID, Data: data},
		Proofs: [][]byte{burnProof, rewardProof, mintProof},
		Keys:   []*crypto.SigningKey{key},
	}, note, nil
}

func blindFromBytes(b [32]byte) (e blsfr.Element) {
	e.SetBytes(b[:])
	return e
}
