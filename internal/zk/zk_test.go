package zk

import (
	"math/big"
	"testing"

	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

func TestDaoMintProofRoundTrip(t *testing.T) {
	var pl, q, aq, ab, gov, pkx, pky, blind fr.Element
	pl.SetUint64(1)
	q.SetUint64(100)
	aq.SetUint64(2)
	ab.SetUint64(3)
	gov.SetUint64(7)
	pkx.SetUint64(11)
	pky.SetUint64(13)
	blind.SetUint64(42)
	bulla := crypto.HashElements(pl, q, aq, ab, gov, pkx, pky, blind)

	proof, err := Prove(DaoMintCircuit, &DaoMintProof{
		Bulla:         bulla.BigInt(new(big.Int)),
		ProposerLimit: pl.BigInt(new(big.Int)),
		Quorum:        q.BigInt(new(big.Int)),
		ApprovalQuot:  aq.BigInt(new(big.Int)),
		ApprovalBase:  ab.BigInt(new(big.Int)),
		GovToken:      gov.BigInt(new(big.Int)),
		PkX:           pkx.BigInt(new(big.Int)),
		PkY:           pky.BigInt(new(big.Int)),
		Blind:         blind.BigInt(new(big.Int)),
	})
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	if err := Verify(DaoMintCircuit, proof, []fr.Element{bulla}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	var other fr.Element
	other.SetUint64(999)
	if err := Verify(DaoMintCircuit, proof, []fr.Element{other}); err == nil {
		t.Fatal("verify accepted a proof against the wrong bulla")
	}
}

func TestRewardProofRoundTrip(t *testing.T) {
	blind, err := crypto.RandomBlind()
	if err != nil {
		t.Fatalf("blind: %v", err)
	}
	const value = 100
	vc := crypto.ValueCommit(value, blind)
	nvc := crypto.ValueCommit(value+StakeReward, blind)
	vcx, vcy := crypto.PointCoords(&vc)
	nvcx, nvcy := crypto.PointCoords(&nvc)

	proof, err := Prove(RewardCircuit, &RewardProof{
		ValueCommit:    sw_bls12377.G1Affine{X: vcx.BigInt(new(big.Int)), Y: vcy.BigInt(new(big.Int))},
		NewValueCommit: sw_bls12377.G1Affine{X: nvcx.BigInt(new(big.Int)), Y: nvcy.BigInt(new(big.Int))},
		Value:          uint64(value),
		ValueBlind:     blind.BigInt(new(big.Int)),
	})
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	if err := Verify(RewardCircuit, proof, []fr.Element{vcx, vcy, nvcx, nvcy}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// Swapping the old and new commitments breaks the reward relation.
	if err := Verify(RewardCircuit, proof, []fr.Element{nvcx, nvcy, vcx, vcy}); err == nil {
		t.Fatal("verify accepted transposed commitments")
	}
}

func TestUnknownCircuit(t *testing.T) {
	if _, err := Prove("NoSuchCircuit_V1", &DaoMintProof{}); err == nil {
		t.Fatal("prove accepted an unregistered circuit name")
	}
	if err := Verify("NoSuchCircuit_V1", nil, nil); err == nil {
		t.Fatal("verify accepted an unregistered circuit name")
	}
}

func TestVerifyPublicCount(t *testing.T) {
	if err := Verify(DaoMintCircuit, nil, []fr.Element{{}, {}}); err == nil {
		t.Fatal("verify accepted the wrong number of public inputs")
	}
}
