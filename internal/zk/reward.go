package zk

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// StakeReward is the fixed per-proposal staking reward.
const StakeReward uint64 = 1

// RewardProof proves the restaked value commitment exceeds the unstaked
// one by exactly the fixed reward, under the same blind.
//
// Public input order: [value_commit.x, value_commit.y,
// new_value_commit.x, new_value_commit.y].
type RewardProof struct {
	ValueCommit    sw_bls12377.G1Affine `gnark:",public"`
	NewValueCommit sw_bls12377.G1Affine `gnark:",public"`

	Value      frontend.Variable
	ValueBlind frontend.Variable
}

func (c *RewardProof) Define(api frontend.API) error {
	g, h := crypto.PedersenGenerators()
	gc, hc := g1Constant(g), g1Constant(h)

	vg := new(sw_bls12377.G1Affine)
	vg.ScalarMul(api, gc, c.Value)
	vb := new(sw_bls12377.G1Affine)
	vb.ScalarMul(api, hc, c.ValueBlind)
	vg.AddAssign(api, *vb)
	api.AssertIsEqual(c.ValueCommit.X, vg.X)
	api.AssertIsEqual(c.ValueCommit.Y, vg.Y)

	ng := new(sw_bls12377.G1Affine)
	ng.ScalarMul(api, gc, api.Add(c.Value, StakeReward))
	nb := new(sw_bls12377.G1Affine)
	nb.ScalarMul(api, hc, c.ValueBlind)
	ng.AddAssign(api, *nb)
	api.AssertIsEqual(c.NewValueCommit.X, ng.X)
	api.AssertIsEqual(c.NewValueCommit.Y, ng.Y)

	return nil
}

func rewardPublic(public []fr.Element) (frontend.Circuit, error) {
	if err := wantLen(RewardCircuit, public, 4); err != nil {
		return nil, err
	}
	return &RewardProof{
		ValueCommit:    g1Public(public[0], public[1]),
		NewValueCommit: g1Public(public[2], public[3]),
	}, nil
}
