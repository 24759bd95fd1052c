package zk

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// MintProof proves a newly created coin is well-formed: the coin bulla
// commits to the owner key and note fields, and the value/token Pedersen
// commitments open to the same value and token.
//
// Public input order: [coin, value_commit.x, value_commit.y,
// token_commit.x, token_commit.y].
type MintProof struct {
	Coin        frontend.Variable    `gnark:",public"`
	ValueCommit sw_bls12377.G1Affine `gnark:",public"`
	TokenCommit sw_bls12377.G1Affine `gnark:",public"`

	PkX        frontend.Variable
	PkY        frontend.Variable
	Value      frontend.Variable
	Token      frontend.Variable
	Serial     frontend.Variable
	SpendHook  frontend.Variable
	UserData   frontend.Variable
	CoinBlind  frontend.Variable
	ValueBlind frontend.Variable
	TokenBlind frontend.Variable
}

func (c *MintProof) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(c.PkX, c.PkY, c.Value, c.Token, c.Serial, c.SpendHook, c.UserData, c.CoinBlind)
	api.AssertIsEqual(c.Coin, hasher.Sum())

	g, h := crypto.PedersenGenerators()
	gc, hc := g1Constant(g), g1Constant(h)

	vg := new(sw_bls12377.G1Affine)
	vg.ScalarMul(api, gc, c.Value)
	vb := new(sw_bls12377.G1Affine)
	vb.ScalarMul(api, hc, c.ValueBlind)
	vg.AddAssign(api, *vb)
	api.AssertIsEqual(c.ValueCommit.X, vg.X)
	api.AssertIsEqual(c.ValueCommit.Y, vg.Y)

	tg := new(sw_bls12377.G1Affine)
	tg.ScalarMul(api, gc, c.Token)
	tb := new(sw_bls12377.G1Affine)
	tb.ScalarMul(api, hc, c.TokenBlind)
	tg.AddAssign(api, *tb)
	api.AssertIsEqual(c.TokenCommit.X, tg.X)
	api.AssertIsEqual(c.TokenCommit.Y, tg.Y)

	return nil
}

func mintPublic(public []fr.Element) (frontend.Circuit, error) {
	if err := wantLen(MintCircuit, public, 5); err != nil {
		return nil, err
	}
	return &MintProof{
		Coin:        fv(public[0]),
		ValueCommit: g1Public(public[1], public[2]),
		TokenCommit: g1Public(public[3], public[4]),
	}, nil
}
