package zk

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// BurnProof proves the right to spend a coin without revealing it: the
// prover knows the secret key and note opening of a coin included in the
// tree under the published root, the published nullifier is derived from
// that secret and serial, and the commitments open consistently. The
// spend hook and blinded user data are revealed for companion-call
// enforcement.
//
// Public input order: [nullifier, merkle_root, value_commit.x,
// value_commit.y, token_commit.x, token_commit.y, spend_hook,
// user_data_enc].
type BurnProof struct {
	Nullifier   frontend.Variable    `gnark:",public"`
	MerkleRoot  frontend.Variable    `gnark:",public"`
	ValueCommit sw_bls12377.G1Affine `gnark:",public"`
	TokenCommit sw_bls12377.G1Affine `gnark:",public"`
	SpendHook   frontend.Variable    `gnark:",public"`
	UserDataEnc frontend.Variable    `gnark:",public"`

	Secret        frontend.Variable
	Serial        frontend.Variable
	Value         frontend.Variable
	Token         frontend.Variable
	UserData      frontend.Variable
	UserDataBlind frontend.Variable
	CoinBlind     frontend.Variable
	ValueBlind    frontend.Variable
	TokenBlind    frontend.Variable
	Path          [crypto.MerkleDepth]frontend.Variable
	PathBits      [crypto.MerkleDepth]frontend.Variable
}

func (c *BurnProof) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// Nullifier binds the secret to the serial.
	hasher.Write(c.Secret, c.Serial)
	api.AssertIsEqual(c.Nullifier, hasher.Sum())

	// Owner public key is the secret's base point multiple.
	g, h := crypto.PedersenGenerators()
	gc, hc := g1Constant(g), g1Constant(h)
	pk := new(sw_bls12377.G1Affine)
	pk.ScalarMul(api, gc, c.Secret)

	// Recompute the coin bulla.
	hasher.Reset()
	hasher.Write(pk.X, pk.Y, c.Value, c.Token, c.Serial, c.SpendHook, c.UserData, c.CoinBlind)
	coin := hasher.Sum()

	// Ascend the tree along the authentication path.
	cur := coin
	for i := 0; i < crypto.MerkleDepth; i++ {
		api.AssertIsBoolean(c.PathBits[i])
		left := api.Select(c.PathBits[i], c.Path[i], cur)
		right := api.Select(c.PathBits[i], cur, c.Path[i])
		hasher.Reset()
		hasher.Write(left, right)
		cur = hasher.Sum()
	}
	api.AssertIsEqual(c.MerkleRoot, cur)

	// Blinded user data commitment.
	hasher.Reset()
	hasher.Write(c.UserData, c.UserDataBlind)
	api.AssertIsEqual(c.UserDataEnc, hasher.Sum())

	// Pedersen openings.
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

func burnPublic(public []fr.Element) (frontend.Circuit, error) {
	if err := wantLen(BurnCircuit, public, 8); err != nil {
		return nil, err
	}
	return &BurnProof{
		Nullifier:   fv(public[0]),
		MerkleRoot:  fv(public[1]),
		ValueCommit: g1Public(public[2], public[3]),
		TokenCommit: g1Public(public[4], public[5]),
		SpendHook:   fv(public[6]),
		UserDataEnc: fv(public[7]),
	}, nil
}
