package zk

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// TokenMintProof proves control of a token's mint authority: the prover
// knows the secret behind the authority public key, and the published
// token digest is derived from that key. The same relation authorizes a
// freeze, so the TokenFreeze namespace shares this circuit.
//
// Public input order: [authority.x, authority.y, token_digest].
type TokenMintProof struct {
	AuthorityX  frontend.Variable `gnark:",public"`
	AuthorityY  frontend.Variable `gnark:",public"`
	TokenDigest frontend.Variable `gnark:",public"`

	Secret frontend.Variable
}

func (c *TokenMintProof) Define(api frontend.API) error {
	g, _ := crypto.PedersenGenerators()
	pk := new(sw_bls12377.G1Affine)
	pk.ScalarMul(api, g1Constant(g), c.Secret)
	api.AssertIsEqual(c.AuthorityX, pk.X)
	api.AssertIsEqual(c.AuthorityY, pk.Y)

	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(pk.X, pk.Y)
	api.AssertIsEqual(c.TokenDigest, hasher.Sum())
	return nil
}

func tokenMintPublic(public []fr.Element) (frontend.Circuit, error) {
	if err := wantLen(TokenMintCircuit, public, 3); err != nil {
		return nil, err
	}
	return &TokenMintProof{
		AuthorityX:  fv(public[0]),
		AuthorityY:  fv(public[1]),
		TokenDigest: fv(public[2]),
	}, nil
}
