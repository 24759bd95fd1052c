package zk

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// DaoMintProof proves a DAO bulla commits to the DAO's governance
// parameters and public key under a blinding factor.
//
// Public input order: [bulla].
type DaoMintProof struct {
	Bulla frontend.Variable `gnark:",public"`

	ProposerLimit frontend.Variable
	Quorum        frontend.Variable
	ApprovalQuot  frontend.Variable
	ApprovalBase  frontend.Variable
	GovToken      frontend.Variable
	PkX           frontend.Variable
	PkY           frontend.Variable
	Blind         frontend.Variable
}

func (c *DaoMintProof) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(c.ProposerLimit, c.Quorum, c.ApprovalQuot, c.ApprovalBase,
		c.GovToken, c.PkX, c.PkY, c.Blind)
	api.AssertIsEqual(c.Bulla, hasher.Sum())
	return nil
}

func daoMintPublic(public []fr.Element) (frontend.Circuit, error) {
	if err := wantLen(DaoMintCircuit, public, 1); err != nil {
		return nil, err
	}
	return &DaoMintProof{Bulla: fv(public[0])}, nil
}

// DaoProposeProof proves a proposal bulla is well-formed for a DAO whose
// bulla is included in the DAO tree under the published root, and that
// the governance token commitment opens to the DAO's governance token.
//
// Public input order: [proposal_bulla, dao_merkle_root, token_commit.x,
// token_commit.y].
type DaoProposeProof struct {
	ProposalBulla  frontend.Variable    `gnark:",public"`
	DaoMerkleRoot  frontend.Variable    `gnark:",public"`
	GovTokenCommit sw_bls12377.G1Affine `gnark:",public"`

	// DAO opening.
	ProposerLimit frontend.Variable
	Quorum        frontend.Variable
	ApprovalQuot  frontend.Variable
	ApprovalBase  frontend.Variable
	GovToken      frontend.Variable
	DaoPkX        frontend.Variable
	DaoPkY        frontend.Variable
	DaoBlind      frontend.Variable
	DaoPath       [crypto.MerkleDepth]frontend.Variable
	DaoPathBits   [crypto.MerkleDepth]frontend.Variable

	// Proposal opening.
	DestX         frontend.Variable
	DestY         frontend.Variable
	Amount        frontend.Variable
	Serial        frontend.Variable
	ProposalBlind frontend.Variable
	TokenBlind    frontend.Variable
}

func (c *DaoProposeProof) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// Recompute the DAO bulla and prove its tree inclusion.
	hasher.Write(c.ProposerLimit, c.Quorum, c.ApprovalQuot, c.ApprovalBase,
		c.GovToken, c.DaoPkX, c.DaoPkY, c.DaoBlind)
	daoBulla := hasher.Sum()

	cur := daoBulla
	for i := 0; i < crypto.MerkleDepth; i++ {
		api.AssertIsBoolean(c.DaoPathBits[i])
		left := api.Select(c.DaoPathBits[i], c.DaoPath[i], cur)
		right := api.Select(c.DaoPathBits[i], cur, c.DaoPath[i])
		hasher.Reset()
		hasher.Write(left, right)
		cur = hasher.Sum()
	}
	api.AssertIsEqual(c.DaoMerkleRoot, cur)

	// Proposal bulla. The blind enters the hash exactly once.
	hasher.Reset()
	hasher.Write(c.DestX, c.DestY, c.Amount, c.Serial, c.GovToken, daoBulla, c.ProposalBlind)
	api.AssertIsEqual(c.ProposalBulla, hasher.Sum())

	// Governance token commitment opening.
	g, h := crypto.PedersenGenerators()
	tg := new(sw_bls12377.G1Affine)
	tg.ScalarMul(api, g1Constant(g), c.GovToken)
	tb := new(sw_bls12377.G1Affine)
	tb.ScalarMul(api, g1Constant(h), c.TokenBlind)
	tg.AddAssign(api, *tb)
	api.AssertIsEqual(c.GovTokenCommit.X, tg.X)
	api.AssertIsEqual(c.GovTokenCommit.Y, tg.Y)

	return nil
}

func daoProposePublic(public []fr.Element) (frontend.Circuit, error) {
	if err := wantLen(DaoProposeCircuit, public, 4); err != nil {
		return nil, err
	}
	return &DaoProposeProof{
		ProposalBulla:  fv(public[0]),
		DaoMerkleRoot:  fv(public[1]),
		GovTokenCommit: g1Public(public[2], public[3]),
	}, nil
}

// DaoVoteProof proves a ballot is well-formed: the vote option is
// boolean, the yes-vote commitment opens to option*weight, the all-vote
// commitment opens to the full weight, and the token commitment opens to
// the DAO's governance token. Weight provenance (the burnt governance
// coins) is established by the accompanying Burn proofs.
//
// Public input order: [proposal_bulla, yes_commit.x, yes_commit.y,
// all_commit.x, all_commit.y, token_commit.x, token_commit.y].
type DaoVoteProof struct {
	ProposalBulla  frontend.Variable    `gnark:",public"`
	YesVoteCommit  sw_bls12377.G1Affine `gnark:",public"`
	AllVoteCommit  sw_bls12377.G1Affine `gnark:",public"`
	GovTokenCommit sw_bls12377.G1Affine `gnark:",public"`

	// Proposal opening.
	DestX         frontend.Variable
	DestY         frontend.Variable
	Amount        frontend.Variable
	Serial        frontend.Variable
	GovToken      frontend.Variable
	DaoBulla      frontend.Variable
	ProposalBlind frontend.Variable

	VoteOption frontend.Variable
	VoteWeight frontend.Variable
	YesBlind   frontend.Variable
	AllBlind   frontend.Variable
	TokenBlind frontend.Variable
}

func (c *DaoVoteProof) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(c.DestX, c.DestY, c.Amount, c.Serial, c.GovToken, c.DaoBulla, c.ProposalBlind)
	api.AssertIsEqual(c.ProposalBulla, hasher.Sum())

	api.AssertIsBoolean(c.VoteOption)
	yesWeight := api.Mul(c.VoteOption, c.VoteWeight)

	g, h := crypto.PedersenGenerators()
	gc, hc := g1Constant(g), g1Constant(h)

	yg := new(sw_bls12377.G1Affine)
	yg.ScalarMul(api, gc, yesWeight)
	yb := new(sw_bls12377.G1Affine)
	yb.ScalarMul(api, hc, c.YesBlind)
	yg.AddAssign(api, *yb)
	api.AssertIsEqual(c.YesVoteCommit.X, yg.X)
	api.AssertIsEqual(c.YesVoteCommit.Y, yg.Y)

	ag := new(sw_bls12377.G1Affine)
	ag.ScalarMul(api, gc, c.VoteWeight)
	ab := new(sw_bls12377.G1Affine)
	ab.ScalarMul(api, hc, c.AllBlind)
	ag.AddAssign(api, *ab)
	api.AssertIsEqual(c.AllVoteCommit.X, ag.X)
	api.AssertIsEqual(c.AllVoteCommit.Y, ag.Y)

	tg := new(sw_bls12377.G1Affine)
	tg.ScalarMul(api, gc, c.GovToken)
	tb := new(sw_bls12377.G1Affine)
	tb.ScalarMul(api, hc, c.TokenBlind)
	tg.AddAssign(api, *tb)
	api.AssertIsEqual(c.GovTokenCommit.X, tg.X)
	api.AssertIsEqual(c.GovTokenCommit.Y, tg.Y)

	return nil
}

func daoVotePublic(public []fr.Element) (frontend.Circuit, error) {
	if err := wantLen(DaoVoteCircuit, public, 7); err != nil {
		return nil, err
	}
	return &DaoVoteProof{
		ProposalBulla:  fv(public[0]),
		YesVoteCommit:  g1Public(public[1], public[2]),
		AllVoteCommit:  g1Public(public[3], public[4]),
		GovTokenCommit: g1Public(public[5], public[6]),
	}, nil
}
