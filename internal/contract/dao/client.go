package dao

import (
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

// MintCallBuilder registers a new DAO.
type MintCallBuilder struct {
	Dao    Params
	Signer *crypto.SigningKey
}

func (b *MintCallBuilder) Build() (*tx.PartialCall, error) {
	bulla := b.Dao.Bulla()

	var pl, q, aq, ab fr.Element
	pl.SetUint64(b.Dao.ProposerLimit)
	q.SetUint64(b.Dao.Quorum)
	aq.SetUint64(b.Dao.ApprovalQuot)
	ab.SetUint64(b.Dao.ApprovalBase)

	proof, err := zk.Prove(zk.DaoMintCircuit, &zk.DaoMintProof{
		Bulla:         bv(bulla.Element()),
		ProposerLimit: bv(pl),
		Quorum:        bv(q),
		ApprovalQuot:  bv(aq),
		ApprovalBase:  bv(ab),
		GovToken:      bv(b.Dao.GovToken.Base()),
		PkX:           bv(b.Dao.PublicX.Element()),
		PkY:           bv(b.Dao.PublicY.Element()),
		Blind:         bv(b.Dao.Blind.Element()),
	})
	if err != nil {
		return nil, err
	}

	params := MintParams{Bulla: bulla, SignaturePublic: b.Signer.PublicBytes()}
	data, err := tx.EncodeCall(FuncMint, &params)
	if err != nil {
		return nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.DAOContractID, Data: data},
		Proofs: [][]byte{proof},
		Keys:   []*crypto.SigningKey{b.Signer},
	}, nil
}

// ProposeCallBuilder opens a proposal to pay Amount of the governance
// token to Dest from the DAO treasury. The proposal opening is sealed
// for the DAO key so members can vote on it.
type ProposeCallBuilder struct {
	Dao        Params
	DaoLeafPos uint64
	DaoTree    *crypto.MerkleTree
	Dest       bls12377.G1Affine
	Amount     uint64
	DaoPublic  bls12377.G1Affine
}

func (b *ProposeCallBuilder) Build() (*tx.PartialCall, *ProposalOpen, error) {
	serial, err := crypto.RandomBase()
	if err != nil {
		return nil, nil, err
	}
	blind, err := crypto.RandomBase()
	if err != nil {
		return nil, nil, err
	}
	destX, destY := crypto.PublicCoords(&b.Dest)
	open := &ProposalOpen{
		DestX:  crypto.BaseFromElement(destX),
		DestY:  crypto.BaseFromElement(destY),
		Amount: b.Amount,
		Serial: crypto.BaseFromElement(serial),
		Blind:  crypto.BaseFromElement(blind),
	}

	daoBulla := b.Dao.Bulla()
	proposalBulla := open.Bulla(b.Dao.GovToken, daoBulla)
	daoRoot := b.DaoTree.Root()
	path, err := b.DaoTree.AuthPath(b.DaoLeafPos)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dao auth path")
	}

	tokenBlind, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}
	tc := crypto.TokenCommit(b.Dao.GovToken, tokenBlind)
	tcx, tcy := crypto.PointCoords(&tc)

	var pl, q, aq, ab, amt fr.Element
	pl.SetUint64(b.Dao.ProposerLimit)
	q.SetUint64(b.Dao.Quorum)
	aq.SetUint64(b.Dao.ApprovalQuot)
	ab.SetUint64(b.Dao.ApprovalBase)
	amt.SetUint64(b.Amount)

	assignment := &zk.DaoProposeProof{
		ProposalBulla:  bv(proposalBulla.Element()),
		DaoMerkleRoot:  bv(daoRoot.Element()),
		GovTokenCommit: sw_bls12377.G1Affine{X: bv(tcx), Y: bv(tcy)},
		ProposerLimit:  bv(pl),
		Quorum:         bv(q),
		ApprovalQuot:   bv(aq),
		ApprovalBase:   bv(ab),
		GovToken:       bv(b.Dao.GovToken.Base()),
		DaoPkX:         bv(b.Dao.PublicX.Element()),
		DaoPkY:         bv(b.Dao.PublicY.Element()),
		DaoBlind:       bv(b.Dao.Blind.Element()),
		DestX:          bv(destX),
		DestY:          bv(destY),
		Amount:         bv(amt),
		Serial:         bv(serial),
		ProposalBlind:  bv(blind),
		TokenBlind:     sv(tokenBlind),
	}
	for i := 0; i < crypto.MerkleDepth; i++ {
		assignment.DaoPath[i] = bv(path[i].Element())
		assignment.DaoPathBits[i] = (b.DaoLeafPos >> uint(i)) & 1
	}

	proof, err := zk.Prove(zk.DaoProposeCircuit, assignment)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := cbor.Marshal(open)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode proposal")
	}
	note, err := crypto.SealBytes(plaintext, &b.DaoPublic)
	if err != nil {
		return nil, nil, err
	}

	params := ProposeParams{
		ProposalBulla: proposalBulla,
		DaoRoot:       daoRoot,
		TokenCommit:   crypto.PointBytes(&tc),
		Note:          *note,
	}
	data, err := tx.EncodeCall(FuncPropose, &params)
	if err != nil {
		return nil, nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.DAOContractID, Data: data},
		Proofs: [][]byte{proof},
	}, open, nil
}

// Ballot is the sealed record of one cast vote. It carries the tally
// blinds so the DAO key holder can open the accumulated commitments
// when executing the proposal.
type Ballot struct {
	Option   bool     `cbor:"1,keyasint"`
	Weight   uint64   `cbor:"2,keyasint"`
	YesBlind [32]byte `cbor:"3,keyasint"`
	AllBlind [32]byte `cbor:"4,keyasint"`
}

// VoteCallBuilder casts a ballot weighted by governance coins. The
// coins are proven, not spent; each can vote once per proposal.
type VoteCallBuilder struct {
	Dao       Params
	Proposal  ProposalOpen
	Option    bool
	Coins     []money.OwnCoin
	Tree      *crypto.MerkleTree
	DaoPublic bls12377.G1Affine
}

func (b *VoteCallBuilder) Build() (*tx.PartialCall, error) {
	if len(b.Coins) == 0 {
		return nil, errors.New("vote needs at least one governance coin")
	}

	var weight uint64
	for i := range b.Coins {
		if b.Coins[i].Note.Token != b.Dao.GovToken {
			return nil, errors.Errorf("coin %d is not the governance token", i)
		}
		weight += b.Coins[i].Note.Value
	}

	daoBulla := b.Dao.Bulla()
	proposalBulla := b.Proposal.Bulla(b.Dao.GovToken, daoBulla)

	allBlind, err := crypto.RandomBlind()
	if err != nil {
		return nil, err
	}
	yesBlind, err := crypto.RandomBlind()
	if err != nil {
		return nil, err
	}
	tokenBlind, err := crypto.RandomBlind()
	if err != nil {
		return nil, err
	}

	// Input value blinds telescope to the all-vote blind so the input
	// commitments sum exactly to the all-vote commitment.
	var params VoteParams
	var proofs [][]byte
	var keys []*crypto.SigningKey
	remainder := allBlind
	for i := range b.Coins {
		var vb blsfr.Element
		if i == len(b.Coins)-1 {
			vb = remainder
		} else {
			r, err := crypto.RandomBlind()
			if err != nil {
				return nil, err
			}
			remainder.Sub(&remainder, &r)
			vb = r
		}
		in, proof, key, err := money.BuildInput(&b.Coins[i], vb, tokenBlind, b.Tree)
		if err != nil {
			return nil, errors.Wrapf(err, "vote input %d", i)
		}
		params.Inputs = append(params.Inputs, *in)
		proofs = append(proofs, proof)
		keys = append(keys, key)
	}

	var option uint64
	if b.Option {
		option = 1
	}
	var yesScalar blsfr.Element
	yesScalar.SetUint64(option * weight)
	yes := crypto.PedersenCommit(yesScalar, yesBlind)
	all := crypto.ValueCommit(weight, allBlind)
	tc := crypto.TokenCommit(b.Dao.GovToken, tokenBlind)

	yx, yy := crypto.PointCoords(&yes)
	ax, ay := crypto.PointCoords(&all)
	tcx, tcy := crypto.PointCoords(&tc)

	var amt fr.Element
	amt.SetUint64(b.Proposal.Amount)
	voteProof, err := zk.Prove(zk.DaoVoteCircuit, &zk.DaoVoteProof{
		ProposalBulla:  bv(proposalBulla.Element()),
		YesVoteCommit:  sw_bls12377.G1Affine{X: bv(yx), Y: bv(yy)},
		AllVoteCommit:  sw_bls12377.G1Affine{X: bv(ax), Y: bv(ay)},
		GovTokenCommit: sw_bls12377.G1Affine{X: bv(tcx), Y: bv(tcy)},
		DestX:          bv(b.Proposal.DestX.Element()),
		DestY:          bv(b.Proposal.DestY.Element()),
		Amount:         bv(amt),
		Serial:         bv(b.Proposal.Serial.Element()),
		GovToken:       bv(b.Dao.GovToken.Base()),
		DaoBulla:       bv(daoBulla.Element()),
		ProposalBlind:  bv(b.Proposal.Blind.Element()),
		VoteOption:     option,
		VoteWeight:     weight,
		YesBlind:       sv(yesBlind),
		AllBlind:       sv(allBlind),
		TokenBlind:     sv(tokenBlind),
	})
	if err != nil {
		return nil, err
	}
	proofs = append(proofs, voteProof)

	var ybBytes, abBytes [32]byte
	copy(ybBytes[:], yesBlind.Marshal())
	copy(abBytes[:], allBlind.Marshal())
	plaintext, err := cbor.Marshal(&Ballot{
		Option:   b.Option,
		Weight:   weight,
		YesBlind: ybBytes,
		AllBlind: abBytes,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode ballot")
	}
	note, err := crypto.SealBytes(plaintext, &b.DaoPublic)
	if err != nil {
		return nil, err
	}

	params.ProposalBulla = proposalBulla
	params.YesCommit = crypto.PointBytes(&yes)
	params.AllCommit = crypto.PointBytes(&all)
	params.TokenCommit = crypto.PointBytes(&tc)
	params.Note = *note

	data, err := tx.EncodeCall(FuncVote, &params)
	if err != nil {
		return nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.DAOContractID, Data: data},
		Proofs: proofs,
		Keys:   keys,
	}, nil
}

// ExecCallBuilder settles a passed proposal. The caller pairs it with
// the treasury transfer at the previous call index; CoinBlind must be
// the blind of the transfer's payment coin.
type ExecCallBuilder struct {
	Dao       Params
	Proposal  ProposalOpen
	CoinBlind crypto.Base
	YesValue  uint64
	AllValue  uint64
	YesBlind  [32]byte
	AllBlind  [32]byte
}

func (b *ExecCallBuilder) Build() (*tx.PartialCall, error) {
	params := ExecParams{
		Dao:       b.Dao,
		Proposal:  b.Proposal,
		CoinBlind: b.CoinBlind,
		YesValue:  b.YesValue,
		AllValue:  b.AllValue,
		YesBlind:  b.YesBlind,
		AllBlind:  b.AllBlind,
	}
	data, err := tx.EncodeCall(FuncExec, &params)
	if err != nil {
		return nil, err
	}
	return &tx.PartialCall{
		Call: tx.ContractCall{ContractID: crypto.DAOContractID, Data: data},
	}, nil
}

func bv(e fr.Element) *big.Int { return e.BigInt(new(big.Int)) }

func sv(e blsfr.Element) *big.Int { return e.BigInt(new(big.Int)) }
