// Package dao implements anonymous on-chain governance: DAOs are minted
// as blinded bullas, proposals accumulate homomorphic vote commitments,
// and execution reveals only the blinded totals.
package dao

import (
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// Function discriminants.
const (
	FuncMint    byte = 0x00
	FuncPropose byte = 0x01
	FuncVote    byte = 0x02
	FuncExec    byte = 0x03
)

// State tables owned by the DAO contract.
const (
	TableInfo      = "dao_info"
	TableBullas    = "dao_bullas"
	TableRoots     = "dao_roots"
	TableProposals = "proposals"
	TableVotes     = "votes"

	KeyDaoTree = "dao_tree"
)

// Params are a DAO's governance parameters. They stay hidden behind the
// bulla until execution reveals them.
type Params struct {
	ProposerLimit uint64         `cbor:"1,keyasint"`
	Quorum        uint64         `cbor:"2,keyasint"`
	ApprovalQuot  uint64         `cbor:"3,keyasint"`
	ApprovalBase  uint64         `cbor:"4,keyasint"`
	GovToken      crypto.TokenID `cbor:"5,keyasint"`
	PublicX       crypto.Base    `cbor:"6,keyasint"`
	PublicY       crypto.Base    `cbor:"7,keyasint"`
	Blind         crypto.Base    `cbor:"8,keyasint"`
}

// Bulla commits to the full parameter set under the blind.
func (d *Params) Bulla() crypto.Bulla {
	var pl, q, aq, ab fr.Element
	pl.SetUint64(d.ProposerLimit)
	q.SetUint64(d.Quorum)
	aq.SetUint64(d.ApprovalQuot)
	ab.SetUint64(d.ApprovalBase)
	e := crypto.HashElements(pl, q, aq, ab, d.GovToken.Base(),
		d.PublicX.Element(), d.PublicY.Element(), d.Blind.Element())
	return crypto.Bulla(crypto.BaseFromElement(e))
}

// ProposalOpen is the plaintext a proposal bulla commits to. It is
// shared off-chain with DAO members through the proposal note.
type ProposalOpen struct {
	DestX  crypto.Base `cbor:"1,keyasint"`
	DestY  crypto.Base `cbor:"2,keyasint"`
	Amount uint64      `cbor:"3,keyasint"`
	Serial crypto.Base `cbor:"4,keyasint"`
	Blind  crypto.Base `cbor:"5,keyasint"`
}

// Bulla binds the proposal to its DAO. The blind enters the hash once.
func (p *ProposalOpen) Bulla(govToken crypto.TokenID, daoBulla crypto.Bulla) crypto.Bulla {
	var amt fr.Element
	amt.SetUint64(p.Amount)
	e := crypto.HashElements(p.DestX.Element(), p.DestY.Element(), amt,
		p.Serial.Element(), govToken.Base(), daoBulla.Element(), p.Blind.Element())
	return crypto.Bulla(crypto.BaseFromElement(e))
}

// MintParams registers a new DAO bulla.
type MintParams struct {
	Bulla           crypto.Bulla `cbor:"1,keyasint"`
	SignaturePublic []byte       `cbor:"2,keyasint"`
}

// ProposeParams opens a proposal against a DAO included in the DAO tree.
type ProposeParams struct {
	ProposalBulla crypto.Bulla         `cbor:"1,keyasint"`
	DaoRoot       crypto.MerkleRoot    `cbor:"2,keyasint"`
	TokenCommit   [48]byte             `cbor:"3,keyasint"`
	Note          crypto.EncryptedNote `cbor:"4,keyasint"`
}

// VoteParams casts a weighted ballot. The inputs prove ownership of
// governance coins without spending them; their nullifiers are recorded
// per proposal so a coin votes at most once.
type VoteParams struct {
	ProposalBulla crypto.Bulla         `cbor:"1,keyasint"`
	YesCommit     [48]byte             `cbor:"2,keyasint"`
	AllCommit     [48]byte             `cbor:"3,keyasint"`
	TokenCommit   [48]byte             `cbor:"4,keyasint"`
	Inputs        []money.Input        `cbor:"5,keyasint"`
	Note          crypto.EncryptedNote `cbor:"6,keyasint"`
}

// ExecParams reveals the DAO parameters, the proposal opening and the
// blinded vote totals, and authorizes the companion treasury transfer.
type ExecParams struct {
	Dao       Params       `cbor:"1,keyasint"`
	Proposal  ProposalOpen `cbor:"2,keyasint"`
	CoinBlind crypto.Base  `cbor:"3,keyasint"`
	YesValue  uint64       `cbor:"4,keyasint"`
	AllValue  uint64       `cbor:"5,keyasint"`
	YesBlind  [32]byte     `cbor:"6,keyasint"`
	AllBlind  [32]byte     `cbor:"7,keyasint"`
}

// ProposalState is the accumulated on-chain record of a proposal.
type ProposalState struct {
	YesCommit [48]byte `cbor:"1,keyasint"`
	AllCommit [48]byte `cbor:"2,keyasint"`
	Executed  bool     `cbor:"3,keyasint"`
}

type MintUpdate struct {
	Bulla crypto.Bulla `cbor:"1,keyasint"`
}

type ProposeUpdate struct {
	ProposalBulla crypto.Bulla `cbor:"1,keyasint"`
}

type VoteUpdate struct {
	ProposalBulla crypto.Bulla       `cbor:"1,keyasint"`
	YesCommit     [48]byte           `cbor:"2,keyasint"`
	AllCommit     [48]byte           `cbor:"3,keyasint"`
	Nullifiers    []crypto.Nullifier `cbor:"4,keyasint"`
}

type ExecUpdate struct {
	ProposalBulla crypto.Bulla `cbor:"1,keyasint"`
}

var (
	ErrInvalidFunction     = errors.New("dao: unknown function")
	ErrDaoRootNotFound     = errors.New("dao: merkle root not in root history")
	ErrProposalNotFound    = errors.New("dao: proposal does not exist")
	ErrProposalExists      = errors.New("dao: proposal already exists")
	ErrProposalExecuted    = errors.New("dao: proposal already executed")
	ErrDoubleVote          = errors.New("dao: coin already voted on this proposal")
	ErrVoteCommitMismatch  = errors.New("dao: vote commitments do not match inputs")
	ErrTokenMismatch       = errors.New("dao: governance token commitments do not match")
	ErrMerkleRootNotFound  = errors.New("dao: coin merkle root not in root history")
	ErrVoteTotalsMismatch  = errors.New("dao: revealed totals do not open the accumulated commitments")
	ErrQuorumNotReached    = errors.New("dao: quorum not reached")
	ErrApprovalNotReached  = errors.New("dao: approval ratio not reached")
	ErrExecCallMismatch    = errors.New("dao: companion transfer call does not match")
	ErrExecPaymentMismatch = errors.New("dao: transfer does not pay the proposal")
	ErrSpendHookMismatch   = errors.New("dao: treasury input spend hook is not the dao contract")
	ErrCallOutOfBounds     = errors.New("dao: cross-call index out of bounds")
)

// voteKey scopes a nullifier to one proposal.
func voteKey(bulla crypto.Bulla, n crypto.Nullifier) []byte {
	key := make([]byte, 0, len(bulla)+len(n))
	key = append(key, bulla[:]...)
	return append(key, n[:]...)
}

// identityCommit is the additive identity, the initial vote tally.
func identityCommit() [48]byte {
	var inf bls12377.G1Affine
	return crypto.PointBytes(&inf)
}
